package signer

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	key, _ := crypto.GenerateKey()
	keyHex := hexutil.Encode(crypto.FromECDSA(key))[2:]
	s, err := NewSigner(keyHex)
	assert.NoError(t, err)
	return s
}

func TestSignAndVerifyChallenge(t *testing.T) {
	s := newTestSigner(t)
	now := time.Unix(1_700_000_000, 0)

	sig, err := s.SignChallenge(now.Unix())
	assert.NoError(t, err)
	assert.Equal(t, 65, len(sig))
	// Wallet-style recovery id.
	assert.True(t, sig[64] == 27 || sig[64] == 28)

	assert.NoError(t, VerifyChallenge(s.Address(), now.Unix(), sig, now))

	// Legacy 0/1 recovery ids are accepted too.
	legacy := make([]byte, 65)
	copy(legacy, sig)
	legacy[64] -= 27
	assert.NoError(t, VerifyChallenge(s.Address(), now.Unix(), legacy, now))
}

func TestVerifyChallengeRejectsWrongSigner(t *testing.T) {
	s := newTestSigner(t)
	other := newTestSigner(t)
	now := time.Unix(1_700_000_000, 0)

	sig, err := s.SignChallenge(now.Unix())
	assert.NoError(t, err)
	assert.Error(t, VerifyChallenge(other.Address(), now.Unix(), sig, now))
}

func TestVerifyChallengeRejectsStaleTimestamp(t *testing.T) {
	s := newTestSigner(t)
	signedAt := time.Unix(1_700_000_000, 0)
	sig, err := s.SignChallenge(signedAt.Unix())
	assert.NoError(t, err)

	inside := signedAt.Add(MaxChallengeAge)
	assert.NoError(t, VerifyChallenge(s.Address(), signedAt.Unix(), sig, inside))

	stale := signedAt.Add(MaxChallengeAge + time.Second)
	assert.Error(t, VerifyChallenge(s.Address(), signedAt.Unix(), sig, stale))

	// Timestamps from the future are just as invalid.
	future := signedAt.Add(-MaxChallengeAge - time.Second)
	assert.Error(t, VerifyChallenge(s.Address(), signedAt.Unix(), sig, future))
}

func TestVerifyChallengeRejectsTamperedTimestamp(t *testing.T) {
	s := newTestSigner(t)
	now := time.Unix(1_700_000_000, 0)
	sig, err := s.SignChallenge(now.Unix())
	assert.NoError(t, err)

	// Signature was made over a different challenge than claimed.
	assert.Error(t, VerifyChallenge(s.Address(), now.Unix()+30, sig, now))
}

func TestRecoverAddressBadSignature(t *testing.T) {
	_, err := RecoverAddress(Challenge(1_700_000_000), []byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestNewSignerValidation(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
	_, err = NewSigner("not-hex")
	assert.Error(t, err)
}
