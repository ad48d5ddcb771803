// Package signer implements challenge signing and recovery for address-based
// authentication. A caller proves control of an address by personal-signing a
// timestamped challenge; the vault recovers the signer and treats the
// recovered address as the operation's actor.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ChallengePrefix namespaces signed challenges so a vault signature can never
// be replayed against another service.
const ChallengePrefix = "nftvault-auth:"

// MaxChallengeAge bounds how stale a signed timestamp may be.
const MaxChallengeAge = 5 * time.Minute

// Challenge builds the canonical message for a unix-second timestamp.
func Challenge(timestamp int64) []byte {
	return []byte(ChallengePrefix + strconv.FormatInt(timestamp, 10))
}

// personalHash applies the EIP-191 prefix before hashing, matching what
// wallet personal_sign produces.
func personalHash(msg []byte) common.Hash {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(msg), msg)
	return crypto.Keccak256Hash([]byte(prefixed))
}

// RecoverAddress returns the address that personal-signed msg. Accepts both
// 0/1 and 27/28 recovery ids.
func RecoverAddress(msg, sig []byte) (common.Address, error) {
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	pub, err := crypto.SigToPub(personalHash(msg).Bytes(), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// VerifyChallenge checks that sig is a fresh challenge signature by expected.
func VerifyChallenge(expected common.Address, timestamp int64, sig []byte, now time.Time) error {
	age := now.Unix() - timestamp
	if age < 0 {
		age = -age
	}
	if age > int64(MaxChallengeAge/time.Second) {
		return fmt.Errorf("challenge timestamp outside the allowed window")
	}
	recovered, err := RecoverAddress(Challenge(timestamp), sig)
	if err != nil {
		return err
	}
	if recovered != expected {
		return fmt.Errorf("signature recovered %s, want %s", recovered.Hex(), expected.Hex())
	}
	return nil
}

// Signer holds a private key for producing challenge signatures. Client
// tooling and tests use it; the server side only ever recovers.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

func NewSigner(privateKeyHex string) (*Signer, error) {
	if privateKeyHex == "" {
		return nil, fmt.Errorf("private key is required")
	}
	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %v", err)
	}
	return &Signer{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (s *Signer) Address() common.Address { return s.address }

// SignChallenge produces a personal-sign signature over the timestamped
// challenge, with the recovery id in 27/28 form as wallets emit it.
func (s *Signer) SignChallenge(timestamp int64) ([]byte, error) {
	sig, err := crypto.Sign(personalHash(Challenge(timestamp)).Bytes(), s.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
