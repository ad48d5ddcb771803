package middleware

import (
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/mosaical/nftvault/internal/config"
	"github.com/mosaical/nftvault/internal/model"
	"github.com/mosaical/nftvault/internal/service"
	"github.com/mosaical/nftvault/internal/signer"
)

var errInvalidSignatureAuth = errors.New("invalid signature auth")

const (
	HeaderVaultKey       = "X-Vault-Key"
	HeaderVaultAddress   = "X-Vault-Address"
	HeaderVaultSignature = "X-Vault-Signature"
	HeaderVaultTimestamp = "X-Vault-Timestamp"
	ContextAccountKey    = "account"
)

func AuthMiddleware(cfg *config.Config, am *service.AccountManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Signature auth: the caller proves address control directly, no
		// provisioned API key needed.
		if c.GetHeader(HeaderVaultSignature) != "" {
			account, err := verifySignatureAuth(c, am)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
				c.Abort()
				return
			}
			c.Set(ContextAccountKey, account)
			c.Next()
			return
		}

		apiKey := c.GetHeader(HeaderVaultKey)
		if apiKey == "" {
			if cfg != nil && !cfg.Auth.RequireAPIKey {
				if account := am.DefaultAccount(); account != nil {
					c.Set(ContextAccountKey, account)
					c.Next()
					return
				}
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			c.Abort()
			return
		}

		account, ok := am.GetAccountByApiKeyWithFallback(c.Request.Context(), apiKey)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			c.Abort()
			return
		}

		// 将账户信息存入上下文
		c.Set(ContextAccountKey, account)
		c.Next()
	}
}

// verifySignatureAuth recovers the caller from a signed timestamp challenge.
// Known accounts keep their configured rate limits; unknown addresses get an
// ephemeral account with defaults.
func verifySignatureAuth(c *gin.Context, am *service.AccountManager) (*model.Account, error) {
	addrHex := c.GetHeader(HeaderVaultAddress)
	if !common.IsHexAddress(addrHex) {
		return nil, errInvalidSignatureAuth
	}
	timestamp, err := strconv.ParseInt(c.GetHeader(HeaderVaultTimestamp), 10, 64)
	if err != nil {
		return nil, errInvalidSignatureAuth
	}
	sigHex := strings.TrimPrefix(c.GetHeader(HeaderVaultSignature), "0x")
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, errInvalidSignatureAuth
	}

	addr := common.HexToAddress(addrHex)
	if err := signer.VerifyChallenge(addr, timestamp, sig, time.Now()); err != nil {
		return nil, errInvalidSignatureAuth
	}

	if account, ok := am.GetAccountByAddress(addr); ok {
		return account, nil
	}
	account := &model.Account{
		Address: addr,
		Name:    "signature-auth",
		Rate:    model.RateLimitConfig{QPS: 10, Burst: 20},
	}
	am.RegisterAccount(account)
	return account, nil
}
