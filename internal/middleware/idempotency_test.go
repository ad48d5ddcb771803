package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/mosaical/nftvault/internal/model"
)

// stubAccount injects a fixed account, standing in for AuthMiddleware.
func stubAccount(addr string) gin.HandlerFunc {
	account := &model.Account{Address: common.HexToAddress(addr), Name: "stub"}
	return func(c *gin.Context) {
		c.Set(ContextAccountKey, account)
		c.Next()
	}
}

func TestIdempotencyReplaysCachedResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var calls int64
	router := gin.New()
	router.Use(stubAccount("0x1111111111111111111111111111111111111111"))
	router.Use(IdempotencyMiddleware(NewInMemIdempotencyStore()))
	router.POST("/borrow", func(c *gin.Context) {
		n := atomic.AddInt64(&calls, 1)
		c.JSON(http.StatusCreated, gin.H{"call": n})
	})

	first := httptest.NewRequest(http.MethodPost, "/borrow", nil)
	first.Header.Set(HeaderIdempotencyKey, "key-1")
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, first)
	if rec1.Code != http.StatusCreated {
		t.Fatalf("first call: got %d, want 201", rec1.Code)
	}

	second := httptest.NewRequest(http.MethodPost, "/borrow", nil)
	second.Header.Set(HeaderIdempotencyKey, "key-1")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, second)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("replay: got %d, want 201", rec2.Code)
	}
	if atomic.LoadInt64(&calls) != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if rec1.Body.String() != rec2.Body.String() {
		t.Fatalf("replay body %q differs from original %q", rec2.Body.String(), rec1.Body.String())
	}

	// A different key executes the handler again.
	third := httptest.NewRequest(http.MethodPost, "/borrow", nil)
	third.Header.Set(HeaderIdempotencyKey, "key-2")
	rec3 := httptest.NewRecorder()
	router.ServeHTTP(rec3, third)
	if atomic.LoadInt64(&calls) != 2 {
		t.Fatalf("handler ran %d times after new key, want 2", calls)
	}
}

func TestIdempotencyKeysScopedPerAccount(t *testing.T) {
	gin.SetMode(gin.TestMode)

	store := NewInMemIdempotencyStore()
	var calls int64
	handler := func(c *gin.Context) {
		atomic.AddInt64(&calls, 1)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	}

	alice := gin.New()
	alice.Use(stubAccount("0x1111111111111111111111111111111111111111"))
	alice.Use(IdempotencyMiddleware(store))
	alice.POST("/borrow", handler)

	bob := gin.New()
	bob.Use(stubAccount("0x2222222222222222222222222222222222222222"))
	bob.Use(IdempotencyMiddleware(store))
	bob.POST("/borrow", handler)

	for _, router := range []*gin.Engine{alice, bob} {
		req := httptest.NewRequest(http.MethodPost, "/borrow", nil)
		req.Header.Set(HeaderIdempotencyKey, "shared-key")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
	}
	if atomic.LoadInt64(&calls) != 2 {
		t.Fatalf("handler ran %d times, want one per account", calls)
	}
}

func TestIdempotencyUnlocksOnServerError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var calls int64
	router := gin.New()
	router.Use(stubAccount("0x1111111111111111111111111111111111111111"))
	router.Use(IdempotencyMiddleware(NewInMemIdempotencyStore()))
	router.POST("/borrow", func(c *gin.Context) {
		if atomic.AddInt64(&calls, 1) == 1 {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "transient"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/borrow", nil)
	req.Header.Set(HeaderIdempotencyKey, "retry-key")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("first call: got %d, want 500", rec.Code)
	}

	// 5xx results are not cached, so the retry re-executes.
	retry := httptest.NewRequest(http.MethodPost, "/borrow", nil)
	retry.Header.Set(HeaderIdempotencyKey, "retry-key")
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, retry)
	if rec2.Code != http.StatusCreated {
		t.Fatalf("retry: got %d, want 201", rec2.Code)
	}
	if atomic.LoadInt64(&calls) != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func TestIdempotencyIgnoredWithoutKey(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var calls int64
	router := gin.New()
	router.Use(stubAccount("0x1111111111111111111111111111111111111111"))
	router.Use(IdempotencyMiddleware(NewInMemIdempotencyStore()))
	router.POST("/borrow", func(c *gin.Context) {
		atomic.AddInt64(&calls, 1)
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/borrow", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
	}
	if atomic.LoadInt64(&calls) != 2 {
		t.Fatalf("keyless requests deduplicated: %d calls", calls)
	}
}
