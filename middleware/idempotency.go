package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	"payouts/response"
	"payouts/services"
	"payouts/services/logger"

	"github.com/gin-gonic/gin"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"

	idempotencyLockTTL = 30 * time.Second
	maxIdempotencyKey  = 128
)

type bodyCapture struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyCapture) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyCapture) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency replays the stored response when a caller repeats an
// Idempotency-Key. Keys are scoped to the authenticated user, and reusing a
// key with a different body is refused. Server errors are not stored so the
// caller can retry them. If the store is down the request goes through
// without replay protection.
func Idempotency(store services.IdempotencyStore, ttl time.Duration, log logger.Logger) gin.HandlerFunc {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKey {
			response.BadRequest(c, fmt.Sprintf("Idempotency-Key must be at most %d characters", maxIdempotencyKey))
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			response.BadRequest(c, "could not read request body")
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		userID, _ := c.Get(ContextUserID)
		scoped := fmt.Sprintf("%v:%s", userID, key)
		fingerprint := requestFingerprint(c.Request.Method, c.FullPath(), body)
		ctx := c.Request.Context()

		cached, err := store.Get(ctx, scoped)
		if err != nil {
			log.Warn("idempotency store unavailable, processing %s without replay: %v", key, err)
			c.Next()
			return
		}
		if cached != nil {
			replay(c, cached, fingerprint)
			return
		}

		acquired, err := store.Acquire(ctx, scoped, idempotencyLockTTL)
		if err != nil {
			log.Warn("idempotency lock unavailable, processing %s without replay: %v", key, err)
			c.Next()
			return
		}
		if !acquired {
			response.Conflict(c, "a request with this Idempotency-Key is still being processed")
			c.Abort()
			return
		}
		defer func() {
			if err := store.Release(ctx, scoped); err != nil {
				log.Warn("failed to release idempotency lock %s: %v", key, err)
			}
		}()

		// The first holder may have saved its response and released the lock
		// between our Get and Acquire.
		cached, err = store.Get(ctx, scoped)
		if err != nil {
			log.Warn("idempotency store unavailable after lock, processing %s without replay: %v", key, err)
		}
		if cached != nil {
			replay(c, cached, fingerprint)
			return
		}

		capture := &bodyCapture{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = capture
		c.Next()

		status := capture.Status()
		if status >= http.StatusInternalServerError {
			return
		}
		err = store.Save(ctx, scoped, services.CachedResponse{
			StatusCode:  status,
			Body:        capture.body.Bytes(),
			Fingerprint: fingerprint,
		}, ttl)
		if err != nil {
			log.Warn("failed to store response for Idempotency-Key %s: %v", key, err)
		}
	}
}

func replay(c *gin.Context, cached *services.CachedResponse, fingerprint string) {
	if cached.Fingerprint != fingerprint {
		response.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED",
			"Idempotency-Key was already used with a different request")
		c.Abort()
		return
	}
	c.Header(IdempotencyHitHeader, "true")
	c.Data(cached.StatusCode, "application/json; charset=utf-8", cached.Body)
	c.Abort()
}

func requestFingerprint(method, route string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write([]byte(route))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
