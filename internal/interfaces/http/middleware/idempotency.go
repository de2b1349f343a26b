package middleware

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"
)

const (
	// IdempotencyKeyHeader carries the client-chosen key of a POST
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayedHeader marks a response served from the store
	IdempotencyReplayedHeader = "X-Idempotency-Replayed"

	maxIdempotencyKeyLength = 255
)

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Store shared.IdempotencyStore
	TTL   time.Duration
}

// captureWriter tees the response body so it can be stored
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes POSTs carrying an Idempotency-Key safe to retry. The
// first response for a key is stored and replayed to later requests with
// the same key and body. Reusing a key with a different body is refused with
// 422; a duplicate arriving while the first is still running gets 409.
// Server errors and retryable conflicts release the key so the client can
// try again. Keys are scoped per operator.
func Idempotency(cfg IdempotencyConfig) gin.HandlerFunc {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if c.Request.Method != http.MethodPost || key == "" || cfg.Store == nil {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			abort(c, dto.ErrCodeBadRequest, "Idempotency-Key must be at most 255 characters")
			return
		}

		body, err := readBody(c)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				abort(c, dto.ErrCodeRequestTooLarge, "Request body exceeds maximum allowed size")
				return
			}
			abort(c, dto.ErrCodeBadRequest, "Could not read request body")
			return
		}

		ctx := c.Request.Context()
		log := logger.L(ctx)
		scoped := scopeKey(c, key)
		fingerprint := requestFingerprint(c, body)

		existing, reserved, err := cfg.Store.Reserve(ctx, scoped, fingerprint, ttl)
		if err != nil {
			// fail closed: a payment must never be registered twice
			log.Error("Idempotency store unavailable", zap.Error(err))
			c.Header("Retry-After", "1")
			abort(c, dto.ErrCodeUnavailable, "Request could not be deduplicated, please retry")
			return
		}
		if !reserved {
			replay(c, existing, fingerprint)
			return
		}

		capture := &captureWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = capture
		c.Next()

		storeCtx := context.WithoutCancel(ctx)
		status := c.Writer.Status()
		if shouldRelease(status) {
			if err := cfg.Store.Release(storeCtx, scoped); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}
		if err := cfg.Store.Complete(storeCtx, scoped, status, capture.body.Bytes(), ttl); err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}

func replay(c *gin.Context, existing *shared.IdempotencyRecord, fingerprint string) {
	switch {
	case existing == nil:
		abort(c, dto.ErrCodeIdempotencyBusy, "A request with this Idempotency-Key is in progress")
	case existing.Fingerprint != fingerprint:
		abort(c, dto.ErrCodeIdempotencyReuse, "Idempotency-Key was already used with a different request")
	case existing.State != shared.IdempotencyCompleted:
		c.Header("Retry-After", "1")
		abort(c, dto.ErrCodeIdempotencyBusy, "A request with this Idempotency-Key is in progress")
	default:
		c.Header(IdempotencyReplayedHeader, "true")
		c.Data(existing.StatusCode, "application/json; charset=utf-8", existing.Body)
		c.Abort()
	}
}

// shouldRelease reports whether a response must not be replayed: a retry
// could legitimately succeed after it
func shouldRelease(status int) bool {
	return status >= http.StatusInternalServerError ||
		status == http.StatusConflict ||
		status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout
}

func readBody(c *gin.Context) ([]byte, error) {
	if c.Request.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, err
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}

func scopeKey(c *gin.Context, key string) string {
	if op := GetOperatorID(c); op != nil {
		return op.String() + ":" + key
	}
	return "anonymous:" + key
}

// requestFingerprint hashes the route and the raw body with BLAKE2b-256
func requestFingerprint(c *gin.Context, body []byte) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(c.Request.Method))
	h.Write([]byte{0})
	h.Write([]byte(c.Request.URL.Path))
	h.Write([]byte{0})
	h.Write([]byte(c.Request.URL.RawQuery))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}
