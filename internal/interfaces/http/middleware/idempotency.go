package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloudpos/backend/internal/domain/shared"
	"github.com/cloudpos/backend/internal/infrastructure/logger"
	"github.com/cloudpos/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const maxIdempotencyKeyLength = 128

// storedResponse is the cached outcome of a completed request
type storedResponse struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes POST requests carrying an Idempotency-Key safe to
// retry. The first request reserves tenant:key; a concurrent duplicate gets
// 409 DUPLICATE_REQUEST and a later duplicate replays the stored response
// with Idempotent-Replayed: true. Server errors release the key so the
// client can retry. Store failures fail open.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		requestID := c.GetString(logger.GinRequestIDKey)
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", requestID))
			return
		}

		scope := "anonymous"
		if p := GetPrincipal(c); p != nil {
			scope = p.TenantID.String()
		}
		storeKey := scope + ":" + key
		ctx := c.Request.Context()
		log := logger.GetGinLogger(c).With(zap.String("idempotency_key", key))

		reserved, err := store.MarkProcessed(ctx, storeKey, ttl)
		if err != nil {
			log.Warn("Idempotency store unavailable, processing without dedupe", zap.Error(err))
			c.Next()
			return
		}

		if !reserved {
			payload, err := store.GetResult(ctx, storeKey)
			if err == nil && payload != nil {
				var stored storedResponse
				if err := json.Unmarshal(payload, &stored); err == nil {
					if stored.Method != c.Request.Method || stored.Path != c.Request.URL.Path {
						c.AbortWithStatusJSON(http.StatusUnprocessableEntity, dto.NewErrorResponseWithRequestID(
							"IDEMPOTENCY_KEY_REUSED", "Idempotency-Key was used for a different request", requestID))
						return
					}
					log.Info("Replaying idempotent response", zap.Int("status", stored.Status))
					c.Header(HeaderReplayed, "true")
					c.Data(stored.Status, stored.ContentType, stored.Body)
					c.Abort()
					return
				}
			}
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest, "A request with this Idempotency-Key is already being processed", requestID))
			return
		}

		writer := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = writer
		c.Next()

		status := writer.Status()
		// transient outcomes must stay retryable under the same key
		if status >= 500 || status == http.StatusUnauthorized || status == http.StatusTooManyRequests {
			if err := store.Release(ctx, storeKey); err != nil {
				log.Warn("Failed to release idempotency key", zap.Error(err))
			}
			return
		}

		payload, err := json.Marshal(storedResponse{
			Method:      c.Request.Method,
			Path:        c.Request.URL.Path,
			Status:      status,
			ContentType: writer.Header().Get("Content-Type"),
			Body:        writer.body.Bytes(),
		})
		if err == nil {
			err = store.SaveResult(ctx, storeKey, payload, ttl)
		}
		if err != nil {
			log.Warn("Failed to store idempotent response", zap.Error(err))
		}
	}
}
