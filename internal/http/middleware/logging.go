package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"storefront/internal/logging"
)

const bodyLimit = 8 * 1024

var redactedKeys = map[string]struct{}{
	"password":      {},
	"authorization": {},
	"token":         {},
	"secret":        {},
	"signature":     {},
}

type bodyLogWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func (w *bodyLogWriter) Write(b []byte) (int, error) {
	if remain := bodyLimit - w.buf.Len(); remain > 0 {
		if len(b) > remain {
			w.buf.Write(b[:remain])
		} else {
			w.buf.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

func redact(x any) any {
	switch v := x.(type) {
	case map[string]any:
		for k, val := range v {
			if _, ok := redactedKeys[strings.ToLower(k)]; ok {
				v[k] = "***redacted***"
				continue
			}
			v[k] = redact(val)
		}
		return v
	case []any:
		for i := range v {
			v[i] = redact(v[i])
		}
		return v
	}
	return x
}

func redactJSON(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var m any
	if err := json.Unmarshal(raw, &m); err != nil {
		return "<non-json body>"
	}
	b, err := json.Marshal(redact(m))
	if err != nil {
		return ""
	}
	return string(b)
}

func isJSON(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}

// Logging logs every request with redacted JSON bodies and stores a request-scoped
// logger on the gin context.
func Logging(base *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader("X-Request-Id")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Header("X-Request-Id", reqID)

		l := base.With(
			"req_id", reqID,
			"method", c.Request.Method,
			"route", c.FullPath(),
			"remote", c.ClientIP(),
		)
		logging.With(c, l)

		var reqBody string
		if isJSON(c.GetHeader("Content-Type")) && c.Request.Body != nil {
			orig := c.Request.Body
			raw, err := io.ReadAll(io.LimitReader(orig, bodyLimit+1))
			// handlers read the full original stream, unredacted
			c.Request.Body = struct {
				io.Reader
				io.Closer
			}{io.MultiReader(bytes.NewReader(raw), orig), orig}
			if err == nil {
				if len(raw) > bodyLimit {
					reqBody = "...truncated..."
				} else {
					reqBody = redactJSON(raw)
				}
			}
		}

		blw := &bodyLogWriter{ResponseWriter: c.Writer, buf: &bytes.Buffer{}}
		c.Writer = blw

		c.Next()

		status := c.Writer.Status()
		attrs := []any{
			"status", status,
			"dur_ms", time.Since(start).Milliseconds(),
			"resp_bytes", c.Writer.Size(),
		}
		if reqBody != "" {
			attrs = append(attrs, "req_body", reqBody)
		}
		if isJSON(c.Writer.Header().Get("Content-Type")) && blw.buf.Len() < bodyLimit {
			if body := redactJSON(blw.buf.Bytes()); body != "" {
				attrs = append(attrs, "resp_body", body)
			}
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "error", c.Errors.String())
		}

		switch {
		case status >= http.StatusInternalServerError:
			l.Error("http_request", attrs...)
		case status >= http.StatusBadRequest:
			l.Warn("http_request", attrs...)
		default:
			l.Info("http_request", attrs...)
		}
	}
}
