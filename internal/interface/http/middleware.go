package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/classquest/classquest/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// requestID attaches a UUID to each request, honoring one supplied by the
// caller, and threads it through the request context for log correlation.
func (s *Server) requestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Request().Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			c.Response().Header().Set(requestIDHeader, id)

			ctx := logger.WithContext(c.Request().Context(), s.log.WithRequestID(id))
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// requestLogger emits one structured line per request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			s.log.Info("request",
				logger.F("method", c.Request().Method),
				logger.F("path", c.Request().URL.Path),
				logger.F("status", c.Response().Status),
				logger.F("request_id", c.Response().Header().Get(requestIDHeader)),
				logger.Latency(time.Since(start)),
			)
			return nil
		}
	}
}

// editorOnly gates mutating routes behind the editor bearer token. The
// configured value is a bcrypt hash, never the token itself. With no hash
// configured the API is read-only and every mutation is refused.
func (s *Server) editorOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if s.cfg.EditorTokenHash == "" {
				return echo.NewHTTPError(http.StatusForbidden, "server is running read-only")
			}
			token := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if token == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "editor token required")
			}
			if err := bcrypt.CompareHashAndPassword([]byte(s.cfg.EditorTokenHash), []byte(token)); err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid editor token")
			}
			return next(c)
		}
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
