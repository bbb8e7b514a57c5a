// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements RedactingLogger, the access logger of the booking
// API. Booking forms carry names, phone numbers and e-mail addresses, and
// payment callbacks carry signatures, so nothing is logged verbatim:
//
//   - request and response bodies are never logged
//   - e-mail addresses, phone numbers and UUIDs in the query string and
//     header values are replaced with [REDACTED:<kind>]
//   - signature query parameters are replaced with [REDACTED]
//   - Authorization, Cookie, Set-Cookie, X-Razorpay-Signature and any
//     configured headers are masked entirely
//
// It also attaches a request-scoped zerolog.Logger (carrying request_id) to
// both the Gin context and the request's context.Context, so services can
// log through zerolog.Ctx(ctx).
package middleware

import (
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures additional scrub behavior for RedactingLogger.
//
// MaskHeaders lists extra header names (case-insensitive) whose values are
// replaced with "[REDACTED]".
type RedactOptions struct {
	MaskHeaders []string
}

var (
	uuidRE  = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits-only so UUID hex segments never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
	// signature=..., razorpay_signature=...
	signatureRE = regexp.MustCompile(`(?i)((?:^|&)[a-z_]*signature=)[^&]*`)
)

// redact scrubs PII from s. UUIDs go first so the phone pattern cannot eat
// their digit groups.
func redact(s string) string {
	if s == "" {
		return s
	}
	s = signatureRE.ReplaceAllString(s, "${1}[REDACTED]")
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	s = phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
	return s
}

// RedactingLogger returns a Gin middleware that logs every request with
// sensitive values scrubbed. Level is INFO, WARN for 4xx and ERROR for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	maskHeaders := map[string]struct{}{
		"authorization":        {},
		"cookie":               {},
		"set-cookie":           {},
		"x-razorpay-signature": {},
	}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			maskHeaders[h] = struct{}{}
		}
	}

	return func(c *gin.Context) {
		start := time.Now()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		safeQuery := truncate(redact(c.Request.URL.RawQuery), maxQueryLogLength)

		safeHeaders := make(map[string]string, len(c.Request.Header))
		for k, vv := range c.Request.Header {
			if _, ok := maskHeaders[strings.ToLower(k)]; ok {
				safeHeaders[k] = "[REDACTED]"
				continue
			}
			safeHeaders[k] = redact(strings.Join(vv, ", "))
		}

		rid := RequestIDFrom(c)
		reqLog := log.With().Str("request_id", rid).Logger()
		c.Set(loggerKey, &reqLog)
		c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		ev := reqLog.Info()
		switch {
		case status >= 500:
			ev = reqLog.Error()
		case status >= 400:
			ev = reqLog.Warn()
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", redact(c.Errors.String()))
		}

		ev.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("action", ActionFrom(c)).
			Str("query", safeQuery).
			Str("remote_ip", c.ClientIP()).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", safeHeaders).
			Msg("http_request")
	}
}
