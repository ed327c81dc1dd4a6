package security

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

type HeadersConfig struct {
	// ScriptOrigins are extra origins the dashboard page may load scripts
	// from (the chart library CDN).
	ScriptOrigins []string
	IsDevelopment bool
}

func HeadersMiddleware(cfg HeadersConfig) fiber.Handler {
	scriptSrc := "'self' 'unsafe-inline'"
	if len(cfg.ScriptOrigins) > 0 {
		scriptSrc += " " + strings.Join(cfg.ScriptOrigins, " ")
	}

	csp := "default-src 'self'; " +
		"script-src " + scriptSrc + "; " +
		"style-src 'self' 'unsafe-inline'; " +
		"img-src 'self' data:; " +
		"connect-src 'self'; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self'"

	return func(c *fiber.Ctx) error {
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("Content-Security-Policy", csp)

		if !cfg.IsDevelopment {
			c.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		return c.Next()
	}
}
