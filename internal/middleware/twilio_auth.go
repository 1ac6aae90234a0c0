package middleware

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SignatureValidator checks an X-Twilio-Signature header
type SignatureValidator interface {
	ValidateRequest(url string, params map[string]string, signature string) bool
}

// ValidateTwilioSignature validates that the webhook request is from Twilio.
// publicBaseURL is the externally visible origin Twilio signs; when empty the
// request's own scheme and host are used.
func ValidateTwilioSignature(validator SignatureValidator, publicBaseURL string, logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		signature := c.Get("X-Twilio-Signature")
		if signature == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing Twilio signature",
			})
		}

		formParams := make(map[string]string)
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			formParams[string(key)] = string(value)
		})

		fullURL := getFullURL(c, publicBaseURL)
		if !validator.ValidateRequest(fullURL, formParams, signature) {
			logger.Warn("rejected webhook with invalid signature", "url", fullURL, "ip", c.IP())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid signature",
			})
		}

		return c.Next()
	}
}

// getFullURL constructs the URL Twilio signed, including any query string
func getFullURL(c *fiber.Ctx, publicBaseURL string) string {
	if publicBaseURL != "" {
		return strings.TrimRight(publicBaseURL, "/") + c.OriginalURL()
	}
	return fmt.Sprintf("%s://%s%s", c.Protocol(), c.Hostname(), c.OriginalURL())
}
