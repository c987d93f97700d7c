// Package clientip resolves the address of the client behind proxies.
package clientip

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Get determines the client address considering proxies. Cloudflare's
// header wins over X-Forwarded-For, which wins over the socket address.
func Get(c *fiber.Ctx) string {
	if cfIP := strings.TrimSpace(c.Get("CF-Connecting-IP")); net.ParseIP(cfIP) != nil {
		return cfIP
	}

	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		// the first entry is the original client
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); net.ParseIP(first) != nil {
			return first
		}
	}

	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); net.ParseIP(realIP) != nil {
		return realIP
	}

	// ::ffff:192.168.1.1 is an IPv4 address in IPv6 notation
	return strings.TrimPrefix(c.IP(), "::ffff:")
}
