package clientip

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(Get(c)) })

	cases := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "203.0.113.7", "X-Forwarded-For": "10.0.0.1"}, "203.0.113.7"},
		{"cloudflare garbage", map[string]string{"CF-Connecting-IP": "nope", "X-Forwarded-For": "10.0.0.1"}, "10.0.0.1"},
		{"forwarded", map[string]string{"X-Forwarded-For": "198.51.100.2, 10.0.0.1"}, "198.51.100.2"},
		{"forwarded garbage", map[string]string{"X-Forwarded-For": "not-an-ip", "X-Real-IP": "2001:db8::1"}, "2001:db8::1"},
		{"socket", nil, "0.0.0.0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			raw, _ := io.ReadAll(resp.Body)
			assert.Equal(t, tc.want, string(raw))
		})
	}
}
