package controllers

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/FormFox/internal/pkg/validation"
)

// HashIP returns the salted SHA-256 of ip as stored on submissions.
func HashIP(salt, ip string) string {
	if ip == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(salt + "|" + ip))
	return hex.EncodeToString(sum[:])
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{"error": code, "message": message})
}

// internalError logs err under component and answers a generic 500.
func internalError(c *fiber.Ctx, component string, err error) error {
	log.Errorf("[%s] %s %s failed: %v", component, c.Method(), c.Route().Path, err)
	return jsonError(c, fiber.StatusInternalServerError, "internal_server_error", "Something went wrong")
}

func notFound(c *fiber.Ctx, what string) error {
	return jsonError(c, fiber.StatusNotFound, "not_found", what+" not found")
}

// lookupError maps a repository error to 404 or a generic 500.
func lookupError(c *fiber.Ctx, component, what string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(c, what)
	}
	return internalError(c, component, err)
}

// bindJSON decodes the request body into dst and validates it. On failure
// the response is already written and the returned error is what the handler
// must return; ok reports whether dst is usable.
func bindJSON(c *fiber.Ctx, dst interface{}) (bool, error) {
	if err := c.BodyParser(dst); err != nil {
		return false, jsonError(c, fiber.StatusBadRequest, "bad_request", "Malformed request body")
	}
	if err := validation.Struct(dst); err != nil {
		return false, validationFailed(c, err)
	}
	return true, nil
}

func validationFailed(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
		"error":  "validation_failed",
		"fields": validation.FieldErrors(err),
	})
}

func limitReached(c *fiber.Ctx, current, max int64) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error":   "limit_reached",
		"current": current,
		"max":     max,
	})
}
