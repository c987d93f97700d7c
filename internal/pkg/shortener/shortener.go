package shortener

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// Base62 alphabet used for public form slugs.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// FormSlugLength is the length of slugs used in public form URLs (/f/:slug).
const FormSlugLength = 10

// GenerateSecureSlug creates a cryptographically secure random Base62 slug.
func GenerateSecureSlug(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("invalid slug length: %d", length)
	}

	// Rejection sampling to avoid modulo bias.
	// 248 is the largest multiple of 62 below 256.
	const maxRandomByte = 248

	slug := make([]byte, length)
	buf := make([]byte, length*2)
	written := 0

	for written < length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read secure random bytes: %w", err)
		}

		for _, b := range buf {
			if b >= maxRandomByte {
				continue
			}
			slug[written] = alphabet[int(b)%len(alphabet)]
			written++
			if written == length {
				break
			}
		}
	}

	return string(slug), nil
}

// FormSlug returns a new public form slug.
func FormSlug() (string, error) {
	return GenerateSecureSlug(FormSlugLength)
}

// IsValidSlug reports whether s could have been produced by FormSlug.
// Used to reject junk path parameters before hitting the database.
func IsValidSlug(s string) bool {
	if len(s) != FormSlugLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(alphabet, s[i]) == -1 {
			return false
		}
	}
	return true
}
