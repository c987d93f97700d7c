// Package avatar builds profile picture URLs for accounts.
package avatar

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/ManuelReschke/FormFox/app/models"
)

const DefaultSize = 200

// GravatarURL returns the Gravatar image for email. Gravatar accepts the
// SHA-256 of the normalised address; "mp" is served when none is registered.
func GravatarURL(email string, size int) string {
	if size <= 0 {
		size = DefaultSize
	}
	sum := sha256.Sum256([]byte(models.NormalizeEmail(email)))
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=mp", hex.EncodeToString(sum[:]), size)
}
