package secretbox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBox(t *testing.T, secret string) *Box {
	t.Helper()
	b, err := New(secret)
	require.NoError(t, err)
	return b
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New("")
	assert.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	b := newBox(t, "encryption-secret")

	for _, plain := range []string{"", "atlassian-token", "päßwörd ✓ 日本語", string(make([]byte, 4096))} {
		blob, err := b.Encrypt(plain)
		require.NoError(t, err)

		got, err := b.Decrypt(blob)
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestLayout(t *testing.T) {
	b := newBox(t, "encryption-secret")

	blob, err := b.Encrypt("abc")
	require.NoError(t, err)
	assert.NotContains(t, blob, "=")

	raw, err := base64.RawURLEncoding.DecodeString(blob)
	require.NoError(t, err)
	assert.Len(t, raw, nonceSize+tagSize+3)
}

func TestFreshNonce(t *testing.T) {
	b := newBox(t, "encryption-secret")

	first, err := b.Encrypt("same")
	require.NoError(t, err)
	second, err := b.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestDecryptFailures(t *testing.T) {
	b := newBox(t, "encryption-secret")
	blob, err := b.Encrypt("atlassian-token")
	require.NoError(t, err)

	last := blob[len(blob)-1]
	altered := byte('A')
	if last == 'A' {
		altered = 'B'
	}

	cases := map[string]string{
		"empty":         "",
		"not base64":    "***",
		"too short":     base64.RawURLEncoding.EncodeToString(make([]byte, nonceSize+tagSize-1)),
		"altered tail":  blob[:len(blob)-1] + string(altered),
		"truncated":     blob[:len(blob)-4],
		"only nonceTag": blob[:36],
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := b.Decrypt(in)
			assert.ErrorIs(t, err, ErrDecrypt)
			assert.Empty(t, out)
			assert.NotContains(t, err.Error(), "atlassian-token")
		})
	}

	_, err = newBox(t, "other-secret").Decrypt(blob)
	assert.ErrorIs(t, err, ErrDecrypt)
}
