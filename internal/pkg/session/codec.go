package session

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"time"
)

// TokenVersion is the only payload version accepted by Verify.
const TokenVersion = 1

// TTL is the lifetime of a session token and its cookie.
const TTL = 12 * time.Hour

var encoding = base64.RawURLEncoding.Strict()

// Payload is the signed content of a session token.
type Payload struct {
	Version   int    `json:"v"`
	Subject   string `json:"sub"`
	ExpiresAt int64  `json:"exp"`
}

// IssuedAt derives the issue time from the expiry.
func (p *Payload) IssuedAt() time.Time {
	return time.Unix(p.ExpiresAt, 0).Add(-TTL)
}

// Codec signs and verifies session tokens of the form
// base64url(payload) "." base64url(HMAC-SHA256(secret, payload)).
type Codec struct {
	secret []byte
}

func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	return &Codec{secret: []byte(secret)}, nil
}

// Sign serialises p as compact JSON and appends its MAC.
func (c *Codec) Sign(p Payload) (string, error) {
	if p.Subject == "" {
		return "", errors.New("session subject is required")
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return encoding.EncodeToString(raw) + "." + encoding.EncodeToString(c.mac(raw)), nil
}

// Issue signs a fresh token for subject valid for TTL from now.
func (c *Codec) Issue(subject string, now time.Time) (string, time.Time, error) {
	exp := now.Add(TTL).Truncate(time.Second)
	token, err := c.Sign(Payload{
		Version:   TokenVersion,
		Subject:   strings.ToLower(subject),
		ExpiresAt: exp.Unix(),
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, exp, nil
}

// Verify checks the MAC over the received payload bytes and decodes them
// strictly. Expiry is not checked here.
func (c *Codec) Verify(token string) (*Payload, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, false
	}
	raw, err := encoding.DecodeString(parts[0])
	if err != nil {
		return nil, false
	}
	sig, err := encoding.DecodeString(parts[1])
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(sig, c.mac(raw)) {
		return nil, false
	}
	return decodePayload(raw)
}

func (c *Codec) mac(raw []byte) []byte {
	m := hmac.New(sha256.New, c.secret)
	m.Write(raw)
	return m.Sum(nil)
}

func decodePayload(raw []byte) (*Payload, bool) {
	var fields struct {
		Version   *int    `json:"v"`
		Subject   *string `json:"sub"`
		ExpiresAt *int64  `json:"exp"`
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&fields); err != nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	if fields.Version == nil || fields.Subject == nil || fields.ExpiresAt == nil {
		return nil, false
	}
	if *fields.Version != TokenVersion || *fields.Subject == "" {
		return nil, false
	}
	return &Payload{
		Version:   *fields.Version,
		Subject:   *fields.Subject,
		ExpiresAt: *fields.ExpiresAt,
	}, true
}
