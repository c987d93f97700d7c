package hcaptcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ManuelReschke/FormFox/internal/pkg/env"
)

const DefaultVerifyURL = "https://hcaptcha.com/siteverify"

type Response struct {
	Success     bool     `json:"success"`
	ChallengeTS string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes"`
}

// Verifier checks hCaptcha tokens. A verifier without secret is disabled
// and accepts every request.
type Verifier struct {
	Secret     string
	VerifyURL  string
	HTTPClient *http.Client
}

// NewFromEnv reads HCAPTCHA_SECRET.
func NewFromEnv() *Verifier {
	return &Verifier{
		Secret:     env.GetEnv("HCAPTCHA_SECRET", ""),
		VerifyURL:  DefaultVerifyURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Verifier) Enabled() bool {
	return v != nil && v.Secret != ""
}

func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	if !v.Enabled() {
		return true, nil
	}
	if token == "" {
		return false, errors.New("hCaptcha token is empty")
	}

	formData := url.Values{
		"secret":   {v.Secret},
		"response": {token},
	}
	if remoteIP != "" {
		formData.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.VerifyURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.HTTPClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("failed to send request to hCaptcha API: %w", err)
	}
	defer resp.Body.Close()

	var response Response
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return false, fmt.Errorf("failed to decode hCaptcha API response: %w", err)
	}

	if !response.Success {
		errorMsg := "hCaptcha validation failed"
		if len(response.ErrorCodes) > 0 {
			errorMsg = errorMsg + ": " + strings.Join(response.ErrorCodes, ", ")
		}
		return false, errors.New(errorMsg)
	}

	return true, nil
}
