// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultTokenInfoURL is Google's ID token introspection endpoint
const DefaultTokenInfoURL = "https://oauth2.googleapis.com/tokeninfo"

var ErrGoogleRejected = errors.New("google rejected id token")

// GoogleProfile is the identity extracted from a verified Google ID token
type GoogleProfile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// GoogleVerifier checks Google ID tokens against the tokeninfo endpoint
type GoogleVerifier struct {
	ClientID     string
	TokenInfoURL string
	Client       *http.Client
	Now          func() time.Time
}

func NewGoogleVerifier(clientID, tokenInfoURL string) *GoogleVerifier {
	if tokenInfoURL == "" {
		tokenInfoURL = DefaultTokenInfoURL
	}
	return &GoogleVerifier{
		ClientID:     clientID,
		TokenInfoURL: tokenInfoURL,
		Client:       &http.Client{Timeout: 10 * time.Second},
		Now:          time.Now,
	}
}

// tokeninfo returns every field as a string
type tokenInfo struct {
	Aud           string `json:"aud"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified string `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
	Exp           string `json:"exp"`
}

// Verify validates the ID token and returns the signed-in profile
func (v *GoogleVerifier) Verify(ctx context.Context, idToken string) (GoogleProfile, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return GoogleProfile{}, ErrMissingToken
	}

	endpoint, err := url.Parse(v.TokenInfoURL)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("invalid tokeninfo url: %w", err)
	}
	query := endpoint.Query()
	query.Set("id_token", idToken)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("build tokeninfo request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := v.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return GoogleProfile{}, fmt.Errorf("tokeninfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return GoogleProfile{}, fmt.Errorf("%w: tokeninfo status %d", ErrGoogleRejected, resp.StatusCode)
	}

	var info tokenInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return GoogleProfile{}, fmt.Errorf("decode tokeninfo: %w", err)
	}

	if v.ClientID != "" && info.Aud != v.ClientID {
		return GoogleProfile{}, fmt.Errorf("%w: audience mismatch", ErrGoogleRejected)
	}
	if info.Sub == "" {
		return GoogleProfile{}, fmt.Errorf("%w: missing subject", ErrGoogleRejected)
	}
	if info.EmailVerified != "true" {
		return GoogleProfile{}, fmt.Errorf("%w: email not verified", ErrGoogleRejected)
	}
	if info.Exp != "" {
		exp, err := strconv.ParseInt(info.Exp, 10, 64)
		if err != nil {
			return GoogleProfile{}, fmt.Errorf("%w: invalid exp", ErrGoogleRejected)
		}
		now := time.Now
		if v.Now != nil {
			now = v.Now
		}
		if !now().Before(time.Unix(exp, 0)) {
			return GoogleProfile{}, fmt.Errorf("%w: token expired", ErrGoogleRejected)
		}
	}

	return GoogleProfile{
		Subject: info.Sub,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
