// Package lark provides clients for the Lark/Feishu project Open API and
// its separate work-hour service, plus the cached plugin token both ride
// on.
package lark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/notetrack/notetrack/internal/apierr"
	"github.com/notetrack/notetrack/internal/debug"
	"github.com/notetrack/notetrack/internal/statestore"
)

// tokenSafetyMargin is subtracted from the server TTL so a token is
// refreshed before it can expire mid-request.
const tokenSafetyMargin = 60 * time.Second

type tokenBlob struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}

// TokenSource exchanges plugin credentials for a bearer token and caches
// it until shortly before expiry. There is deliberately no concurrency
// guard: overlapping refreshes are an accepted idempotent race, costing
// at worst one redundant exchange.
type TokenSource struct {
	BaseURL      string
	PluginID     string
	PluginSecret string
	HTTPClient   *http.Client

	store     *statestore.Store
	token     string
	expiresAt time.Time
	now       func() time.Time
}

// NewTokenSource builds a token source, warm-started from the persisted
// token blob when one exists.
func NewTokenSource(store *statestore.Store, baseURL, pluginID, pluginSecret string) *TokenSource {
	ts := &TokenSource{
		BaseURL:      baseURL,
		PluginID:     pluginID,
		PluginSecret: pluginSecret,
		HTTPClient:   &http.Client{Timeout: 30 * time.Second},
		store:        store,
		now:          time.Now,
	}
	if store != nil {
		var blob tokenBlob
		if _, err := store.Load(statestore.BlobLarkToken, &blob); err != nil {
			debug.Logf("lark: discarding corrupt token blob: %v", err)
		} else if blob.Token != "" {
			ts.token = blob.Token
			ts.expiresAt = time.Unix(blob.ExpiresAt, 0)
		}
	}
	return ts
}

// Token returns the cached token while valid, refreshing it otherwise.
func (ts *TokenSource) Token(ctx context.Context) (string, error) {
	if ts.token != "" && ts.now().Before(ts.expiresAt) {
		return ts.token, nil
	}
	return ts.refresh(ctx)
}

func (ts *TokenSource) refresh(ctx context.Context) (string, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"plugin_id":     ts.PluginID,
		"plugin_secret": ts.PluginSecret,
		"type":          0,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	var token string
	var ttl time.Duration

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, "POST",
			ts.BaseURL+"/open_api/authen/plugin_token", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := ts.HTTPClient.Do(req)
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			apiErr := &apierr.Error{Service: "lark", StatusCode: resp.StatusCode, Body: string(body)}
			if resp.StatusCode >= 500 {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		var result struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
			Data struct {
				Token      string `json:"token"`
				ExpireTime int64  `json:"expire_time"` // seconds
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &result); err != nil {
			return backoff.Permanent(fmt.Errorf("parse token response: %w", err))
		}
		if result.Code != 0 {
			return backoff.Permanent(fmt.Errorf("lark token exchange failed: code %d: %s", result.Code, result.Msg))
		}

		token = result.Data.Token
		ttl = time.Duration(result.Data.ExpireTime) * time.Second
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		return "", fmt.Errorf("lark token exchange: %w", err)
	}

	ts.token = token
	ts.expiresAt = ts.now().Add(ttl - tokenSafetyMargin)
	ts.persist()
	return ts.token, nil
}

func (ts *TokenSource) persist() {
	if ts.store == nil {
		return
	}
	blob := tokenBlob{Token: ts.token, ExpiresAt: ts.expiresAt.Unix()}
	if err := ts.store.Save(statestore.BlobLarkToken, blob); err != nil {
		debug.Logf("lark: token persist failed: %v", err)
	}
}
