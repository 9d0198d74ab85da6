package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/example/shafran-auth/internal/config"
)

// PlumProvider sends SMS through the Plum (myuzcard) API. The login token is
// cached and refreshed once when a request comes back 401.
type PlumProvider struct {
	cfg    config.PlumConfig
	client *http.Client

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

func NewPlumProvider(cfg config.PlumConfig, client *http.Client) *PlumProvider {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &PlumProvider{cfg: cfg, client: client}
}

func (p *PlumProvider) Name() string { return "plum" }

func (p *PlumProvider) Configured() bool {
	return p.cfg.Username != "" && p.cfg.Password != ""
}

type plumAuthResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}

func (p *PlumProvider) getToken(ctx context.Context, force bool) (string, error) {
	if !force {
		p.mu.RLock()
		if p.token != "" && time.Now().Before(p.tokenExpiry) {
			t := p.token
			p.mu.RUnlock()
			return t, nil
		}
		p.mu.RUnlock()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double-check after acquiring write lock.
	if !force && p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	payload, _ := json.Marshal(map[string]string{
		"username": p.cfg.Username,
		"password": p.cfg.Password,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/auth/login", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("plum auth request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("plum auth request: %w", err)
	}
	defer resp.Body.Close()

	body := readProviderBody(resp)
	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf("plum auth failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var authResp plumAuthResponse
	if err := json.Unmarshal(body, &authResp); err != nil {
		return "", fmt.Errorf("plum auth unmarshal: %w", err)
	}
	if authResp.Token == "" {
		return "", errors.New("plum auth: empty token")
	}

	p.token = authResp.Token
	if authResp.ExpiresIn > 0 {
		p.tokenExpiry = time.Now().Add(time.Duration(authResp.ExpiresIn)*time.Second - 30*time.Second)
	} else {
		p.tokenExpiry = time.Now().Add(55 * time.Minute)
	}
	return p.token, nil
}

func (p *PlumProvider) post(ctx context.Context, token, path string, payload []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, fmt.Errorf("plum request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("plum request: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, readProviderBody(resp), nil
}

func (p *PlumProvider) Deliver(ctx context.Context, msg SMSMessage) error {
	payload, err := json.Marshal(map[string]string{
		"phone":   msg.Phone,
		"message": msg.Text,
	})
	if err != nil {
		return fmt.Errorf("plum request marshal: %w", err)
	}

	token, err := p.getToken(ctx, false)
	if err != nil {
		return err
	}

	status, body, err := p.post(ctx, token, "/sms/send", payload)
	if err != nil {
		return err
	}

	// Stale token: log in again and repeat the same request once.
	if status == http.StatusUnauthorized {
		if token, err = p.getToken(ctx, true); err != nil {
			return err
		}
		if status, body, err = p.post(ctx, token, "/sms/send", payload); err != nil {
			return err
		}
	}

	if !isSuccess(status) {
		return fmt.Errorf("plum send sms: status %d, body: %s", status, string(body))
	}
	return nil
}
