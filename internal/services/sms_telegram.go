package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/example/shafran-auth/internal/config"
)

// TelegramGatewayProvider delivers codes to the Telegram account registered
// with the phone number, through the Telegram Gateway API.
type TelegramGatewayProvider struct {
	cfg    config.TelegramConfig
	client *http.Client
}

func NewTelegramGatewayProvider(cfg config.TelegramConfig, client *http.Client) *TelegramGatewayProvider {
	return &TelegramGatewayProvider{cfg: cfg, client: client}
}

func (p *TelegramGatewayProvider) Name() string { return "telegram" }

func (p *TelegramGatewayProvider) Configured() bool {
	return p.cfg.Token != ""
}

type gatewayRequest struct {
	PhoneNumber string `json:"phone_number"`
	Code        string `json:"code"`
}

type gatewayResponse struct {
	Ok     bool   `json:"ok"`
	Error  string `json:"error"`
	Result struct {
		RequestID string `json:"request_id"`
	} `json:"result"`
}

func (p *TelegramGatewayProvider) Deliver(ctx context.Context, msg SMSMessage) error {
	payload, err := json.Marshal(gatewayRequest{PhoneNumber: msg.Phone, Code: msg.Code})
	if err != nil {
		return fmt.Errorf("telegram gateway marshal: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/sendVerificationMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("telegram gateway request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.Token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram gateway request: %w", err)
	}
	defer resp.Body.Close()

	var out gatewayResponse
	_ = json.Unmarshal(readProviderBody(resp), &out)
	if resp.StatusCode != http.StatusOK || !out.Ok {
		return fmt.Errorf("telegram gateway: status %d, ok %v: %s", resp.StatusCode, out.Ok, out.Error)
	}
	return nil
}
