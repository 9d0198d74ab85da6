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

// EskizProvider sends SMS through notify.eskiz.uz.
type EskizProvider struct {
	cfg    config.EskizConfig
	client *http.Client
}

func NewEskizProvider(cfg config.EskizConfig, client *http.Client) *EskizProvider {
	return &EskizProvider{cfg: cfg, client: client}
}

func (p *EskizProvider) Name() string { return "eskiz" }

func (p *EskizProvider) Configured() bool {
	return p.cfg.APIKey != ""
}

type eskizSendRequest struct {
	MobilePhone string `json:"mobile_phone"`
	Message     string `json:"message"`
	From        string `json:"from"`
}

func (p *EskizProvider) Deliver(ctx context.Context, msg SMSMessage) error {
	payload, err := json.Marshal(eskizSendRequest{
		MobilePhone: strings.TrimPrefix(msg.Phone, "+"),
		Message:     msg.Text,
		From:        p.cfg.Sender,
	})
	if err != nil {
		return fmt.Errorf("eskiz request marshal: %w", err)
	}

	url := strings.TrimRight(p.cfg.BaseURL, "/") + "/message/sms/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("eskiz request build: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("eskiz request: %w", err)
	}
	defer resp.Body.Close()

	body := readProviderBody(resp)
	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("eskiz: status %d, body: %s", resp.StatusCode, string(body))
	}
	return nil
}
