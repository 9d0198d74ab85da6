package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/example/shafran-auth/internal/config"
)

// TwilioProvider sends SMS through the Twilio Messages REST API.
type TwilioProvider struct {
	cfg    config.TwilioConfig
	client *http.Client
}

func NewTwilioProvider(cfg config.TwilioConfig, client *http.Client) *TwilioProvider {
	return &TwilioProvider{cfg: cfg, client: client}
}

func (p *TwilioProvider) Name() string { return "twilio" }

func (p *TwilioProvider) Configured() bool {
	return p.cfg.SID != "" && p.cfg.Token != "" && p.cfg.From != ""
}

type twilioMessage struct {
	SID     string `json:"sid"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *TwilioProvider) Deliver(ctx context.Context, msg SMSMessage) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(p.cfg.BaseURL, "/"), url.PathEscape(p.cfg.SID))

	form := url.Values{
		"To":   {msg.Phone},
		"From": {p.cfg.From},
		"Body": {msg.Text},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio request build: %w", err)
	}
	req.SetBasicAuth(p.cfg.SID, p.cfg.Token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	body := readProviderBody(resp)
	var out twilioMessage
	_ = json.Unmarshal(body, &out)

	if !isSuccess(resp.StatusCode) {
		return fmt.Errorf("twilio: status %d, code %d: %s", resp.StatusCode, out.Code, out.Message)
	}
	if out.SID == "" {
		return errors.New("twilio: response has no message sid")
	}
	return nil
}
