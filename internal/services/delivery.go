package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/example/shafran-auth/internal/config"
)

const (
	defaultSMSTemplate = "Sizning tasdiqlash kodingiz: %s. Kod 5 daqiqa amal qiladi."
	defaultSMSTimeout  = 10 * time.Second
	maxProviderBody    = 64 << 10
)

var providerHTTPClient = &http.Client{Timeout: 15 * time.Second}

// SMSMessage is one outbound verification message.
type SMSMessage struct {
	Phone string
	Code  string
	Text  string
}

// SMSProvider is a single delivery network.
type SMSProvider interface {
	Name() string
	// Configured reports whether the credentials the provider needs are present.
	Configured() bool
	Deliver(ctx context.Context, msg SMSMessage) error
}

// Sender delivers a code to a phone.
type Sender interface {
	Send(ctx context.Context, phone, code string) (bool, error)
}

// DeliveryRouter sends codes through the provider picked at startup.
//
// The provider is the first configured entry of the priority list. A runtime
// failure of that provider is reported to the caller; it never falls through
// to the next entry.
type DeliveryRouter struct {
	provider SMSProvider
	template string
	timeout  time.Duration
}

// NewDeliveryRouter builds the provider list described by cfg and selects one.
func NewDeliveryRouter(cfg config.SMSConfig) (*DeliveryRouter, error) {
	candidates := make([]SMSProvider, 0, len(cfg.Providers))
	for _, name := range cfg.Providers {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		provider, err := newProvider(name, cfg)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, provider)
	}
	return NewDeliveryRouterWith(candidates, cfg.Template, cfg.Timeout), nil
}

// NewDeliveryRouterWith selects among already constructed providers.
func NewDeliveryRouterWith(providers []SMSProvider, template string, timeout time.Duration) *DeliveryRouter {
	if template == "" {
		template = defaultSMSTemplate
	}
	if timeout <= 0 {
		timeout = defaultSMSTimeout
	}

	selected, ok := lo.Find(providers, func(p SMSProvider) bool {
		return p.Configured()
	})
	if !ok {
		slog.Warn("no sms provider configured, codes will only be logged",
			"candidates", lo.Map(providers, func(p SMSProvider, _ int) string { return p.Name() }))
		selected = NewLogProvider()
	}
	slog.Info("sms provider selected", "provider", selected.Name())

	return &DeliveryRouter{provider: selected, template: template, timeout: timeout}
}

func newProvider(name string, cfg config.SMSConfig) (SMSProvider, error) {
	switch name {
	case "twilio":
		return NewTwilioProvider(cfg.Twilio, providerHTTPClient), nil
	case "eskiz":
		return NewEskizProvider(cfg.Eskiz, providerHTTPClient), nil
	case "plum":
		return NewPlumProvider(cfg.Plum, providerHTTPClient), nil
	case "aliyun":
		return NewAliyunProvider(cfg.Aliyun)
	case "telegram":
		return NewTelegramGatewayProvider(cfg.Telegram, providerHTTPClient), nil
	case "log":
		return NewLogProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
}

// Provider returns the name of the selected provider.
func (d *DeliveryRouter) Provider() string {
	return d.provider.Name()
}

// Send delivers code to phone within the configured timeout.
func (d *DeliveryRouter) Send(ctx context.Context, phone, code string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	msg := SMSMessage{
		Phone: phone,
		Code:  code,
		Text:  fmt.Sprintf(d.template, code),
	}
	if err := d.provider.Deliver(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "sms provider error", "provider", d.provider.Name(), "phone", phone, "error", err)
		return false, fmt.Errorf("%s: %w", d.provider.Name(), err)
	}
	return true, nil
}

func readProviderBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	return body
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
