package config

import (
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(map[string]string{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.AppPort != "8080" || cfg.DBDriver != "postgres" {
		t.Fatalf("port/driver = %q/%q", cfg.AppPort, cfg.DBDriver)
	}
	if cfg.TokenExpires != 720*time.Hour {
		t.Fatalf("token ttl = %v, want 720h", cfg.TokenExpires)
	}
	if cfg.RateLimitMax != 200 || cfg.RateLimitWindow != 15*time.Minute {
		t.Fatalf("rate limit = %d per %v", cfg.RateLimitMax, cfg.RateLimitWindow)
	}

	v := cfg.Verification
	if v.PhonePrefix != "+998" || v.CodeTTL != 5*time.Minute || v.Cooldown != time.Minute || v.MaxAttempts != 5 {
		t.Fatalf("verification = %+v", v)
	}

	if !reflect.DeepEqual(cfg.SMS.Providers, []string{"twilio", "eskiz", "log"}) {
		t.Fatalf("providers = %v", cfg.SMS.Providers)
	}
	if cfg.SMS.Timeout != 10*time.Second {
		t.Fatalf("sms timeout = %v, want 10s", cfg.SMS.Timeout)
	}
	if cfg.SMS.Eskiz.BaseURL != "https://notify.eskiz.uz/api" {
		t.Fatalf("eskiz base url = %q", cfg.SMS.Eskiz.BaseURL)
	}
}

func TestParseProviderSettings(t *testing.T) {
	t.Parallel()

	cfg, err := Parse(map[string]string{
		"DB_DRIVER":                  "sqlite",
		"SMS_PROVIDERS":              "plum,telegram",
		"SMS_TIMEOUT":                "3s",
		"SMS_TWILIO_SID":             "AC1",
		"SMS_ESKIZ_API_KEY":          "eskiz-key",
		"SMS_PLUM_USERNAME":          "user",
		"SMS_ALIYUN_ACCESS_KEY_ID":   "ak",
		"SMS_TELEGRAM_GATEWAY_TOKEN": "tg",
		"CODE_COOLDOWN":              "90s",
		"CODE_MAX_ATTEMPTS":          "3",
	})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if cfg.DBDriver != "sqlite" {
		t.Fatalf("driver = %q", cfg.DBDriver)
	}
	if !reflect.DeepEqual(cfg.SMS.Providers, []string{"plum", "telegram"}) {
		t.Fatalf("providers = %v", cfg.SMS.Providers)
	}
	if cfg.SMS.Timeout != 3*time.Second {
		t.Fatalf("timeout = %v", cfg.SMS.Timeout)
	}
	if cfg.SMS.Twilio.SID != "AC1" || cfg.SMS.Eskiz.APIKey != "eskiz-key" || cfg.SMS.Plum.Username != "user" {
		t.Fatalf("credentials = %+v", cfg.SMS)
	}
	if cfg.SMS.Aliyun.AccessKeyID != "ak" || cfg.SMS.Telegram.Token != "tg" {
		t.Fatalf("credentials = %+v", cfg.SMS)
	}
	if cfg.Verification.Cooldown != 90*time.Second || cfg.Verification.MaxAttempts != 3 {
		t.Fatalf("verification = %+v", cfg.Verification)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	t.Parallel()

	cases := map[string]map[string]string{
		"driver":   {"DB_DRIVER": "mysql"},
		"attempts": {"CODE_MAX_ATTEMPTS": "0"},
		"template": {"SMS_TEMPLATE": "no placeholder"},
		"ttl":      {"JWT_TTL": "nonsense"},
	}
	for name, environment := range cases {
		if _, err := Parse(environment); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	_, err := Parse(map[string]string{"DB_DRIVER": "mysql"})
	if err == nil || !strings.Contains(err.Error(), "mysql") {
		t.Fatalf("err = %v, want driver named", err)
	}
}
