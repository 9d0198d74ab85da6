package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// TelegramService sends admin notifications through a Telegram bot.
type TelegramService struct {
	botToken    string
	adminChatID string
	apiURL      string
	client      *http.Client
}

// NewTelegramService creates a new TelegramService.
func NewTelegramService(botToken, adminChatID string) *TelegramService {
	return &TelegramService{
		botToken:    botToken,
		adminChatID: adminChatID,
		apiURL:      "https://api.telegram.org",
		client:      providerHTTPClient,
	}
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// SendMessage sends a message to specified chat.
func (s *TelegramService) SendMessage(ctx context.Context, chatID, text string) error {
	if s.botToken == "" {
		slog.DebugContext(ctx, "telegram bot token not configured")
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.botToken)

	body, err := json.Marshal(telegramMessage{
		ChatID:    chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned status %d", resp.StatusCode)
	}

	return nil
}

// SendToAdmin sends a message to the admin chat.
func (s *TelegramService) SendToAdmin(ctx context.Context, text string) error {
	if s.adminChatID == "" {
		slog.DebugContext(ctx, "telegram admin chat id not configured")
		return nil
	}
	return s.SendMessage(ctx, s.adminChatID, text)
}

// UserNotification describes a freshly registered user.
type UserNotification struct {
	UserID    uint
	Name      string
	Phone     string
	CreatedAt time.Time
}

// NotifyNewUser tells the admin chat about a new registration.
func (s *TelegramService) NotifyNewUser(ctx context.Context, n UserNotification) error {
	if s.adminChatID == "" {
		return nil
	}

	message := fmt.Sprintf(`<b>👤 YANGI FOYDALANUVCHI!</b>
<b>🆔 ID:</b> %d
<b>📛 Ism:</b> %s
<b>📞 Telefon:</b> %s
<b>🕒 Vaqt:</b> %s
━━━━━━━━━━━━━━━━━━`,
		n.UserID,
		html.EscapeString(n.Name),
		html.EscapeString(n.Phone),
		n.CreatedAt.Format("2006-01-02 15:04"),
	)

	return s.SendToAdmin(ctx, strings.TrimSpace(message))
}
