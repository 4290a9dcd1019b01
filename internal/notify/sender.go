package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Message struct {
	ChatID int64
	Text   string
	// MapButton attaches the "open map" web app button.
	MapButton bool
}

// Sender delivers one message to one chat. It returns an error when the
// message was not delivered.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const mapButtonText = "🌐 Открыть онлайн-карту"

// TelegramSender talks to the Bot API sendMessage method.
type TelegramSender struct {
	client *http.Client
	apiURL string
	token  string
	mapURL string
}

func NewTelegramSender(apiURL, token, mapURL string, timeout time.Duration) *TelegramSender {
	return &TelegramSender{
		client: &http.Client{Timeout: timeout},
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		mapURL: mapURL,
	}
}

type webApp struct {
	URL string `json:"url"`
}

type inlineButton struct {
	Text   string  `json:"text"`
	WebApp *webApp `json:"web_app,omitempty"`
}

type replyMarkup struct {
	InlineKeyboard [][]inlineButton `json:"inline_keyboard"`
}

type sendMessageRequest struct {
	ChatID      int64        `json:"chat_id"`
	Text        string       `json:"text"`
	ParseMode   string       `json:"parse_mode"`
	ReplyMarkup *replyMarkup `json:"reply_markup,omitempty"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

func (s *TelegramSender) Send(ctx context.Context, msg Message) error {
	payload := sendMessageRequest{
		ChatID:    msg.ChatID,
		Text:      msg.Text,
		ParseMode: "HTML",
	}
	if msg.MapButton && s.mapURL != "" {
		payload.ReplyMarkup = &replyMarkup{
			InlineKeyboard: [][]inlineButton{{{Text: mapButtonText, WebApp: &webApp{URL: s.mapURL}}}},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.apiURL, s.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// the error text carries the url, and with it the token
		return fmt.Errorf("send message to %d: request failed", msg.ChatID)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var result apiResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("send message to %d: status %d", msg.ChatID, resp.StatusCode)
	}
	if !result.OK {
		return fmt.Errorf("send message to %d: %d %s", msg.ChatID, result.ErrorCode, result.Description)
	}
	return nil
}

// LogSender only logs messages. Used when no bot token is configured.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, msg Message) error {
	slog.Info("notification", "user_id", msg.ChatID, "text", msg.Text)
	return nil
}
