package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTelegramSender_Send(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		io.WriteString(w, `{"ok":true,"result":{}}`)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL+"/", "TOKEN", "https://map.example", time.Second)
	err := s.Send(context.Background(), Message{ChatID: 42, Text: "<b>hi</b>", MapButton: true})
	require.NoError(t, err)

	assert.Equal(t, float64(42), got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
	markup := got["reply_markup"].(map[string]any)
	button := markup["inline_keyboard"].([]any)[0].([]any)[0].(map[string]any)
	assert.Equal(t, mapButtonText, button["text"])
	assert.Equal(t, "https://map.example", button["web_app"].(map[string]any)["url"])
}

func TestTelegramSender_NoButton(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "TOKEN", "https://map.example", time.Second)
	require.NoError(t, s.Send(context.Background(), Message{ChatID: 1, Text: "x"}))
	_, ok := got["reply_markup"]
	assert.False(t, ok)
}

func TestTelegramSender_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "TOKEN", "", time.Second)
	err := s.Send(context.Background(), Message{ChatID: 7, Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "blocked by the user")
}

func TestTelegramSender_ErrorHidesToken(t *testing.T) {
	s := NewTelegramSender("http://127.0.0.1:1", "SECRET", "", 100*time.Millisecond)
	err := s.Send(context.Background(), Message{ChatID: 7, Text: "x"})
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "SECRET")
}

func TestTelegramSender_BanNoticeParses(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		// Telegram refuses unknown tags in HTML mode
		if strings.Contains(got["text"].(string), "<не") {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: can't parse entities"}`)
			return
		}
		io.WriteString(w, `{"ok":true}`)
	}))
	defer srv.Close()

	s := NewTelegramSender(srv.URL, "TOKEN", "https://map.example", time.Second)
	require.NoError(t, s.Send(context.Background(), Message{ChatID: 42, Text: RenderBan(true, "")}))
	assert.Equal(t, "HTML", got["parse_mode"])
	assert.Contains(t, got["text"], "&lt;не указано&gt;")
}
