package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"ms-invites/internal/gateway"
	"ms-invites/internal/logger"

	"github.com/go-chi/chi/v5"
)

const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type CommandHandler interface {
	Handle(ctx context.Context, chatID int64, cmd gateway.Command) gateway.Reply
}

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, markdown bool) error
	SendMediaGroup(ctx context.Context, chatID int64, photos []gateway.Media) error
}

// Deduper reports whether an update id is being seen for the first time.
type Deduper interface {
	MarkUpdateSeen(ctx context.Context, updateID int64) (bool, error)
}

// WebhookHandler receives Telegram updates, runs them through the gateway
// and delivers the reply. Once the update is decoded it always answers 200 so
// Telegram does not redeliver a request whose effects already happened.
type WebhookHandler struct {
	Commands CommandHandler
	Sender   Sender
	Dedupe   Deduper
	Secret   string
	// BotToken, when set, must match the {token} path segment.
	BotToken string
	Timeout  time.Duration
	Logger   *logger.Logger
}

func NewWebhookHandler(commands CommandHandler, sender Sender, dedupe Deduper, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		Commands: commands,
		Sender:   sender,
		Dedupe:   dedupe,
		Secret:   secret,
		Timeout:  55 * time.Second,
		Logger:   log,
	}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.BotToken != "" && subtle.ConstantTimeCompare([]byte(chi.URLParam(r, "token")), []byte(h.BotToken)) != 1 {
		http.NotFound(w, r)
		return
	}
	if h.Secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(h.Secret)) != 1 {
		h.Logger.Warn("WEBHOOK", "rejected update with bad secret token")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var update Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.Logger.Warn("WEBHOOK", fmt.Sprintf("undecodable update: %v", err))
		http.Error(w, "invalid update", http.StatusBadRequest)
		return
	}

	// The batch must finish even if Telegram drops the connection.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.Timeout)
	defer cancel()

	h.process(ctx, update)
	w.WriteHeader(http.StatusOK)
}

func (h *WebhookHandler) process(ctx context.Context, update Update) {
	msg := update.Message
	if msg == nil || msg.Text == "" {
		return
	}

	if h.Dedupe != nil {
		first, err := h.Dedupe.MarkUpdateSeen(ctx, update.UpdateID)
		if err != nil {
			h.Logger.Warn("WEBHOOK", fmt.Sprintf("dedupe unavailable for update %d: %v", update.UpdateID, err))
		} else if !first {
			h.Logger.Info("WEBHOOK", fmt.Sprintf("skipping redelivered update %d", update.UpdateID))
			return
		}
	}

	chatID := msg.Chat.ID
	reply := h.Commands.Handle(ctx, chatID, gateway.Parse(msg.Text))

	if len(reply.Media) > 0 {
		if err := h.Sender.SendMediaGroup(ctx, chatID, reply.Media); err != nil {
			h.Logger.Error("WEBHOOK", fmt.Sprintf("chat %d: sending %d images failed: %v", chatID, len(reply.Media), err))
		}
	}
	if reply.Text != "" {
		if err := h.Sender.SendMessage(ctx, chatID, reply.Text, reply.Markdown); err != nil {
			h.Logger.Error("WEBHOOK", fmt.Sprintf("chat %d: sending reply failed: %v", chatID, err))
		}
	}
}
