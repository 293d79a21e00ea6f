// Package telegram is the chat front of the tool: a pasted screenshot is
// recognized, the text can be corrected, answers go into slots and the whole
// set can be exported as an HTML document.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-ocr/api/internal/ocr"
	"quiz-ocr/api/internal/session"
)

const defaultDebounce = 1200 * time.Millisecond

// BotAPI is the part of *tgbotapi.BotAPI the router calls.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

type Router struct {
	Bot      BotAPI
	Sessions *session.Store
	Engines  *ocr.Engines
	Choice   *ocr.Manager
	Log      *slog.Logger

	// Download fetches a Telegram file URL. Defaults to an HTTP GET.
	Download func(ctx context.Context, url string) ([]byte, error)
	// Debounce is how long to wait for more photos of an album. Zero
	// processes every photo at once.
	Debounce   time.Duration
	OCRTimeout time.Duration
	Now        func() time.Time

	batches sync.Map // key -> *photoBatch
}

func NewRouter(bot BotAPI, sessions *session.Store, engs *ocr.Engines, choice *ocr.Manager, log *slog.Logger) *Router {
	return &Router{
		Bot:        bot,
		Sessions:   sessions,
		Engines:    engs,
		Choice:     choice,
		Log:        log,
		Download:   download,
		Debounce:   defaultDebounce,
		OCRTimeout: 180 * time.Second,
		Now:        time.Now,
	}
}

// SessionID is the session key of a chat.
func SessionID(chatID int64) string {
	return "chat:" + strconv.FormatInt(chatID, 10)
}

func (r *Router) state(chatID int64) *session.State {
	return r.Sessions.GetOrCreate(SessionID(chatID))
}

func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery != nil {
		r.handleCallback(ctx, *upd.CallbackQuery)
		return
	}
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	cid := msg.Chat.ID

	switch {
	case msg.IsCommand():
		r.handleCommand(ctx, msg)
	case len(msg.Photo) > 0:
		ph := msg.Photo[len(msg.Photo)-1]
		r.acceptImage(ctx, msg, ph.FileID, "image/jpeg")
	case msg.Document != nil && isImageDocument(msg.Document):
		r.acceptImage(ctx, msg, msg.Document.FileID, msg.Document.MimeType)
	case msg.Text != "":
		st := r.state(cid)
		if !st.AwaitEdit() {
			r.send(cid, "Send a screenshot of a question, or /help.")
			return
		}
		r.sendView(cid, st.Edit(msg.Text), "✏️ Text updated.")
	}
}

func (r *Router) send(chatID int64, text string) {
	if _, err := r.Bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		r.Log.Warn("telegram send failed", "chat", chatID, "err", err)
	}
}

func (r *Router) sendError(chatID int64, err error) {
	r.send(chatID, fmt.Sprintf("⚠️ %v", err))
}
