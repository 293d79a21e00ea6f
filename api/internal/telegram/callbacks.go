package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func (r *Router) handleCallback(_ context.Context, cb tgbotapi.CallbackQuery) {
	if cb.Message == nil || cb.Message.Chat == nil {
		return
	}
	cid := cb.Message.Chat.ID
	_, _ = r.Bot.Request(tgbotapi.NewCallback(cb.ID, "")) // ack
	st := r.state(cid)

	switch cb.Data {
	case cbPromptOn, cbPromptOff:
		v := st.SetPrompt(cb.Data == cbPromptOn)
		edit := tgbotapi.NewEditMessageTextAndMarkup(cid, cb.Message.MessageID,
			viewText(v, "📝 Recognized text:"), resultKeyboard(v.AddPrompt))
		if _, err := r.Bot.Send(edit); err != nil {
			r.Log.Warn("telegram edit failed", "chat", cid, "err", err)
		}
	case cbEdit:
		st.SetAwaitEdit(true)
		r.send(cid, "Send the corrected text as your next message.")
	case cbRetry:
		st.Retry()
		r.send(cid, "🔁 Send the same screenshot again to re-run OCR.")
	}
}
