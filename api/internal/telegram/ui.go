package telegram

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-ocr/api/internal/session"
)

const (
	cbPromptOn  = "prompt_on"
	cbPromptOff = "prompt_off"
	cbEdit      = "edit"
	cbRetry     = "retry"

	maxMessage = 3900
)

const helpText = `Send a screenshot of a question and I will read it, math included.
Long question? Send it as an album of several screenshots and I will stitch them.

/prompt on|off - add or remove the instruction prefix
/text - show the current text
/save N answer - save an answer with the current text in slot N
/delete N - clear slot N
/list - show all slots
/export - download every slot as an HTML page
/retry - run OCR again on the next paste of the same image
/engine [name] - show or switch the OCR engine
/reset - start over`

func resultKeyboard(addPrompt bool) tgbotapi.InlineKeyboardMarkup {
	prompt := tgbotapi.NewInlineKeyboardButtonData("Prompt: off", cbPromptOn)
	if addPrompt {
		prompt = tgbotapi.NewInlineKeyboardButtonData("Prompt: on", cbPromptOff)
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		prompt,
		tgbotapi.NewInlineKeyboardButtonData("Edit", cbEdit),
		tgbotapi.NewInlineKeyboardButtonData("Retry", cbRetry),
	))
}

func truncate(s string) string {
	if r := []rune(s); len(r) > maxMessage {
		return string(r[:maxMessage]) + "…"
	}
	return s
}

func viewText(v session.View, header string) string {
	body := strings.TrimSpace(v.Text)
	if body == "" {
		body = "(no text)"
	}
	return header + "\n\n" + truncate(body)
}

// sendView replies with the text and the result keyboard.
func (r *Router) sendView(chatID int64, v session.View, header string) {
	msg := tgbotapi.NewMessage(chatID, viewText(v, header))
	msg.ReplyMarkup = resultKeyboard(v.AddPrompt)
	if _, err := r.Bot.Send(msg); err != nil {
		r.Log.Warn("telegram send failed", "chat", chatID, "err", err)
	}
}
