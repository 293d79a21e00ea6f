package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-ocr/api/internal/answers"
)

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	cid := msg.Chat.ID
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		r.send(cid, helpText)
	case "prompt":
		r.cmdPrompt(cid, args)
	case "text":
		r.sendView(cid, r.state(cid).View(), "📝 Current text:")
	case "save":
		r.cmdSave(cid, args)
	case "delete":
		r.cmdDelete(cid, args)
	case "list":
		r.cmdList(cid)
	case "export":
		r.cmdExport(cid)
	case "retry":
		r.state(cid).Retry()
		r.send(cid, "🔁 Send the same screenshot again to re-run OCR.")
	case "reset":
		r.Sessions.Delete(SessionID(cid))
		r.Choice.Forget(SessionID(cid))
		r.send(cid, "Session cleared.")
	case "engine":
		r.cmdEngine(cid, args)
	default:
		r.send(cid, "Unknown command. See /help")
	}
}

func (r *Router) cmdPrompt(chatID int64, args string) {
	st := r.state(chatID)
	switch strings.ToLower(args) {
	case "on":
		r.sendView(chatID, st.SetPrompt(true), "Prompt prefix on.")
	case "off":
		r.sendView(chatID, st.SetPrompt(false), "Prompt prefix off.")
	default:
		state := "off"
		if st.View().AddPrompt {
			state = "on"
		}
		r.send(chatID, "Prompt prefix is "+state+". Usage: /prompt on|off")
	}
}

// slotArg parses a 1-based slot number into a ledger index.
func slotArg(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", answers.ErrInvalidSlot, s)
	}
	return n - 1, nil
}

func (r *Router) slotMessage(chatID int64, err error) {
	if errors.Is(err, answers.ErrInvalidSlot) {
		r.send(chatID, fmt.Sprintf("Slot must be a number from 1 to %d.", r.state(chatID).View().Slots))
		return
	}
	r.sendError(chatID, err)
}

func (r *Router) cmdSave(chatID int64, args string) {
	num, answer, _ := strings.Cut(args, " ")
	answer = strings.TrimSpace(answer)
	if num == "" || answer == "" {
		r.send(chatID, "Usage: /save N answer")
		return
	}
	i, err := slotArg(num)
	if err != nil {
		r.slotMessage(chatID, err)
		return
	}
	if _, err := r.state(chatID).Save(i, answer); err != nil {
		r.slotMessage(chatID, err)
		return
	}
	r.send(chatID, fmt.Sprintf("✅ Saved answer for question %d.", i+1))
}

func (r *Router) cmdDelete(chatID int64, args string) {
	if args == "" {
		r.send(chatID, "Usage: /delete N")
		return
	}
	i, err := slotArg(args)
	if err != nil {
		r.slotMessage(chatID, err)
		return
	}
	if err := r.state(chatID).Delete(i); err != nil {
		r.slotMessage(chatID, err)
		return
	}
	r.send(chatID, fmt.Sprintf("🗑 Cleared question %d.", i+1))
}

func (r *Router) cmdList(chatID int64) {
	var b strings.Builder
	for _, s := range r.state(chatID).Slots() {
		fmt.Fprintf(&b, "%d. ", s.Index+1)
		if s.Record == nil {
			b.WriteString("N/A\n")
			continue
		}
		q := strings.Join(strings.Fields(s.Record.Recognized), " ")
		if rs := []rune(q); len(rs) > 60 {
			q = string(rs[:60]) + "…"
		}
		fmt.Fprintf(&b, "%s | %s\n", s.Record.Answer, q)
	}
	r.send(chatID, truncate(b.String()))
}

func (r *Router) cmdExport(chatID int64) {
	doc, err := r.state(chatID).Export(r.Now())
	if err != nil {
		r.Log.Error("export failed", "chat", chatID, "err", err)
		r.sendError(chatID, err)
		return
	}
	up := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: doc.Filename, Bytes: doc.HTML})
	up.Caption = "Saved answers"
	if _, err := r.Bot.Send(up); err != nil {
		r.Log.Warn("telegram upload failed", "chat", chatID, "err", err)
		r.sendError(chatID, err)
	}
}

func (r *Router) cmdEngine(chatID int64, args string) {
	id := SessionID(chatID)
	if args == "" {
		cur := r.Choice.Get(id)
		r.send(chatID, fmt.Sprintf("Current engine: %s (%s)\nAvailable: %s",
			cur.Name(), cur.GetModel(), strings.Join(r.Engines.Available(), " | ")))
		return
	}
	name, _, _ := strings.Cut(args, " ")
	eng, err := r.Engines.Get(name)
	if err != nil {
		r.sendError(chatID, err)
		return
	}
	r.Choice.Set(id, eng)
	r.send(chatID, fmt.Sprintf("✅ Engine: %s (%s)", eng.Name(), eng.GetModel()))
}
