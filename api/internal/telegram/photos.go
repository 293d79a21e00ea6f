package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"quiz-ocr/api/internal/imaging"
)

type photoBatch struct {
	ChatID int64
	MIME   string

	mu     sync.Mutex
	images [][]byte
	timer  *time.Timer
	done   bool // taken by processBatch; later images start a new batch
}

func isImageDocument(d *tgbotapi.Document) bool {
	return strings.HasPrefix(d.MimeType, "image/")
}

func (r *Router) acceptImage(ctx context.Context, msg *tgbotapi.Message, fileID, mime string) {
	cid := msg.Chat.ID
	url, err := r.Bot.GetFileDirectURL(fileID)
	if err != nil {
		r.sendError(cid, err)
		return
	}
	data, err := r.Download(ctx, url)
	if err != nil {
		r.sendError(cid, fmt.Errorf("download: %w", err))
		return
	}

	if r.Debounce <= 0 {
		r.paste(ctx, cid, [][]byte{data}, mime)
		return
	}

	key := SessionID(cid)
	if msg.MediaGroupID != "" {
		key = "grp:" + msg.MediaGroupID
	}
	for {
		bi, _ := r.batches.LoadOrStore(key, &photoBatch{ChatID: cid, MIME: mime})
		b := bi.(*photoBatch)

		b.mu.Lock()
		if b.done {
			b.mu.Unlock()
			r.batches.CompareAndDelete(key, b)
			continue
		}
		b.images = append(b.images, data)
		if b.timer != nil {
			b.timer.Stop()
		}
		b.timer = time.AfterFunc(r.Debounce, func() { r.processBatch(context.WithoutCancel(ctx), key, b) })
		b.mu.Unlock()
		return
	}
}

func (r *Router) processBatch(ctx context.Context, key string, b *photoBatch) {
	r.batches.CompareAndDelete(key, b)
	b.mu.Lock()
	if b.done {
		b.mu.Unlock()
		return
	}
	b.done = true
	images := append([][]byte(nil), b.images...)
	b.mu.Unlock()
	if len(images) == 0 {
		return
	}
	r.paste(ctx, b.ChatID, images, b.MIME)
}

// paste stitches the images when there are several and runs them through the
// chat's session.
func (r *Router) paste(ctx context.Context, chatID int64, images [][]byte, mime string) {
	raw, err := imaging.Combine(images)
	if err != nil {
		r.sendError(chatID, fmt.Errorf("stitch: %w", err))
		return
	}
	if len(images) > 1 {
		mime = "image/png"
		r.Log.Info("album stitched", "chat", chatID, "parts", len(images))
	}
	img, err := imaging.Capture(raw, mime)
	if err != nil {
		r.sendError(chatID, err)
		return
	}

	id := SessionID(chatID)
	eng := r.Choice.Get(id)
	st := r.Sessions.GetOrCreate(id)

	ctx, cancel := context.WithTimeout(ctx, r.OCRTimeout)
	defer cancel()
	v, err := st.Paste(ctx, eng, img)
	if err != nil {
		r.Log.Warn("recognition failed", "chat", chatID, "engine", eng.Name(), "err", err)
		r.send(chatID, "⚠️ OCR failed: "+err.Error()+"\nUse /retry and send the screenshot again.")
		return
	}
	header := "📝 Recognized text:"
	if !v.Fresh {
		header = "📝 Same image as before:"
	}
	r.sendView(chatID, v, header)
}

func download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(b))
	}
	return io.ReadAll(resp.Body)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 60 * time.Second}
}
