package handle

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-ocr/api/internal/compose"
	"quiz-ocr/api/internal/logger"
	"quiz-ocr/api/internal/ocr"
	"quiz-ocr/api/internal/session"
)

type fakeEngine struct {
	name  string
	text  string
	err   error
	calls int
}

func (f *fakeEngine) Name() string     { return f.name }
func (f *fakeEngine) GetModel() string { return "test" }
func (f *fakeEngine) Recognize(context.Context, []byte, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type fixture struct {
	srv      *httptest.Server
	gemini   *fakeEngine
	tess     *fakeEngine
	sessions *session.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		gemini: &fakeEngine{name: "gemini", text: "What is 2+2?"},
		tess:   &fakeEngine{name: "tesseract", text: "plain"},
	}
	engs := &ocr.Engines{Gemini: f.gemini, Tesseract: f.tess}
	choice := ocr.NewManager(f.gemini)
	f.sessions = session.NewStore(session.Options{Slots: 3}, session.WithOnEvict(choice.Forget))
	t.Cleanup(func() { _ = f.sessions.Close() })

	h := New(f.sessions, engs, choice, logger.Discard())
	h.now = func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }
	r := chi.NewRouter()
	h.Register(r)
	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, rd)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

func (f *fixture) create(t *testing.T) string {
	t.Helper()
	resp, body := f.do(t, http.MethodPost, "/v1/sessions", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var out struct {
		ID     string `json:"id"`
		Slots  int    `json:"slots"`
		Engine string `json:"engine"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, 3, out.Slots)
	assert.Equal(t, "gemini", out.Engine)
	return out.ID
}

func pngBase64(t *testing.T, c color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 2; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return base64.StdEncoding.EncodeToString(buf.Bytes())
}

func decodeView(t *testing.T, body []byte) viewResponse {
	t.Helper()
	var v viewResponse
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestSessionFlow(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	base := "/v1/sessions/" + id

	img := map[string]string{"image": "data:image/png;base64," + pngBase64(t, color.White)}
	resp, body := f.do(t, http.MethodPost, base+"/image", img)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeView(t, body)
	assert.Equal(t, compose.PromptPrefix+"What is 2+2?", v.Text)
	assert.True(t, v.Fresh)

	// same image again: no second engine call
	_, body = f.do(t, http.MethodPost, base+"/image", img)
	assert.False(t, decodeView(t, body).Fresh)
	assert.Equal(t, 1, f.gemini.calls)

	_, body = f.do(t, http.MethodPut, base+"/prompt", map[string]bool{"enabled": false})
	assert.Equal(t, "What is 2+2?", decodeView(t, body).Text)

	_, body = f.do(t, http.MethodPut, base+"/text", map[string]string{"text": "What is 2+2? (edited)"})
	assert.Equal(t, "What is 2+2? (edited)", decodeView(t, body).Text)

	resp, body = f.do(t, http.MethodPut, base+"/answers/1", map[string]string{"answer": "4"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var saved answerView
	require.NoError(t, json.Unmarshal(body, &saved))
	assert.Equal(t, answerView{Number: 1, Filled: true, Answer: "4", Recognized: "What is 2+2? (edited)"}, saved)

	_, body = f.do(t, http.MethodGet, base+"/answers", nil)
	var list struct {
		Answers []answerView `json:"answers"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Answers, 3)
	assert.True(t, list.Answers[0].Filled)
	assert.False(t, list.Answers[1].Filled)

	resp, body = f.do(t, http.MethodGet, base+"/export", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `attachment; filename="2026-10-16.html"`, resp.Header.Get("Content-Disposition"))
	assert.Contains(t, string(body), "<h3>Question 1</h3>")
	assert.Contains(t, string(body), "(edited)")

	_, body = f.do(t, http.MethodGet, base+"/export?format=link", nil)
	var link map[string]string
	require.NoError(t, json.Unmarshal(body, &link))
	assert.Equal(t, "2026-10-16.html", link["filename"])
	assert.True(t, strings.HasPrefix(link["href"], "data:text/html;base64,"))

	resp, _ = f.do(t, http.MethodDelete, base+"/answers/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = f.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = f.do(t, http.MethodGet, base+"/text", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPasteFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.gemini.err = errors.New("quota")
	id := f.create(t)

	resp, body := f.do(t, http.MethodPost, "/v1/sessions/"+id+"/image", map[string]string{"image": pngBase64(t, color.Black)})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	v := decodeView(t, body)
	assert.Equal(t, compose.PromptPrefix, v.Text)
	assert.Contains(t, v.Error, "quota")

	// retry forgets the fingerprint, so the same image runs again
	f.gemini.err = nil
	f.do(t, http.MethodPost, "/v1/sessions/"+id+"/retry", nil)
	_, body = f.do(t, http.MethodPost, "/v1/sessions/"+id+"/image", map[string]string{"image": pngBase64(t, color.Black)})
	assert.NotEqual(t, compose.PromptPrefix, decodeView(t, body).Text)
	assert.Equal(t, 2, f.gemini.calls)
}

func TestEngineSwitch(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	base := "/v1/sessions/" + id

	resp, body := f.do(t, http.MethodPut, base+"/engine", map[string]string{"name": "tesseract"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "tesseract", decodeView(t, body).Engine)

	f.do(t, http.MethodPost, base+"/image", map[string]string{"image": pngBase64(t, color.White)})
	assert.Equal(t, 1, f.tess.calls)
	assert.Equal(t, 0, f.gemini.calls)

	resp, body = f.do(t, http.MethodPut, base+"/engine", map[string]string{"name": "gpt"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, string(body), "unknown OCR engine")
}

func TestBadRequests(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	base := "/v1/sessions/" + id

	resp, _ := f.do(t, http.MethodGet, "/v1/sessions/nope/text", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	for _, n := range []string{"0", "4", "x"} {
		resp, _ = f.do(t, http.MethodPut, base+"/answers/"+n, map[string]string{"answer": "a"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, n)
		resp, _ = f.do(t, http.MethodDelete, base+"/answers/"+n, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, n)
	}

	resp, _ = f.do(t, http.MethodPost, base+"/image", map[string]string{"image": "%%%"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPost, base+"/image", map[string]string{"image": base64.StdEncoding.EncodeToString([]byte("text"))})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = f.do(t, http.MethodPut, base+"/prompt", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	id := f.create(t)
	f.do(t, http.MethodPut, "/v1/sessions/"+id+"/text", map[string]string{"text": "$a+b$"})
	resp, body := f.do(t, http.MethodGet, "/v1/sessions/"+id+"/preview", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Contains(t, out["html"], "<math")
}
