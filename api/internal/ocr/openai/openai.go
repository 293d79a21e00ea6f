package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"quiz-ocr/api/internal/ocr"
)

type Engine struct {
	APIKey string
	Model  string
	client openai.Client
}

func New(key, model string, opts ...openaiopt.RequestOption) *Engine {
	clientOpts := []openaiopt.RequestOption{
		openaiopt.WithAPIKey(key),
		openaiopt.WithHTTPClient(&http.Client{Timeout: 60 * time.Second}),
	}
	clientOpts = append(clientOpts, opts...)
	return &Engine{
		APIKey: key,
		Model:  model,
		client: openai.NewClient(clientOpts...),
	}
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Recognize(ctx context.Context, img []byte, mime string) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}
	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(img)

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			{
				OfSystem: &openai.ChatCompletionSystemMessageParam{
					Content: openai.ChatCompletionSystemMessageParamContentUnion{
						OfString: openai.String(ocr.Instruction),
					},
				},
			},
			{
				OfUser: &openai.ChatCompletionUserMessageParam{
					Content: openai.ChatCompletionUserMessageParamContentUnion{
						OfArrayOfContentParts: []openai.ChatCompletionContentPartUnionParam{
							{OfText: &openai.ChatCompletionContentPartTextParam{Text: "Transcribe this question."}},
							{OfImageURL: &openai.ChatCompletionContentPartImageParam{
								ImageURL: openai.ChatCompletionContentPartImageImageURLParam{
									URL:    dataURL,
									Detail: "high",
								},
							}},
						},
					},
				},
			},
		},
		Temperature: openai.Float(0),
	}

	resp, err := e.client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai ocr: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai ocr: empty response")
	}
	out := ocr.CleanText(resp.Choices[0].Message.Content)
	if strings.TrimSpace(out) == "" {
		return "", errors.New("openai ocr: empty response")
	}
	return out, nil
}
