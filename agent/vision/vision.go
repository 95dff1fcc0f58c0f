// Package vision analyzes an attached garment image ahead of the streaming
// graph. It is best-effort: the turn proceeds without a note when analysis
// fails.
package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openaisdk "github.com/openai/openai-go"
)

const analyzePrompt = "Describe this clothing item for a stylist: category, " +
	"sub-category, colors, fabric, fit, and any distinctive details. " +
	"Answer in two sentences."

// Analyzer runs multimodal image analysis through the OpenAI-compatible API.
type Analyzer struct {
	client *openaisdk.Client
	model  string
}

func NewAnalyzer(client *openaisdk.Client, model string) (*Analyzer, error) {
	if client == nil {
		return nil, errors.New("vision: client is required")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("vision: model is required")
	}
	return &Analyzer{client: client, model: strings.TrimSpace(model)}, nil
}

// Analyze returns a short textual description of the garment in the image.
func (a *Analyzer) Analyze(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", errors.New("vision: image is empty")
	}

	mime := http.DetectContentType(image)
	url := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)

	resp, err := a.client.Chat.Completions.New(ctx, openaisdk.ChatCompletionNewParams{
		Model: openaisdk.ChatModel(a.model),
		Messages: []openaisdk.ChatCompletionMessageParamUnion{
			openaisdk.UserMessage([]openaisdk.ChatCompletionContentPartUnionParam{
				openaisdk.TextContentPart(analyzePrompt),
				openaisdk.ImageContentPart(openaisdk.ChatCompletionContentPartImageImageURLParam{
					URL: url,
				}),
			}),
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision analyze: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision analyze: empty response")
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("vision analyze: empty content")
	}
	return content, nil
}
