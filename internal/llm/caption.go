package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"
)

const captionSystemPrompt = "You are an expert vision captioner. Produce a precise, " +
	"information-dense caption of the image. Do not include conversational phrases, " +
	"prefaces, meta commentary, or apologies. Write a single concise paragraph with " +
	"concrete entities, text in the image, and notable details."

const captionUserPrompt = "Caption this image at the finest level of detail. " +
	"Include any visible text verbatim. Return only the caption text."

// Captioner produces short captions for page images.
type Captioner interface {
	CaptionImage(ctx context.Context, image []byte) string
}

// CaptionImage captions a JPEG/PNG blob through the multimodal chat
// endpoint. Returns "" when no key is configured or the call fails;
// captioning is best-effort and never blocks ingestion.
func (c *Client) CaptionImage(ctx context.Context, image []byte) string {
	key := resolveKey(c.cfg)
	if key == "" || len(image) == 0 {
		return ""
	}

	dataURL := fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(image))
	req := openai.ChatCompletionRequest{
		Model:       c.cfg.CaptionModel,
		MaxTokens:   512,
		Temperature: 0.2,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: captionSystemPrompt},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: captionUserPrompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL},
					},
				},
			},
		},
	}

	resp, err := c.api(key).CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Warn("image caption failed", "error", err)
		return ""
	}
	if len(resp.Choices) == 0 {
		return ""
	}
	return Normalize(resp.Choices[0].Message.Content)
}
