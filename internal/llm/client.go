package llm

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/studybuddy/ingestion/internal/config"
)

// ModelClass selects between the cheap and the capable chat model; the
// concrete model names come from config.
type ModelClass int

const (
	Small ModelClass = iota
	Large
)

type Options struct {
	Class       ModelClass
	MaxTokens   int
	Temperature float32
}

// Chat is the one-shot completion surface the pipeline consumes. All
// methods degrade (empty string / nil) instead of returning errors; the
// orchestrator never fails a file because a model was unavailable.
type Chat interface {
	ChatOnce(ctx context.Context, system, user string, opts Options) string
	ChatJSON(ctx context.Context, system, user string, opts Options) any
	ChatJSONRobust(ctx context.Context, system, user string, opts Options) any
}

// Client talks to an OpenAI-compatible chat completions endpoint with
// stateless key rotation.
type Client struct {
	cfg  config.LLM
	http *http.Client
}

func NewClient(cfg config.LLM) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 30 * time.Second},
	}
}

// Available reports whether any API key is configured.
func (c *Client) Available() bool {
	return resolveKey(c.cfg) != ""
}

func (c *Client) model(class ModelClass) string {
	if class == Large {
		return c.cfg.LargeModel
	}
	return c.cfg.SmallModel
}

// api builds a provider client bound to the key resolved for this call.
// The underlying http.Client is shared so connections are reused.
func (c *Client) api(key string) *openai.Client {
	cc := openai.DefaultConfig(key)
	cc.BaseURL = c.cfg.BaseURL
	cc.HTTPClient = c.http
	return openai.NewClientWithConfig(cc)
}

func (c *Client) complete(ctx context.Context, system, user string, opts Options, raw bool) string {
	key := resolveKey(c.cfg)
	if key == "" {
		return ""
	}

	req := openai.ChatCompletionRequest{
		Model: c.model(opts.Class),
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}
	if opts.Temperature > 0 {
		req.Temperature = opts.Temperature
	}

	resp, err := c.api(key).CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Warn("chat completion failed", "model", req.Model, "error", err)
		return ""
	}
	if len(resp.Choices) == 0 {
		return ""
	}
	content := resp.Choices[0].Message.Content
	if raw {
		return content
	}
	return Normalize(content)
}

// ChatOnce returns normalized one-shot text, or "" on any failure.
func (c *Client) ChatOnce(ctx context.Context, system, user string, opts Options) string {
	return c.complete(ctx, system, user, opts, false)
}

// ChatJSON returns the parsed JSON value of a one-shot completion, or nil
// when the reply could not be coerced into JSON.
func (c *Client) ChatJSON(ctx context.Context, system, user string, opts Options) any {
	raw := c.complete(ctx, system, user, opts, true)
	if raw == "" {
		return nil
	}
	v, ok := ExtractJSON(raw)
	if !ok {
		slog.Warn("chat reply was not parseable JSON", "len", len(raw))
		return nil
	}
	return v
}

// ChatJSONRobust retries a failed JSON completion once on the large model
// with a higher token budget.
func (c *Client) ChatJSONRobust(ctx context.Context, system, user string, opts Options) any {
	if v := c.ChatJSON(ctx, system, user, opts); v != nil {
		return v
	}
	retry := opts
	retry.Class = Large
	if retry.MaxTokens > 0 {
		retry.MaxTokens *= 2
	}
	return c.ChatJSON(ctx, system, user, retry)
}
