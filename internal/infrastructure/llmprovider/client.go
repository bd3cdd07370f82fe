package llmprovider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"jan-server/services/claims-api/internal/domain/llm"
)

// Config configures the OpenAI-compatible model service client.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client implements the llm.Provider interface on top of go-openai.
type Client struct {
	client *openai.Client
}

// NewClient creates a streaming chat completion client.
func NewClient(cfg Config) *Client {
	config := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		config.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 75 * time.Second
	}
	config.HTTPClient = &http.Client{Transport: newTransport(timeout)}
	return &Client{client: openai.NewClientWithConfig(config)}
}

// newTransport bounds connecting and waiting for response headers only.
// The streamed body may run longer than timeout; the caller's context ends it.
func newTransport(timeout time.Duration) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return transport
}

// CreateChatCompletionStream opens a streamed /chat/completions request.
func (c *Client) CreateChatCompletionStream(ctx context.Context, req llm.ChatCompletionRequest) (llm.Stream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, toOpenAIRequest(req))
	if err != nil {
		return nil, mapError(err)
	}
	return &openAIStream{stream: stream}, nil
}

// Ensure interface compliance.
var _ llm.Provider = (*Client)(nil)

type openAIStream struct {
	stream *openai.ChatCompletionStream
}

// Recv returns io.EOF unchanged once the upstream sends [DONE].
func (s *openAIStream) Recv() (*llm.ChatCompletionDelta, error) {
	resp, err := s.stream.Recv()
	if err != nil {
		return nil, mapError(err)
	}
	return fromOpenAIDelta(resp), nil
}

func (s *openAIStream) Close() error {
	return s.stream.Close()
}

func toOpenAIRequest(req llm.ChatCompletionRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:    req.Model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		Stream:   true,
	}
	if req.Temperature != nil {
		out.Temperature = float32(*req.Temperature)
		// go-openai omits a zero temperature, which would fall back to the API default of 1.
		if out.Temperature == 0 {
			out.Temperature = math.SmallestNonzeroFloat32
		}
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}

	for _, msg := range req.Messages {
		m := openai.ChatCompletionMessage{
			Role:       msg.Role,
			Content:    msg.Content,
			ToolCallID: msg.ToolCallID,
		}
		for _, call := range msg.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, openai.ToolCall{
				ID:   call.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      call.Function.Name,
					Arguments: string(call.Function.Arguments),
				},
			})
		}
		out.Messages = append(out.Messages, m)
	}

	for _, def := range req.Tools {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Function.Name,
				Description: def.Function.Description,
				Parameters:  def.Function.Parameters,
			},
		})
	}
	return out
}

func fromOpenAIDelta(resp openai.ChatCompletionStreamResponse) *llm.ChatCompletionDelta {
	delta := &llm.ChatCompletionDelta{
		Choices: make([]llm.ChatCompletionDeltaChoice, 0, len(resp.Choices)),
	}
	for _, choice := range resp.Choices {
		msg := llm.ChatMessage{
			Role:    choice.Delta.Role,
			Content: choice.Delta.Content,
		}
		for _, call := range choice.Delta.ToolCalls {
			var args json.RawMessage
			if call.Function.Arguments != "" {
				args = json.RawMessage(call.Function.Arguments)
			}
			msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
				Index: call.Index,
				ID:    call.ID,
				Type:  string(call.Type),
				Function: llm.ToolFunction{
					Name:      call.Function.Name,
					Arguments: args,
				},
			})
		}
		delta.Choices = append(delta.Choices, llm.ChatCompletionDeltaChoice{
			Index:        choice.Index,
			Delta:        msg,
			FinishReason: string(choice.FinishReason),
		})
	}
	return delta
}

// mapError exposes HTTP status codes so the orchestrator can decide on retries.
func mapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &llm.StatusError{
			StatusCode: apiErr.HTTPStatusCode,
			Message:    fmt.Sprintf("model service returned %d: %s", apiErr.HTTPStatusCode, apiErr.Message),
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &llm.StatusError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    fmt.Sprintf("model service returned %d", reqErr.HTTPStatusCode),
		}
	}
	return err
}
