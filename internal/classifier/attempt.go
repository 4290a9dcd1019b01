package classifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

var ErrEmptyAnswer = errors.New("oracle returned an empty answer")

type Reason string

const (
	ReasonRateLimited Reason = "rate_limited"
	ReasonAuth        Reason = "auth"
	ReasonPermission  Reason = "permission"
	ReasonTimeout     Reason = "timeout"
	ReasonEmpty       Reason = "empty"
	ReasonOther       Reason = "other"
)

// AttemptError is the typed failure of one oracle attempt.
type AttemptError struct {
	Backend string
	Reason  Reason
	Err     error
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("%s attempt failed (%s): %v", e.Backend, e.Reason, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// Attempt is one way of asking the oracle. Implementations return the raw
// answer or an error; they never fall back on their own.
type Attempt interface {
	Name() string
	Classify(ctx context.Context, text, source string) (string, error)
}

type ChatConfig struct {
	Name    string
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
	// InlineInstruction prepends the instruction to the user message instead
	// of sending a system message.
	InlineInstruction bool
}

// ChatAttempt asks an OpenAI compatible chat completions endpoint.
type ChatAttempt struct {
	cfg     ChatConfig
	client  openai.Client
	prompts *PromptBuilder
}

func NewChatAttempt(cfg ChatConfig, prompts *PromptBuilder, opts ...option.RequestOption) *ChatAttempt {
	base := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	return &ChatAttempt{
		cfg:     cfg,
		client:  openai.NewClient(append(base, opts...)...),
		prompts: prompts,
	}
}

func (a *ChatAttempt) Name() string {
	return a.cfg.Name
}

func (a *ChatAttempt) Classify(ctx context.Context, text, source string) (string, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	prompt := a.prompts.Build(text, source)
	var messages []openai.ChatCompletionMessageParamUnion
	if a.cfg.InlineInstruction {
		messages = append(messages, openai.UserMessage(Instruction+"\n"+prompt))
	} else {
		messages = append(messages, openai.SystemMessage(Instruction), openai.UserMessage(prompt))
	}

	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    openai.ChatModel(a.cfg.Model),
	})
	if err != nil {
		return "", &AttemptError{Backend: a.cfg.Name, Reason: classify(ctx, err), Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &AttemptError{Backend: a.cfg.Name, Reason: ReasonEmpty, Err: ErrEmptyAnswer}
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", &AttemptError{Backend: a.cfg.Name, Reason: ReasonEmpty, Err: ErrEmptyAnswer}
	}
	return answer, nil
}

func classify(ctx context.Context, err error) Reason {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusTooManyRequests:
			return ReasonRateLimited
		case http.StatusUnauthorized:
			return ReasonAuth
		case http.StatusForbidden:
			return ReasonPermission
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ReasonTimeout
	}
	return ReasonOther
}
