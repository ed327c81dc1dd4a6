// Package analyst answers free-text questions about the loaded KPI table by
// grounding a language-model prompt in a freshly computed synopsis.
package analyst

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/opskpi/backend/internal/dataset"
	"github.com/opskpi/backend/internal/llm"
	"github.com/opskpi/backend/internal/synopsis"
	"github.com/opskpi/backend/pkg/logger"
)

const systemPrompt = "You are an analyst assisting an IT manager. " +
	"Use the provided KPI synopsis to answer questions about performance in clear, plain English. " +
	"Be concise, cite numbers when relevant, and explain trends. " +
	"Answer using only the provided KPI synopsis; be concise and factual."

// Completer is the outbound text-generation dependency.
type Completer interface {
	Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error)
}

type Engine struct {
	completer     Completer
	hasCredential bool
}

// Exchange is one question/answer round trip. It is not retained anywhere;
// each question stands alone.
type Exchange struct {
	ID        string    `json:"id"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Usage     llm.Usage `json:"-"`
	LatencyMS int       `json:"latency_ms"`
}

func NewEngine(completer Completer, hasCredential bool) *Engine {
	return &Engine{
		completer:     completer,
		hasCredential: hasCredential,
	}
}

// Ask recomputes the synopsis of the given table, assembles the prompt, and
// performs exactly one completion call. The credential check happens first,
// before any network I/O.
func (e *Engine) Ask(ctx context.Context, t *dataset.Table, question string) (*Exchange, error) {
	if !e.hasCredential {
		return nil, &ConfigError{}
	}

	start := time.Now()
	id := uuid.New().String()

	block := synopsis.Build(t).Render()

	logger.Info("Answering question",
		zap.String("exchange_id", id),
		zap.String("question", question),
		zap.Int("table_rows", t.Len()),
	)

	resp, err := e.completer.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   BuildPrompt(block, question),
	})
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	return &Exchange{
		ID:        id,
		Question:  question,
		Answer:    resp.Content,
		Usage:     resp.Usage,
		LatencyMS: int(time.Since(start).Milliseconds()),
	}, nil
}

// BuildPrompt lays out the user message: labeled synopsis block first, the
// verbatim question after.
func BuildPrompt(synopsisBlock, question string) string {
	return fmt.Sprintf("KPI SYNOPSIS\n%s\n\nQUESTION\n%s\n", synopsisBlock, question)
}
