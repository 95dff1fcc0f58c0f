package stylist

import (
	"context"
	"encoding/json"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/styletto/stylist-agent/agent/contract"
)

const defaultCritiqueRetries = 2

// Verdict is the review-stage judgement over a drafted reply.
type Verdict struct {
	Approved bool   `json:"approved"`
	Feedback string `json:"feedback,omitempty"`
}

// Critic runs an optional single-shot review pass over the manager's drafted
// answer. A rejection re-enters the turn graph with the feedback appended as
// a revision request, bounded by maxRetries.
type Critic struct {
	runner     compose.Runnable[map[string]any, Verdict]
	maxRetries int
}

func NewCritic(ctx context.Context, chatModel einomodel.BaseChatModel, systemPrompt string, maxRetries int) (*Critic, error) {
	if maxRetries <= 0 {
		maxRetries = defaultCritiqueRetries
	}

	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.UserMessage("{input}"),
	)
	parser := schema.NewMessageJSONParser[Verdict](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	g := compose.NewGraph[map[string]any, Verdict]()
	if err := g.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add critique prompt node: %w", err)
	}
	if err := g.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add critique model node: %w", err)
	}
	if err := g.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add critique parser node: %w", err)
	}
	if err := g.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add critique edge start->prompt: %w", err)
	}
	if err := g.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add critique edge prompt->model: %w", err)
	}
	if err := g.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add critique edge model->parse: %w", err)
	}
	if err := g.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add critique edge parse->end: %w", err)
	}

	runner, err := g.Compile(ctx, compose.WithGraphName("stylist.critique_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile critique graph: %w", err)
	}

	return &Critic{runner: runner, maxRetries: maxRetries}, nil
}

// Review judges a drafted reply against the user's request.
func (c *Critic) Review(ctx context.Context, userMessage, draft string) (Verdict, error) {
	payload, err := json.Marshal(map[string]string{
		"user_message": userMessage,
		"draft_reply":  draft,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal critique input: %w", err)
	}

	verdict, err := c.runner.Invoke(ctx, map[string]any{"input": string(payload)})
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: critique verdict: %v", contractx.ErrSchemaViolation, err)
	}
	return verdict, nil
}
