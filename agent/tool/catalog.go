// Package tool binds each agent to its callable units: domain tools backed
// by external collaborators, and handoff tools that only emit routing
// sentinels. Tool execution never raises; failures come back as readable
// error text the calling agent can reason about.
package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	handoffx "github.com/styletto/stylist-agent/agent/handoff"
)

const (
	ToolClosetSearch  = "closet.search"
	ToolClosetSimilar = "closet.similar"
	ToolBrandSearch   = "brand.search"
	ToolWalletBalance = "wallet.balance"
	ToolWalletMath    = "wallet.math"
	ToolImageGenerate = "image.generate"
	ToolProfileLookup = "profile.lookup"

	ToolTransferBack = "transfer_back_to_manager"
)

// TransferToolName returns the manager-side handoff tool for a specialist.
func TransferToolName(target contractx.AgentType) string {
	return "transfer_to_" + string(target)
}

// Call is one tool invocation as requested by a model.
type Call struct {
	Name   string
	Args   map[string]any
	UserID string
}

// Executor runs one tool call and always returns result text. Errors from
// collaborators are folded into the text so the owning agent can recover.
type Executor func(ctx context.Context, call Call) string

// Collaborators are the external domain capabilities consumed as black-box
// async functions. Nil fields fall back to an "unavailable" responder.
type Collaborators struct {
	ClosetSearch  func(ctx context.Context, userID, query string) (string, error)
	SimilarItems  func(ctx context.Context, userID, description string) (string, error)
	BrandSearch   func(ctx context.Context, query string) (string, error)
	WalletBalance func(ctx context.Context, userID string) (string, error)
	GenerateImage func(ctx context.Context, prompt string) (string, error)
	ProfileLookup func(ctx context.Context, userID string) (string, error)
}

// NewExecutor builds the executor for one agent. Handoff tools are resolved
// locally; domain tools dispatch to collaborators.
func NewExecutor(agent contractx.AgentType, collab *Collaborators) Executor {
	if collab == nil {
		collab = &Collaborators{}
	}

	return func(ctx context.Context, call Call) (result string) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("tool", call.Name).Any("panic", r).Msg("tool handler panicked")
				result = fmt.Sprintf("tool %s failed unexpectedly", call.Name)
			}
		}()

		if sentinel, ok := executeHandoff(call); ok {
			return sentinel
		}
		return executeDomain(ctx, agent, collab, call)
	}
}

func executeHandoff(call Call) (string, bool) {
	for _, target := range contractx.Specialists() {
		if call.Name == TransferToolName(target) {
			return handoffx.EncodeTransfer(target, stringArg(call.Args, "task")), true
		}
	}
	if call.Name == ToolTransferBack {
		return handoffx.EncodeHandBack(
			stringArg(call.Args, "summary"),
			stringArg(call.Args, "blocked_reason"),
		), true
	}
	return "", false
}

func executeDomain(ctx context.Context, agent contractx.AgentType, collab *Collaborators, call Call) string {
	var fn func() (string, error)

	switch call.Name {
	case ToolClosetSearch:
		if collab.ClosetSearch != nil {
			fn = func() (string, error) {
				return collab.ClosetSearch(ctx, call.UserID, stringArg(call.Args, "query"))
			}
		}
	case ToolClosetSimilar:
		if collab.SimilarItems != nil {
			fn = func() (string, error) {
				return collab.SimilarItems(ctx, call.UserID, stringArg(call.Args, "description"))
			}
		}
	case ToolBrandSearch:
		if collab.BrandSearch != nil {
			fn = func() (string, error) {
				return collab.BrandSearch(ctx, stringArg(call.Args, "query"))
			}
		}
	case ToolWalletBalance:
		if collab.WalletBalance != nil {
			fn = func() (string, error) {
				return collab.WalletBalance(ctx, call.UserID)
			}
		}
	case ToolWalletMath:
		return executeWalletMath(call.Args)
	case ToolImageGenerate:
		if collab.GenerateImage != nil {
			fn = func() (string, error) {
				return collab.GenerateImage(ctx, stringArg(call.Args, "prompt"))
			}
		}
	case ToolProfileLookup:
		if collab.ProfileLookup != nil {
			fn = func() (string, error) {
				return collab.ProfileLookup(ctx, call.UserID)
			}
		}
	}

	if fn == nil {
		return fmt.Sprintf("tool=%s is unavailable for agent=%s", call.Name, agent)
	}
	out, err := fn()
	if err != nil {
		return fmt.Sprintf("%s failed: %v", call.Name, err)
	}
	return out
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, ok := args[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(s)
}

// InfosForAgent returns the tool schemas bound to an agent's model.
func InfosForAgent(agent contractx.AgentType) []*schema.ToolInfo {
	switch agent {
	case contractx.AgentTypeManager:
		infos := []*schema.ToolInfo{
			{
				Name: ToolProfileLookup,
				Desc: "Look up the user's size, fit, and style preferences.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
		}
		for _, target := range contractx.Specialists() {
			infos = append(infos, &schema.ToolInfo{
				Name: TransferToolName(target),
				Desc: fmt.Sprintf("Delegate the current task to the %s specialist.", target),
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"task": {Type: schema.String, Desc: "What the specialist should do", Required: true},
				}),
			})
		}
		return infos
	case contractx.AgentTypeCloset:
		return append([]*schema.ToolInfo{
			{
				Name: ToolClosetSearch,
				Desc: "Find owned wardrobe items matching a description.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "Natural language item description", Required: true},
				}),
			},
			{
				Name: ToolClosetSimilar,
				Desc: "Check whether a described item duplicates something already owned.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"description": {Type: schema.String, Desc: "Item description to compare", Required: true},
				}),
			},
		}, transferBackInfo())
	case contractx.AgentTypeAdvisor:
		return append([]*schema.ToolInfo{
			{
				Name: ToolBrandSearch,
				Desc: "Query the partner brand catalog for candidate items.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "Catalog search query", Required: true},
				}),
			},
			{
				Name: ToolClosetSearch,
				Desc: "Find owned wardrobe items so recommendations pair well.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {Type: schema.String, Desc: "Natural language item description", Required: true},
				}),
			},
		}, transferBackInfo())
	case contractx.AgentTypeBudget:
		return append([]*schema.ToolInfo{
			{
				Name: ToolWalletBalance,
				Desc: "Read the user's current wallet balance.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{}),
			},
			{
				Name: ToolWalletMath,
				Desc: "Evaluate a mathematical expression.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"expression": {Type: schema.String, Desc: "Expression to evaluate", Required: true},
				}),
			},
		}, transferBackInfo())
	case contractx.AgentTypeVisualizer:
		return append([]*schema.ToolInfo{
			{
				Name: ToolImageGenerate,
				Desc: "Render the described outfit as an image; returns an image url.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"prompt": {Type: schema.String, Desc: "Full outfit description", Required: true},
				}),
			},
		}, transferBackInfo())
	default:
		return nil
	}
}

func transferBackInfo() *schema.ToolInfo {
	return &schema.ToolInfo{
		Name: ToolTransferBack,
		Desc: "Hand control back to the manager with a summary of your work.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"summary": {Type: schema.String, Desc: "Factual summary of what you found or did", Required: true},
			"blocked_reason": {
				Type: schema.String,
				Desc: "Set only when you need input from the end user to continue",
			},
		}),
	}
}
