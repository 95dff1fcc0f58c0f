// Package stylist is the dialogue engine: a cyclic graph of one manager hub
// and four specialists that cooperate on a single styling turn. Agents talk
// to each other only through the shared message list; routing reads typed
// handoff signals parsed at the tool boundary.
package stylist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	promptx "github.com/styletto/stylist-agent/agent/prompt"
	statex "github.com/styletto/stylist-agent/agent/state"
	toolx "github.com/styletto/stylist-agent/agent/tool"
)

const defaultStepLimit = 50

// EngineConfig wires the per-agent chat models and the domain collaborators
// into one engine. Models are bound to their agent's tool set during
// construction.
type EngineConfig struct {
	Models        map[contractx.AgentType]einomodel.ToolCallingChatModel
	Collaborators *toolx.Collaborators
	Prompts       promptx.PromptSet

	// StepLimit caps node transitions per turn; zero means the default.
	StepLimit int
}

// Engine owns the compiled turn graph. It is immutable after construction and
// safe for concurrent turns; all per-turn data lives in the ChatState.
type Engine struct {
	models    map[contractx.AgentType]einomodel.ToolCallingChatModel
	executors map[contractx.AgentType]toolx.Executor
	prompts   promptx.PromptSet
	stepLimit int

	runner compose.Runnable[*statex.ChatState, *statex.ChatState]
}

func NewEngine(ctx context.Context, cfg EngineConfig) (*Engine, error) {
	e := &Engine{
		models:    make(map[contractx.AgentType]einomodel.ToolCallingChatModel),
		executors: make(map[contractx.AgentType]toolx.Executor),
		prompts:   cfg.Prompts,
		stepLimit: cfg.StepLimit,
	}
	if e.stepLimit <= 0 {
		e.stepLimit = defaultStepLimit
	}

	agents := append([]contractx.AgentType{contractx.AgentTypeManager}, contractx.Specialists()...)
	for _, agent := range agents {
		m, ok := cfg.Models[agent]
		if !ok || m == nil {
			return nil, fmt.Errorf("%w: no chat model for agent=%s", contractx.ErrValidation, agent)
		}
		if strings.TrimSpace(cfg.Prompts.ForAgent(agent)) == "" {
			return nil, fmt.Errorf("%w: agent=%s", contractx.ErrPromptMissing, agent)
		}
		bound, err := m.WithTools(toolx.InfosForAgent(agent))
		if err != nil {
			return nil, fmt.Errorf("bind tools for agent=%s: %w", agent, err)
		}
		e.models[agent] = bound
		e.executors[agent] = toolx.NewExecutor(agent, cfg.Collaborators)
	}

	runner, err := e.compileGraph(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	e.runner = runner
	return e, nil
}

func (e *Engine) compileGraph(ctx context.Context) (compose.Runnable[*statex.ChatState, *statex.ChatState], error) {
	g := compose.NewGraph[*statex.ChatState, *statex.ChatState]()

	agents := append([]contractx.AgentType{contractx.AgentTypeManager}, contractx.Specialists()...)
	for _, agent := range agents {
		agent := agent
		if err := g.AddLambdaNode(agentNode(agent), compose.InvokableLambda(e.agentStep(agent))); err != nil {
			return nil, err
		}
		if err := g.AddLambdaNode(toolsNode(agent), compose.InvokableLambda(e.toolStep(agent))); err != nil {
			return nil, err
		}
	}

	if err := g.AddEdge(compose.START, agentNode(contractx.AgentTypeManager)); err != nil {
		return nil, err
	}

	// Manager: either execute pending tool calls or finish the turn.
	managerTargets := map[string]bool{
		toolsNode(contractx.AgentTypeManager): true,
		compose.END:                           true,
	}
	err := g.AddBranch(agentNode(contractx.AgentTypeManager), compose.NewGraphBranch(
		func(ctx context.Context, st *statex.ChatState) (string, error) {
			return routeAfterAgent(contractx.AgentTypeManager, st), nil
		}, managerTargets))
	if err != nil {
		return nil, err
	}

	// Manager tools: a transfer enters the named specialist, anything else
	// loops back to the manager.
	managerToolsTargets := map[string]bool{agentNode(contractx.AgentTypeManager): true}
	for _, target := range contractx.Specialists() {
		managerToolsTargets[agentNode(target)] = true
	}
	err = g.AddBranch(toolsNode(contractx.AgentTypeManager), compose.NewGraphBranch(
		func(ctx context.Context, st *statex.ChatState) (string, error) {
			return routeAfterManagerTools(st), nil
		}, managerToolsTargets))
	if err != nil {
		return nil, err
	}

	for _, agent := range contractx.Specialists() {
		agent := agent

		err = g.AddBranch(agentNode(agent), compose.NewGraphBranch(
			func(ctx context.Context, st *statex.ChatState) (string, error) {
				return routeAfterAgent(agent, st), nil
			}, map[string]bool{
				toolsNode(agent):                      true,
				agentNode(contractx.AgentTypeManager): true,
			}))
		if err != nil {
			return nil, err
		}

		err = g.AddBranch(toolsNode(agent), compose.NewGraphBranch(
			func(ctx context.Context, st *statex.ChatState) (string, error) {
				return routeAfterSpecialistTools(agent, st), nil
			}, map[string]bool{
				agentNode(agent):                      true,
				agentNode(contractx.AgentTypeManager): true,
			}))
		if err != nil {
			return nil, err
		}
	}

	// The in-state counter is the authoritative ceiling; the graph runner
	// limit is a backstop with headroom so the typed error surfaces first.
	return g.Compile(ctx,
		compose.WithGraphName("stylist.turn_graph"),
		compose.WithMaxRunSteps(e.stepLimit*2),
	)
}

// Run executes one pass of the turn graph over the given state.
func (e *Engine) Run(ctx context.Context, st *statex.ChatState) (*statex.ChatState, error) {
	return e.runner.Invoke(ctx, st)
}
