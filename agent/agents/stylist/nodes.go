package stylist

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	handoffx "github.com/styletto/stylist-agent/agent/handoff"
	promptx "github.com/styletto/stylist-agent/agent/prompt"
	statex "github.com/styletto/stylist-agent/agent/state"
	toolx "github.com/styletto/stylist-agent/agent/tool"
)

// agentStep produces one assistant message for the given agent. The system
// entry is refreshed in place before every model call, so the newest business
// facts and any delegated task are always live without accumulating stale
// system messages.
func (e *Engine) agentStep(agent contractx.AgentType) func(ctx context.Context, st *statex.ChatState) (*statex.ChatState, error) {
	return func(ctx context.Context, st *statex.ChatState) (*statex.ChatState, error) {
		st.Steps++
		if st.Steps > e.stepLimit {
			return nil, fmt.Errorf("%w: %d node transitions", contractx.ErrIterationLimit, st.Steps)
		}

		st.EnsureSystemMessage(e.systemPrompt(agent, st))
		st.Emit(statusEvent(agent))

		var (
			msg *schema.Message
			err error
		)
		if agent == contractx.AgentTypeManager && st.Streaming() {
			msg, err = streamReply(ctx, e.models[agent], st)
		} else {
			msg, err = e.models[agent].Generate(ctx, st.Messages)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: agent=%s: %v", contractx.ErrModelInvoke, agent, err)
		}

		ensureCallIDs(msg)
		st.Append(msg)
		st.ActiveAgent = agent
		st.Record("agent=%s replied tool_calls=%d", agent, len(msg.ToolCalls))

		log.Debug().
			Str("turn_id", st.TurnID).
			Str("agent", string(agent)).
			Int("tool_calls", len(msg.ToolCalls)).
			Int("steps", st.Steps).
			Msg("agent step")

		return st, nil
	}
}

// toolStep executes every pending tool call in order, appends one tool
// message per call, and parses the results into the typed handoff signal.
func (e *Engine) toolStep(agent contractx.AgentType) func(ctx context.Context, st *statex.ChatState) (*statex.ChatState, error) {
	return func(ctx context.Context, st *statex.ChatState) (*statex.ChatState, error) {
		st.Steps++
		if st.Steps > e.stepLimit {
			return nil, fmt.Errorf("%w: %d node transitions", contractx.ErrIterationLimit, st.Steps)
		}

		last := st.LastMessage()
		if last == nil || last.Role != schema.Assistant || len(last.ToolCalls) == 0 {
			return nil, fmt.Errorf("%w: tool node for agent=%s reached without pending tool calls", contractx.ErrValidation, agent)
		}

		st.Signal = nil
		exec := e.executors[agent]
		results := make([]string, 0, len(last.ToolCalls))

		for _, call := range last.ToolCalls {
			if call.Function.Name == toolx.ToolImageGenerate {
				st.Emit(contractx.StreamEvent{Type: contractx.EventStatus, Content: imageGenStatus})
			}

			result := e.runCall(ctx, exec, agent, st.UserID, call)
			results = append(results, result)
			st.Append(&schema.Message{
				Role:       schema.Tool,
				Content:    result,
				ToolCallID: call.ID,
			})
			st.Record("agent=%s tool=%s", agent, call.Function.Name)
		}

		if sig, ok := handoffx.FromResults(results); ok {
			st.Signal = sig
		}
		return st, nil
	}
}

func (e *Engine) runCall(ctx context.Context, exec toolx.Executor, agent contractx.AgentType, userID string, call schema.ToolCall) string {
	args := map[string]any{}
	if raw := strings.TrimSpace(call.Function.Arguments); raw != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			log.Warn().
				Str("agent", string(agent)).
				Str("tool", call.Function.Name).
				Err(err).
				Msg("unparsable tool arguments")
			return fmt.Sprintf("%s failed: invalid arguments: %v", call.Function.Name, err)
		}
	}
	return exec(ctx, toolx.Call{Name: call.Function.Name, Args: args, UserID: userID})
}

func (e *Engine) systemPrompt(agent contractx.AgentType, st *statex.ChatState) string {
	pc := promptx.Context{
		TodayDate:     st.Facts.TodayDate,
		Currency:      st.Facts.Currency,
		BudgetLimit:   st.Facts.BudgetLimit,
		WalletBalance: st.Facts.WalletBalance,
		DaysRemaining: st.Facts.DaysRemaining,
		VisionNote:    st.VisionNote,
	}
	if t, ok := st.Signal.(handoffx.Transfer); ok && t.Target == agent {
		pc.Task = t.Task
	}
	return promptx.Compose(e.prompts.ForAgent(agent), pc)
}

// Some providers omit tool call ids; downstream tool messages need one to
// pair with, so missing ids are backfilled.
func ensureCallIDs(msg *schema.Message) {
	for i := range msg.ToolCalls {
		if msg.ToolCalls[i].ID == "" {
			msg.ToolCalls[i].ID = uuid.NewString()
		}
	}
}
