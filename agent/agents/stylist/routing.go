package stylist

import (
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	handoffx "github.com/styletto/stylist-agent/agent/handoff"
	statex "github.com/styletto/stylist-agent/agent/state"
)

// Node ids. Every agent has a paired tool-execution node.
func agentNode(agent contractx.AgentType) string {
	return string(agent)
}

func toolsNode(agent contractx.AgentType) string {
	return string(agent) + "_tools"
}

// The routing table is derived from the shape of the newest message and the
// typed handoff signal only, never from business content. Each function is
// total: every reachable state maps to exactly one next node.

// routeAfterAgent: pending tool calls go to the paired tool node. With no
// calls the manager terminates the turn; a specialist yields to the manager
// even without an explicit handoff, as a safety default.
func routeAfterAgent(agent contractx.AgentType, st *statex.ChatState) string {
	last := st.LastMessage()
	if last != nil && last.Role == schema.Assistant && len(last.ToolCalls) > 0 {
		return toolsNode(agent)
	}
	if agent == contractx.AgentTypeManager {
		return compose.END
	}
	return agentNode(contractx.AgentTypeManager)
}

// routeAfterManagerTools: a transfer signal selects the specialist; a plain
// domain tool (profile lookup) resumes manager reasoning.
func routeAfterManagerTools(st *statex.ChatState) string {
	if t, ok := st.Signal.(handoffx.Transfer); ok {
		return agentNode(t.Target)
	}
	return agentNode(contractx.AgentTypeManager)
}

// routeAfterSpecialistTools: a hand-back signal returns to the manager; a
// plain domain tool resumes the owning specialist.
func routeAfterSpecialistTools(agent contractx.AgentType, st *statex.ChatState) string {
	if _, ok := st.Signal.(handoffx.HandBack); ok {
		return agentNode(contractx.AgentTypeManager)
	}
	return agentNode(agent)
}
