package prompt

import (
	_ "embed"
	"strings"

	contractx "github.com/styletto/stylist-agent/agent/contract"
)

var (
	//go:embed template/manager.txt
	managerRaw string

	//go:embed template/closet.txt
	closetRaw string

	//go:embed template/advisor.txt
	advisorRaw string

	//go:embed template/budget.txt
	budgetRaw string

	//go:embed template/visualizer.txt
	visualizerRaw string

	//go:embed template/critic.txt
	criticRaw string
)

// PromptSet holds loaded prompt content.
type PromptSet struct {
	Manager    string
	Closet     string
	Advisor    string
	Budget     string
	Visualizer string
	Critic     string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings.
// Safe to call concurrently; the embed is compile-time, and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		Manager:    strings.TrimSpace(managerRaw),
		Closet:     strings.TrimSpace(closetRaw),
		Advisor:    strings.TrimSpace(advisorRaw),
		Budget:     strings.TrimSpace(budgetRaw),
		Visualizer: strings.TrimSpace(visualizerRaw),
		Critic:     strings.TrimSpace(criticRaw),
	}
}

// ForAgent returns the base prompt for an agent, or "" when unknown.
func (p PromptSet) ForAgent(agent contractx.AgentType) string {
	switch agent {
	case contractx.AgentTypeManager:
		return p.Manager
	case contractx.AgentTypeCloset:
		return p.Closet
	case contractx.AgentTypeAdvisor:
		return p.Advisor
	case contractx.AgentTypeBudget:
		return p.Budget
	case contractx.AgentTypeVisualizer:
		return p.Visualizer
	default:
		return ""
	}
}
