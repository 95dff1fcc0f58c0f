package llm

import (
	"fmt"
	"strings"
	"time"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	openrouterx "github.com/styletto/stylist-agent/pkg/openrouter"
)

type Config struct {
	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" required:"true"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0.5"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"60s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`

	ManagerModel    string `envconfig:"MANAGER_MODEL" split_words:"true"`
	ClosetModel     string `envconfig:"CLOSET_MODEL" split_words:"true"`
	AdvisorModel    string `envconfig:"ADVISOR_MODEL" split_words:"true"`
	BudgetModel     string `envconfig:"BUDGET_MODEL" split_words:"true"`
	VisualizerModel string `envconfig:"VISUALIZER_MODEL" split_words:"true"`
	CriticModel     string `envconfig:"CRITIC_MODEL" split_words:"true"`
	VisionModel     string `envconfig:"VISION_MODEL" split_words:"true"`

	ManagerTemperature    float32 `envconfig:"MANAGER_TEMPERATURE" split_words:"true" default:"-1"`
	SpecialistTemperature float32 `envconfig:"SPECIALIST_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: openrouter api key is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// OpenRouterFor resolves the model configuration for one agent, falling back
// to the shared defaults when no per-agent override is set.
func (c Config) OpenRouterFor(agent contractx.AgentType) openrouterx.Config {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	override := ""
	switch agent {
	case contractx.AgentTypeManager:
		override = c.ManagerModel
		if c.ManagerTemperature >= 0 {
			temp = c.ManagerTemperature
		}
	case contractx.AgentTypeCloset:
		override = c.ClosetModel
	case contractx.AgentTypeAdvisor:
		override = c.AdvisorModel
	case contractx.AgentTypeBudget:
		override = c.BudgetModel
	case contractx.AgentTypeVisualizer:
		override = c.VisualizerModel
	}
	if agent != contractx.AgentTypeManager && c.SpecialistTemperature >= 0 {
		temp = c.SpecialistTemperature
	}
	if v := strings.TrimSpace(override); v != "" {
		modelName = v
	}

	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

// OpenRouterForCritic resolves the review-stage model configuration.
func (c Config) OpenRouterForCritic() openrouterx.Config {
	cfg := c.OpenRouterFor(contractx.AgentTypeManager)
	if v := strings.TrimSpace(c.CriticModel); v != "" {
		cfg.Model = v
	}
	return cfg
}

// VisionModelName returns the multimodal model for the streaming pre-pass,
// defaulting to the shared model.
func (c Config) VisionModelName() string {
	if v := strings.TrimSpace(c.VisionModel); v != "" {
		return v
	}
	return strings.TrimSpace(c.Model)
}
