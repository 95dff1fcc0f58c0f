package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/rs/zerolog/log"

	stylistx "github.com/styletto/stylist-agent/agent/agents/stylist"
	contractx "github.com/styletto/stylist-agent/agent/contract"
	llmx "github.com/styletto/stylist-agent/agent/llm"
	promptx "github.com/styletto/stylist-agent/agent/prompt"
	statex "github.com/styletto/stylist-agent/agent/state"
	toolx "github.com/styletto/stylist-agent/agent/tool"
	visionx "github.com/styletto/stylist-agent/agent/vision"
	configx "github.com/styletto/stylist-agent/pkg/config"
	_ "github.com/styletto/stylist-agent/pkg/logger/autoload"
	openrouterx "github.com/styletto/stylist-agent/pkg/openrouter"
	styleapix "github.com/styletto/stylist-agent/pkg/styleapi"
)

type AppConfig struct {
	UserID        string `envconfig:"USER_ID" split_words:"true" default:"local-dev"`
	StepLimit     int    `envconfig:"STEP_LIMIT" split_words:"true" default:"50"`
	EnableCritic  bool   `envconfig:"ENABLE_CRITIC" split_words:"true"`
	CriticRetries int    `envconfig:"CRITIC_RETRIES" split_words:"true" default:"2"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("STYLIST")
	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid llm configuration")
	}

	service, err := buildService(ctx, *appCfg, *llmCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build stylist service")
	}

	store := buildHistoryStore()

	runREPL(ctx, service, store, appCfg.UserID)
}

func buildService(ctx context.Context, appCfg AppConfig, llmCfg llmx.Config) (*stylistx.Service, error) {
	models := make(map[contractx.AgentType]einomodel.ToolCallingChatModel)
	agents := append([]contractx.AgentType{contractx.AgentTypeManager}, contractx.Specialists()...)
	for _, agent := range agents {
		orCfg := llmCfg.OpenRouterFor(agent)
		m, err := orCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("build model for agent=%s: %w", agent, err)
		}
		models[agent] = m
	}

	prompts := promptx.LoadPromptSet()
	collab, similar := buildCollaborators()

	engine, err := stylistx.NewEngine(ctx, stylistx.EngineConfig{
		Models:        models,
		Collaborators: collab,
		Prompts:       prompts,
		StepLimit:     appCfg.StepLimit,
	})
	if err != nil {
		return nil, err
	}

	svcCfg := stylistx.ServiceConfig{
		Engine:       engine,
		SimilarItems: similar,
	}

	visionClient := openrouterx.NewClient(llmCfg.OpenRouterFor(contractx.AgentTypeManager))
	if visionClient != nil {
		analyzer, err := visionx.NewAnalyzer(visionClient, llmCfg.VisionModelName())
		if err != nil {
			log.Warn().Err(err).Msg("vision analyzer unavailable, streaming pre-pass disabled")
		} else {
			svcCfg.Analyzer = analyzer
		}
	}

	if appCfg.EnableCritic {
		criticCfg := llmCfg.OpenRouterForCritic()
		criticModel, err := criticCfg.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("build critic model: %w", err)
		}
		critic, err := stylistx.NewCritic(ctx, criticModel, promptx.LoadPromptSet().Critic, appCfg.CriticRetries)
		if err != nil {
			return nil, fmt.Errorf("build critic: %w", err)
		}
		svcCfg.Critic = critic
	}

	return stylistx.NewService(svcCfg)
}

// buildCollaborators wires the styling services client when configured. With
// no configuration the engine still runs; domain tools answer as unavailable.
func buildCollaborators() (*toolx.Collaborators, func(ctx context.Context, userID, description string) (string, error)) {
	apiCfg, err := configx.New[styleapix.Config]("STYLEAPI")
	if err != nil {
		log.Warn().Err(err).Msg("styleapi not configured, domain tools disabled")
		return &toolx.Collaborators{}, nil
	}
	client, err := styleapix.NewClient(*apiCfg)
	if err != nil {
		log.Warn().Err(err).Msg("styleapi client rejected configuration, domain tools disabled")
		return &toolx.Collaborators{}, nil
	}

	return &toolx.Collaborators{
		ClosetSearch:  client.SearchCloset,
		SimilarItems:  client.SimilarItems,
		BrandSearch:   client.SearchBrands,
		WalletBalance: client.WalletBalance,
		GenerateImage: client.GenerateImage,
		ProfileLookup: client.Profile,
	}, client.SimilarItems
}

func buildHistoryStore() contractx.HistoryStore {
	cfg, err := configx.New[statex.UpstashHistoryConfig]("UPSTASH_REDIS")
	if err != nil {
		log.Info().Msg("history store not configured, conversations stay in memory")
		return nil
	}
	store, err := statex.NewUpstashHistoryStore(*cfg)
	if err != nil {
		log.Warn().Err(err).Msg("history store rejected configuration, conversations stay in memory")
		return nil
	}
	return store
}

// runREPL drives the streaming entrypoint from stdin, one line per turn.
func runREPL(ctx context.Context, service *stylistx.Service, store contractx.HistoryStore, userID string) {
	history := loadHistory(ctx, store, userID)
	scanner := bufio.NewScanner(os.Stdin)

	fmt.Println("stylist ready. Type a message, or /reset to clear history, /quit to exit.")
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/reset":
			history = nil
			if store != nil {
				if err := store.Delete(ctx, userID); err != nil {
					log.Warn().Err(err).Msg("failed to clear stored history")
				}
			}
			fmt.Println("history cleared")
			continue
		}

		req := contractx.ChatRequest{UserID: userID, Message: line, History: history}
		reply := consumeStream(service.ChatStream(ctx, req))
		if reply == nil {
			continue
		}

		history = append(history,
			contractx.HistoryEntry{Role: "user", Content: line},
			contractx.HistoryEntry{Role: "assistant", Content: reply.Response},
		)
		if store != nil {
			if err := store.Save(ctx, userID, history); err != nil {
				log.Warn().Err(err).Msg("failed to persist history")
			}
		}
	}
}

func loadHistory(ctx context.Context, store contractx.HistoryStore, userID string) []contractx.HistoryEntry {
	if store == nil {
		return nil
	}
	history, err := store.Load(ctx, userID)
	if err != nil && !errors.Is(err, statex.ErrHistoryNotFound) {
		log.Warn().Err(err).Msg("failed to load stored history")
	}
	return history
}

func consumeStream(events <-chan contractx.StreamEvent) *contractx.Reply {
	var reply *contractx.Reply
	streamedChunks := false

	for ev := range events {
		switch ev.Type {
		case contractx.EventStatus:
			fmt.Printf("  [%s]\n", ev.Content)
		case contractx.EventChunk:
			streamedChunks = true
			fmt.Print(ev.Content)
		case contractx.EventFinal:
			reply = ev.Reply
		case contractx.EventError:
			fmt.Printf("\n! %s\n", ev.Content)
		}
	}

	if reply == nil {
		return nil
	}
	if streamedChunks {
		fmt.Println()
	} else {
		fmt.Println(reply.Response)
	}
	for _, img := range reply.Images {
		fmt.Printf("  image: %s\n", img)
	}
	for _, outfit := range reply.SuggestedOutfits {
		fmt.Printf("  outfit: %s (score %.2f)\n", outfit.Name, outfit.Score)
	}
	return reply
}
