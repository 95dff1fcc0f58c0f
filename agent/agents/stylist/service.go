package stylist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog/log"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	extractx "github.com/styletto/stylist-agent/agent/extract"
	statex "github.com/styletto/stylist-agent/agent/state"
	visionx "github.com/styletto/stylist-agent/agent/vision"
)

const apologyText = "I'm sorry, something went wrong while working on your request. Please try again in a moment."

const stepLimitText = "This request took more steps than I allow in one turn. Try breaking it into smaller questions."

// FactsProvider loads per-user business facts for prompt rendering. Failures
// are logged and swallowed; a turn proceeds with whatever facts it has.
type FactsProvider func(ctx context.Context, userID string) (statex.Facts, error)

// ServiceConfig assembles the turn engine with its optional companions.
type ServiceConfig struct {
	Engine *Engine

	// Critic reviews drafted replies when set; nil disables the stage.
	Critic *Critic

	// Analyzer handles the streaming image pre-pass; nil skips it and the
	// image rides the message list instead.
	Analyzer *visionx.Analyzer

	// SimilarItems, when set with Analyzer, annotates the pre-pass note with
	// closely matching owned items.
	SimilarItems func(ctx context.Context, userID, description string) (string, error)

	Facts FactsProvider
}

// Service is the public face of the dialogue engine: one blocking entrypoint
// and one streaming entrypoint per turn.
type Service struct {
	engine   *Engine
	critic   *Critic
	analyzer *visionx.Analyzer
	similar  func(ctx context.Context, userID, description string) (string, error)
	facts    FactsProvider
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Engine == nil {
		return nil, errors.New("stylist: engine is required")
	}
	return &Service{
		engine:   cfg.Engine,
		critic:   cfg.Critic,
		analyzer: cfg.Analyzer,
		similar:  cfg.SimilarItems,
		facts:    cfg.Facts,
	}, nil
}

// Chat runs one blocking turn. Engine failures degrade to an apologetic
// reply rather than an error; only request validation errors surface.
func (s *Service) Chat(ctx context.Context, req contractx.ChatRequest) (contractx.Reply, error) {
	st, err := s.prepare(ctx, req, true)
	if err != nil {
		return contractx.Reply{}, err
	}

	out, err := s.engine.Run(ctx, st)
	if err != nil {
		log.Error().Str("turn_id", st.TurnID).Err(err).Msg("turn failed")
		return apologyReply(err), nil
	}

	reply := extractx.Parse(out.LastAssistantText())
	return s.refine(ctx, out, req, reply), nil
}

// ChatStream runs one turn emitting progress events. The channel closes
// after exactly one terminal event, final or error.
func (s *Service) ChatStream(ctx context.Context, req contractx.ChatRequest) <-chan contractx.StreamEvent {
	events := make(chan contractx.StreamEvent)

	go func() {
		defer close(events)
		emit := func(ev contractx.StreamEvent) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		}

		// In streaming mode the image is analyzed up front and folded into
		// the system prompt, so the turn itself stays text-only.
		note := s.visionPrepass(ctx, req, emit)
		if note != "" {
			req.Image = nil
		}

		st, err := s.prepare(ctx, req, note == "")
		if err != nil {
			emit(contractx.StreamEvent{Type: contractx.EventError, Content: err.Error()})
			return
		}
		st.VisionNote = note
		st.SetEmitter(emit)

		out, err := s.engine.Run(ctx, st)
		if err != nil {
			log.Error().Str("turn_id", st.TurnID).Err(err).Msg("streaming turn failed")
			emit(contractx.StreamEvent{Type: contractx.EventError, Content: errorText(err)})
			return
		}

		reply := extractx.Parse(out.LastAssistantText())
		if s.critic != nil {
			emit(contractx.StreamEvent{Type: contractx.EventStatus, Content: reviewStatus})
		}
		reply = s.refine(ctx, out, req, reply)

		emit(contractx.StreamEvent{Type: contractx.EventFinal, Reply: &reply})
	}()

	return events
}

func (s *Service) prepare(ctx context.Context, req contractx.ChatRequest, attachImage bool) (*statex.ChatState, error) {
	if !attachImage {
		req.Image = nil
	}

	facts := statex.Facts{TodayDate: time.Now().Format("2006-01-02")}
	if s.facts != nil {
		loaded, err := s.facts(ctx, req.UserID)
		if err != nil {
			log.Warn().Str("user_id", req.UserID).Err(err).Msg("facts lookup failed, continuing without")
		} else {
			if loaded.TodayDate == "" {
				loaded.TodayDate = facts.TodayDate
			}
			facts = loaded
		}
	}

	return statex.New(req, facts)
}

// visionPrepass describes an attached image before the turn starts. Any
// failure returns "" and the image falls back to riding the message list.
func (s *Service) visionPrepass(ctx context.Context, req contractx.ChatRequest, emit func(contractx.StreamEvent)) string {
	if s.analyzer == nil || len(req.Image) == 0 {
		return ""
	}

	emit(contractx.StreamEvent{Type: contractx.EventStatus, Content: "Taking a close look at your photo..."})

	note, err := s.analyzer.Analyze(ctx, req.Image)
	if err != nil {
		log.Warn().Str("user_id", req.UserID).Err(err).Msg("image pre-pass failed")
		return ""
	}

	if s.similar != nil {
		owned, err := s.similar(ctx, req.UserID, note)
		if err != nil {
			log.Warn().Str("user_id", req.UserID).Err(err).Msg("similar items lookup failed")
		} else if strings.TrimSpace(owned) != "" {
			note += "\nSimilar owned items: " + strings.TrimSpace(owned)
		}
	}
	return note
}

// refine runs the optional review stage. Every failure path keeps the
// current reply; the critic can only improve a turn, never break it.
func (s *Service) refine(ctx context.Context, st *statex.ChatState, req contractx.ChatRequest, reply contractx.Reply) contractx.Reply {
	if s.critic == nil {
		return reply
	}

	for attempt := 1; attempt <= s.critic.maxRetries; attempt++ {
		verdict, err := s.critic.Review(ctx, req.Message, reply.Response)
		if err != nil {
			log.Warn().Str("turn_id", st.TurnID).Err(err).Msg("critique review failed")
			return reply
		}
		if verdict.Approved || strings.TrimSpace(verdict.Feedback) == "" {
			return reply
		}

		st.Record("critique rejected attempt=%d", attempt)
		st.Append(schema.UserMessage(fmt.Sprintf(
			"Please revise your previous answer. Reviewer feedback: %s", verdict.Feedback)))

		out, err := s.engine.Run(ctx, st)
		if err != nil {
			log.Warn().Str("turn_id", st.TurnID).Err(err).Msg("critique revision run failed")
			return reply
		}
		st = out
		reply = extractx.Parse(out.LastAssistantText())
	}
	return reply
}

func apologyReply(err error) contractx.Reply {
	return contractx.Reply{
		Response:         errorText(err),
		Images:           []string{},
		SuggestedOutfits: []contractx.SuggestedOutfit{},
	}
}

func errorText(err error) string {
	if isIterationLimit(err) {
		return stepLimitText
	}
	return apologyText
}

// The graph runner may rewrap node errors without preserving the chain, so
// the sentinel is matched by text as a fallback.
func isIterationLimit(err error) bool {
	if errors.Is(err, contractx.ErrIterationLimit) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), contractx.ErrIterationLimit.Error())
}
