package state

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	handoffx "github.com/styletto/stylist-agent/agent/handoff"
)

// Facts are the read-only business facts injected into prompts. The engine
// never mutates them. Optional facts are pointers so absence is
// distinguishable from zero.
type Facts struct {
	Currency      string
	BudgetLimit   *float64
	WalletBalance *float64
	TodayDate     string
	DaysRemaining *int
}

// ChatState is the mutable record threaded through every node of one turn.
// It is born from a request, owned exclusively by that turn, and discarded
// when the turn ends; nothing here outlives a request.
type ChatState struct {
	TurnID   string
	UserID   string
	Facts    Facts
	Messages []*schema.Message

	// VisionNote is the streaming pre-pass result; rendered into the live
	// system entry, never stored as its own message.
	VisionNote string

	// ActiveAgent is the node that last produced an assistant entry.
	ActiveAgent contractx.AgentType

	// Signal is the handoff parsed from the most recent tool execution,
	// nil when the last tools were plain domain tools.
	Signal handoffx.Signal

	// Steps counts node transitions against the ceiling.
	Steps int

	// IntermediateSteps is an append-only audit trail; routing never reads it.
	IntermediateSteps []string

	emit func(contractx.StreamEvent)
}

// New builds the initial state for a turn. History entries convert 1:1 into
// user/assistant messages preserving order, the new user message goes last,
// and an optional image attaches to the first user entry exactly once.
func New(req contractx.ChatRequest, facts Facts) (*ChatState, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, fmt.Errorf("%w: user id is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(req.Message) == "" && len(req.Image) == 0 {
		return nil, fmt.Errorf("%w: message is required", contractx.ErrValidation)
	}

	st := &ChatState{
		TurnID: uuid.NewString(),
		UserID: req.UserID,
		Facts:  facts,
	}

	for _, entry := range req.History {
		switch strings.ToLower(strings.TrimSpace(entry.Role)) {
		case "assistant", "ai":
			st.Messages = append(st.Messages, schema.AssistantMessage(entry.Content, nil))
		default:
			st.Messages = append(st.Messages, schema.UserMessage(entry.Content))
		}
	}
	st.Messages = append(st.Messages, schema.UserMessage(req.Message))

	if len(req.Image) > 0 {
		st.attachImage(req.Image)
	}

	return st, nil
}

// attachImage adds the image as a data-url part on the first user entry.
func (s *ChatState) attachImage(image []byte) {
	for _, m := range s.Messages {
		if m.Role != schema.User {
			continue
		}
		m.MultiContent = []schema.ChatMessagePart{
			{Type: schema.ChatMessagePartTypeText, Text: m.Content},
			{
				Type: schema.ChatMessagePartTypeImageURL,
				ImageURL: &schema.ChatMessageImageURL{
					URL:    dataURL(image),
					Detail: schema.ImageURLDetailAuto,
				},
			},
		}
		m.Content = ""
		return
	}
}

func dataURL(image []byte) string {
	mime := http.DetectContentType(image)
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}

// EnsureSystemMessage makes the given text the single live system entry:
// inserted at the head when missing, replaced in place when present. Node
// steps call this once per execution, so the list never accumulates more
// than one system entry.
func (s *ChatState) EnsureSystemMessage(text string) {
	if len(s.Messages) > 0 && s.Messages[0].Role == schema.System {
		s.Messages[0] = schema.SystemMessage(text)
		return
	}
	s.Messages = append([]*schema.Message{schema.SystemMessage(text)}, s.Messages...)
}

// LastMessage returns the newest message or nil.
func (s *ChatState) LastMessage() *schema.Message {
	if len(s.Messages) == 0 {
		return nil
	}
	return s.Messages[len(s.Messages)-1]
}

// LastAssistantText returns the content of the newest assistant entry.
func (s *ChatState) LastAssistantText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == schema.Assistant {
			return s.Messages[i].Content
		}
	}
	return ""
}

// Append adds messages produced by a node execution.
func (s *ChatState) Append(msgs ...*schema.Message) {
	s.Messages = append(s.Messages, msgs...)
}

// Record appends one line to the audit trail.
func (s *ChatState) Record(format string, args ...any) {
	s.IntermediateSteps = append(s.IntermediateSteps, fmt.Sprintf(format, args...))
}

// SetEmitter installs the per-invocation stream emitter. A nil emitter means
// non-streaming mode.
func (s *ChatState) SetEmitter(fn func(contractx.StreamEvent)) {
	s.emit = fn
}

// Streaming reports whether an emitter is installed.
func (s *ChatState) Streaming() bool {
	return s.emit != nil
}

// Emit sends a stream event; no-op outside streaming mode.
func (s *ChatState) Emit(ev contractx.StreamEvent) {
	if s.emit != nil {
		s.emit(ev)
	}
}
