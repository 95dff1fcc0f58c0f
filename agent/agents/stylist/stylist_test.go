package stylist

import (
	"context"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	handoffx "github.com/styletto/stylist-agent/agent/handoff"
	promptx "github.com/styletto/stylist-agent/agent/prompt"
	statex "github.com/styletto/stylist-agent/agent/state"
	toolx "github.com/styletto/stylist-agent/agent/tool"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	streams   [][]*schema.Message
	err       error
	loop      bool
	idx       int
	streamIdx int
	tools     []*schema.ToolInfo
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		if f.loop && len(f.responses) > 0 {
			f.idx = len(f.responses) - 1
		} else {
			return nil, errors.New("no fake response left")
		}
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	if f.streamIdx < len(f.streams) {
		chunks := f.streams[f.streamIdx]
		f.streamIdx++
		return schema.StreamReaderFromArray(chunks), nil
	}
	msg, err := f.Generate(ctx, input)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	f.tools = tools
	return f, nil
}

func toolCallMsg(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{
				ID:   "call-" + name,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      name,
					Arguments: args,
				},
			},
		},
	}
}

func newTestEngine(t *testing.T, models map[contractx.AgentType]einomodel.ToolCallingChatModel, collab *toolx.Collaborators, stepLimit int) *Engine {
	t.Helper()

	agents := append([]contractx.AgentType{contractx.AgentTypeManager}, contractx.Specialists()...)
	for _, agent := range agents {
		if _, ok := models[agent]; !ok {
			models[agent] = &fakeToolCallingModel{
				responses: []*schema.Message{schema.AssistantMessage("idle", nil)},
				loop:      true,
			}
		}
	}

	engine, err := NewEngine(context.Background(), EngineConfig{
		Models:        models,
		Collaborators: collab,
		Prompts:       promptx.LoadPromptSet(),
		StepLimit:     stepLimit,
	})
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return engine
}

func newTestState(t *testing.T, message string) *statex.ChatState {
	t.Helper()
	st, err := statex.New(contractx.ChatRequest{UserID: "u-1", Message: message}, statex.Facts{
		Currency:  "USD",
		TodayDate: "2026-08-31",
	})
	if err != nil {
		t.Fatalf("statex.New() error = %v", err)
	}
	return st
}

func TestTurnDirectAnswer(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{
		contractx.AgentTypeManager: &fakeToolCallingModel{
			responses: []*schema.Message{
				schema.AssistantMessage(`{"response":"Wear the trench coat."}`, nil),
			},
		},
	}, nil, 0)

	out, err := engine.Run(context.Background(), newTestState(t, "what should I wear?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.ActiveAgent != contractx.AgentTypeManager {
		t.Fatalf("active agent = %s", out.ActiveAgent)
	}
	if !strings.Contains(out.LastAssistantText(), "trench coat") {
		t.Fatalf("unexpected final text: %q", out.LastAssistantText())
	}
	if out.Steps != 1 {
		t.Fatalf("direct answer should take one step, got %d", out.Steps)
	}
}

func TestTurnDelegationRoundTrip(t *testing.T) {
	t.Parallel()

	manager := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMsg(toolx.TransferToolName(contractx.AgentTypeCloset), `{"task":"find jeans"}`),
			schema.AssistantMessage(`{"response":"You own 2 pairs of jeans."}`, nil),
		},
	}
	closet := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMsg(toolx.ToolClosetSearch, `{"query":"jeans"}`),
			toolCallMsg(toolx.ToolTransferBack, `{"summary":"found 2 pairs of jeans"}`),
		},
	}

	var searchedQuery string
	collab := &toolx.Collaborators{
		ClosetSearch: func(ctx context.Context, userID, query string) (string, error) {
			searchedQuery = query
			return "2 pairs of jeans", nil
		},
	}

	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{
		contractx.AgentTypeManager: manager,
		contractx.AgentTypeCloset:  closet,
	}, collab, 0)

	out, err := engine.Run(context.Background(), newTestState(t, "do I own jeans?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if searchedQuery != "jeans" {
		t.Fatalf("closet search not reached, query = %q", searchedQuery)
	}
	if out.ActiveAgent != contractx.AgentTypeManager {
		t.Fatalf("turn must end on the manager, got %s", out.ActiveAgent)
	}
	if !strings.Contains(out.LastAssistantText(), "2 pairs of jeans") {
		t.Fatalf("unexpected final text: %q", out.LastAssistantText())
	}
	if _, ok := out.Signal.(handoffx.HandBack); !ok {
		t.Fatalf("last signal should be the hand-back, got %#v", out.Signal)
	}
	// manager, manager tools, closet, closet tools, closet, closet tools, manager
	if out.Steps != 7 {
		t.Fatalf("unexpected step count: %d", out.Steps)
	}
}

func TestTurnToolResultsPairWithCalls(t *testing.T) {
	t.Parallel()

	manager := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMsg(toolx.ToolProfileLookup, `{}`),
			schema.AssistantMessage(`{"response":"Based on your profile, go with slim fit."}`, nil),
		},
	}
	collab := &toolx.Collaborators{
		ProfileLookup: func(ctx context.Context, userID string) (string, error) {
			return "prefers slim fit", nil
		},
	}

	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{
		contractx.AgentTypeManager: manager,
	}, collab, 0)

	out, err := engine.Run(context.Background(), newTestState(t, "what fit suits me?"))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	var toolMsg *schema.Message
	for _, m := range out.Messages {
		if m.Role == schema.Tool {
			toolMsg = m
		}
	}
	if toolMsg == nil {
		t.Fatal("no tool message recorded")
	}
	if toolMsg.ToolCallID != "call-"+toolx.ToolProfileLookup {
		t.Fatalf("tool message not paired with its call: %q", toolMsg.ToolCallID)
	}
	if toolMsg.Content != "prefers slim fit" {
		t.Fatalf("unexpected tool content: %q", toolMsg.Content)
	}
}

func TestTurnStepCeiling(t *testing.T) {
	t.Parallel()

	manager := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMsg(toolx.TransferToolName(contractx.AgentTypeCloset), `{"task":"loop"}`),
		},
		loop: true,
	}
	closet := &fakeToolCallingModel{
		responses: []*schema.Message{
			toolCallMsg(toolx.ToolTransferBack, `{"summary":"looping"}`),
		},
		loop: true,
	}

	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{
		contractx.AgentTypeManager: manager,
		contractx.AgentTypeCloset:  closet,
	}, nil, 6)

	_, err := engine.Run(context.Background(), newTestState(t, "loop forever"))
	if err == nil {
		t.Fatal("expected the step ceiling to fire")
	}
	if !isIterationLimit(err) {
		t.Fatalf("expected iteration limit error, got %v", err)
	}
}

func TestRouteAfterAgent(t *testing.T) {
	t.Parallel()

	st := newTestState(t, "hi")
	st.Append(toolCallMsg(toolx.ToolProfileLookup, `{}`))
	if got := routeAfterAgent(contractx.AgentTypeManager, st); got != toolsNode(contractx.AgentTypeManager) {
		t.Fatalf("pending calls must route to the tool node, got %s", got)
	}

	st = newTestState(t, "hi")
	st.Append(schema.AssistantMessage("done", nil))
	if got := routeAfterAgent(contractx.AgentTypeManager, st); got != compose.END {
		t.Fatalf("manager without calls must end the turn, got %s", got)
	}
	if got := routeAfterAgent(contractx.AgentTypeCloset, st); got != agentNode(contractx.AgentTypeManager) {
		t.Fatalf("specialist without calls must yield to the manager, got %s", got)
	}
}

func TestRouteAfterTools(t *testing.T) {
	t.Parallel()

	st := newTestState(t, "hi")

	st.Signal = handoffx.Transfer{Target: contractx.AgentTypeBudget, Task: "check price"}
	if got := routeAfterManagerTools(st); got != agentNode(contractx.AgentTypeBudget) {
		t.Fatalf("transfer must enter its specialist, got %s", got)
	}

	st.Signal = nil
	if got := routeAfterManagerTools(st); got != agentNode(contractx.AgentTypeManager) {
		t.Fatalf("plain tool result must loop back to the manager, got %s", got)
	}

	st.Signal = handoffx.HandBack{Summary: "done"}
	if got := routeAfterSpecialistTools(contractx.AgentTypeBudget, st); got != agentNode(contractx.AgentTypeManager) {
		t.Fatalf("hand-back must return to the manager, got %s", got)
	}

	st.Signal = nil
	if got := routeAfterSpecialistTools(contractx.AgentTypeBudget, st); got != agentNode(contractx.AgentTypeBudget) {
		t.Fatalf("plain tool result must resume the specialist, got %s", got)
	}
}

func TestServiceChatDegradesToApology(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{
		contractx.AgentTypeManager: &fakeToolCallingModel{err: errors.New("provider down")},
	}, nil, 0)

	service, err := NewService(ServiceConfig{Engine: engine})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	reply, err := service.Chat(context.Background(), contractx.ChatRequest{UserID: "u-1", Message: "hi"})
	if err != nil {
		t.Fatalf("engine failures must not surface, got %v", err)
	}
	if reply.Response != apologyText {
		t.Fatalf("expected the apology, got %q", reply.Response)
	}
	if reply.Images == nil || reply.SuggestedOutfits == nil {
		t.Fatal("degraded reply must keep empty collections, not nil")
	}
}

func TestServiceChatValidationSurfaces(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{}, nil, 0)
	service, err := NewService(ServiceConfig{Engine: engine})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	_, err = service.Chat(context.Background(), contractx.ChatRequest{Message: "no user"})
	if !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestServiceChatStreamEventOrder(t *testing.T) {
	t.Parallel()

	manager := &fakeToolCallingModel{
		streams: [][]*schema.Message{
			{
				{Role: schema.Assistant, Content: "Try the "},
				{Role: schema.Assistant, Content: "linen suit."},
			},
		},
	}

	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{
		contractx.AgentTypeManager: manager,
	}, nil, 0)
	service, err := NewService(ServiceConfig{Engine: engine})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	var events []contractx.StreamEvent
	for ev := range service.ChatStream(context.Background(), contractx.ChatRequest{UserID: "u-1", Message: "suit ideas?"}) {
		events = append(events, ev)
	}

	if len(events) < 4 {
		t.Fatalf("expected status, chunks, and final, got %#v", events)
	}
	if events[0].Type != contractx.EventStatus {
		t.Fatalf("first event must be a status, got %s", events[0].Type)
	}

	var chunks strings.Builder
	finals := 0
	for i, ev := range events {
		switch ev.Type {
		case contractx.EventChunk:
			chunks.WriteString(ev.Content)
		case contractx.EventFinal:
			finals++
			if i != len(events)-1 {
				t.Fatal("final must be the last event")
			}
			if ev.Reply == nil || ev.Reply.Response != "Try the linen suit." {
				t.Fatalf("unexpected final reply: %#v", ev.Reply)
			}
		case contractx.EventError:
			t.Fatalf("unexpected error event: %#v", ev)
		}
	}
	if finals != 1 {
		t.Fatalf("expected exactly one final event, got %d", finals)
	}
	if chunks.String() != "Try the linen suit." {
		t.Fatalf("chunks must reassemble the answer, got %q", chunks.String())
	}
}

func TestServiceChatStreamErrorEvent(t *testing.T) {
	t.Parallel()

	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{
		contractx.AgentTypeManager: &fakeToolCallingModel{err: errors.New("provider down")},
	}, nil, 0)
	service, err := NewService(ServiceConfig{Engine: engine})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	var events []contractx.StreamEvent
	for ev := range service.ChatStream(context.Background(), contractx.ChatRequest{UserID: "u-1", Message: "hi"}) {
		events = append(events, ev)
	}

	if len(events) == 0 {
		t.Fatal("expected at least the error event")
	}
	last := events[len(events)-1]
	if last.Type != contractx.EventError {
		t.Fatalf("last event must be the error, got %s", last.Type)
	}
	for _, ev := range events {
		if ev.Type == contractx.EventFinal {
			t.Fatal("a failed stream must not emit a final event")
		}
	}
}

func TestCriticReview(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: `{"approved":false,"feedback":"mention the budget"}`},
		},
	}
	critic, err := NewCritic(context.Background(), fake, "you review styling replies", 2)
	if err != nil {
		t.Fatalf("NewCritic() error = %v", err)
	}

	verdict, err := critic.Review(context.Background(), "cheap outfit ideas", "buy this 900 USD coat")
	if err != nil {
		t.Fatalf("Review() error = %v", err)
	}
	if verdict.Approved {
		t.Fatal("expected a rejection")
	}
	if verdict.Feedback != "mention the budget" {
		t.Fatalf("unexpected feedback: %q", verdict.Feedback)
	}
}

func TestServiceRefineRetriesOnRejection(t *testing.T) {
	t.Parallel()

	manager := &fakeToolCallingModel{
		responses: []*schema.Message{
			schema.AssistantMessage(`{"response":"first draft"}`, nil),
			schema.AssistantMessage(`{"response":"revised answer"}`, nil),
		},
	}
	engine := newTestEngine(t, map[contractx.AgentType]einomodel.ToolCallingChatModel{
		contractx.AgentTypeManager: manager,
	}, nil, 0)

	criticModel := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Role: schema.Assistant, Content: `{"approved":false,"feedback":"too vague"}`},
			{Role: schema.Assistant, Content: `{"approved":true}`},
		},
	}
	critic, err := NewCritic(context.Background(), criticModel, "review prompt", 3)
	if err != nil {
		t.Fatalf("NewCritic() error = %v", err)
	}

	service, err := NewService(ServiceConfig{Engine: engine, Critic: critic})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}

	reply, err := service.Chat(context.Background(), contractx.ChatRequest{UserID: "u-1", Message: "outfit?"})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if reply.Response != "revised answer" {
		t.Fatalf("expected the revised answer, got %q", reply.Response)
	}
}
