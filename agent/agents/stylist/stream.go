package stylist

import (
	"context"
	"errors"
	"io"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/styletto/stylist-agent/agent/contract"
	statex "github.com/styletto/stylist-agent/agent/state"
)

// User-facing status labels, one per agent plus the long-running image call.
var statusLabels = map[contractx.AgentType]string{
	contractx.AgentTypeManager:    "Your stylist is thinking...",
	contractx.AgentTypeCloset:     "Looking through your closet...",
	contractx.AgentTypeAdvisor:    "Browsing the brand catalog...",
	contractx.AgentTypeBudget:     "Checking the numbers...",
	contractx.AgentTypeVisualizer: "Putting your look together...",
}

const (
	imageGenStatus = "Generating your outfit image, this can take a moment..."
	reviewStatus   = "Giving it one last look..."
)

func statusEvent(agent contractx.AgentType) contractx.StreamEvent {
	return contractx.StreamEvent{Type: contractx.EventStatus, Content: statusLabels[agent]}
}

// streamReply consumes a model stream, forwarding content fragments as chunk
// events until the first tool-call delta appears, and returns the
// concatenated full message. A manager reply that turns out to be a
// delegation produces no chunks because those replies carry no content.
func streamReply(ctx context.Context, m einomodel.BaseChatModel, st *statex.ChatState) (*schema.Message, error) {
	sr, err := m.Stream(ctx, st.Messages)
	if err != nil {
		return nil, err
	}
	defer sr.Close()

	var (
		chunks      []*schema.Message
		sawToolCall bool
	)
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)

		if len(chunk.ToolCalls) > 0 {
			sawToolCall = true
		}
		if !sawToolCall && chunk.Content != "" {
			st.Emit(contractx.StreamEvent{Type: contractx.EventChunk, Content: chunk.Content})
		}
	}

	if len(chunks) == 0 {
		return nil, errors.New("model stream produced no chunks")
	}
	return schema.ConcatMessages(chunks)
}
