package contract

type AgentType string

const (
	AgentTypeManager    AgentType = "manager"
	AgentTypeCloset     AgentType = "closet"
	AgentTypeAdvisor    AgentType = "advisor"
	AgentTypeBudget     AgentType = "budget"
	AgentTypeVisualizer AgentType = "visualizer"
)

// Specialists returns every delegable agent in the fixed order used for
// sentinel matching. Routing depends on this order being stable.
func Specialists() []AgentType {
	return []AgentType{
		AgentTypeCloset,
		AgentTypeAdvisor,
		AgentTypeBudget,
		AgentTypeVisualizer,
	}
}

type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one conversational turn as submitted by the API layer.
type ChatRequest struct {
	UserID  string         `json:"user_id"`
	Message string         `json:"message"`
	History []HistoryEntry `json:"history,omitempty"`
	Image   []byte         `json:"-"`
}

// Reply is the structured result of a turn, in both modes.
type Reply struct {
	Response           string              `json:"response"`
	Images             []string            `json:"images"`
	SuggestedOutfits   []SuggestedOutfit   `json:"suggested_outfits"`
	WalletConfirmation *WalletConfirmation `json:"wallet_confirmation,omitempty"`
}

type SuggestedOutfit struct {
	Name        string       `json:"name"`
	Score       float64      `json:"score"`
	ImageURL    string       `json:"image_url"`
	ItemDetails []OutfitItem `json:"item_details,omitempty"`
}

type OutfitItem struct {
	ID          string `json:"id"`
	SubCategory string `json:"sub_category"`
	ImageURL    string `json:"image_url"`
}

type WalletConfirmation struct {
	Required       bool    `json:"required"`
	ItemName       string  `json:"item_name,omitempty"`
	Price          float64 `json:"price,omitempty"`
	Currency       string  `json:"currency,omitempty"`
	CurrentBalance float64 `json:"current_balance,omitempty"`
}

type EventType string

const (
	EventStatus EventType = "status"
	EventChunk  EventType = "chunk"
	EventFinal  EventType = "final"
	EventError  EventType = "error"
)

// StreamEvent is one increment of progress in streaming mode. Reply is set
// only on final events.
type StreamEvent struct {
	Type    EventType `json:"type"`
	Content string    `json:"content,omitempty"`
	Reply   *Reply    `json:"reply,omitempty"`
}
