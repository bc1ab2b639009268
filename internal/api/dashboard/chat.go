package dashboard

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/canopyhq/canopy/internal/assistant"
)

// ChatHandler streams AI planting recommendations into the dashboard.
type ChatHandler struct {
	assistant *assistant.Client
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(client *assistant.Client) *ChatHandler {
	return &ChatHandler{assistant: client}
}

func (h *ChatHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/dashboard/chat", h.Chat, huma.OperationTags("dashboard"))
}

func (h *ChatHandler) Chat(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	query := signals.String("chatquery")
	if query == "" {
		return nil, huma.Error400BadRequest("Query is required")
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSE(humaCtx)
			sse.Signals(map[string]any{"chatbusy": true})

			rec, err := h.assistant.Recommend(ctx, query)
			if err != nil {
				rec = assistant.Fallback()
			}

			sse.Signals(map[string]any{
				"chatbusy":    false,
				"chatsummary": rec.SummaryOfResults,
				"chattip":     rec.Tip,
				"chatcount":   len(rec.Locations),
			})
			sse.DispatchCustomEvent("recommendations", map[string]any{
				"locations": rec.Locations,
			})
		},
	}, nil
}
