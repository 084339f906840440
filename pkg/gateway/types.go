package gateway

import (
	"github.com/harun/vtool/pkg/catalog"
	"github.com/harun/vtool/pkg/planner"
)

// AskRequest is the body of POST /api/v1/ask
type AskRequest struct {
	Question string `json:"question"`
}

// ErrorResponse is returned for every failure
type ErrorResponse struct {
	Error  string         `json:"error"`
	Kind   string         `json:"kind,omitempty"`
	Origin planner.Origin `json:"origin,omitempty"`
}

// ToolListResponse lists tool names only; descriptions are fetched by name.
type ToolListResponse struct {
	Tools []string `json:"tools"`
}

// ToolResponse describes one tool
type ToolResponse struct {
	catalog.ToolDescriptor
	Text string `json:"text"`
}
