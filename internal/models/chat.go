package models

// ChatRequest is the payload accepted by POST /chat.
type ChatRequest struct {
	Prompt string `json:"prompt"`
}

// ChatResponse is returned for every successful relay.
type ChatResponse struct {
	ID       string `json:"id"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

// HealthResponse is the liveness body.
type HealthResponse struct {
	Status string `json:"status"`
}
