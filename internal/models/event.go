package models

import "time"

// ExchangeEvent is published after each /chat call when events are enabled.
// It carries no prompt or reply text.
type ExchangeEvent struct {
	ID          string    `json:"id,omitempty"`
	PromptChars int       `json:"prompt_chars"`
	Outcome     string    `json:"outcome"`
	DurationMS  int64     `json:"duration_ms"`
	At          time.Time `json:"at"`
}
