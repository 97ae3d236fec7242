package models

// LMStudioMessage is one role-tagged message in the chat-completion protocol.
type LMStudioMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LMStudioChatRequest is the body sent to /v1/chat/completions.
type LMStudioChatRequest struct {
	Model       string            `json:"model"`
	Messages    []LMStudioMessage `json:"messages"`
	Temperature float64           `json:"temperature"`
}

// LMStudioChatResponse is the subset of the completion body the relay reads.
// Pointer fields stay nil when the upstream omits them.
type LMStudioChatResponse struct {
	Choices []LMStudioChoice `json:"choices"`
}

type LMStudioChoice struct {
	Message *LMStudioReply `json:"message"`
}

type LMStudioReply struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}
