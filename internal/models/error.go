package models

// DetailResponse carries a single human-readable failure description.
type DetailResponse struct {
	Detail string `json:"detail"`
}

// FieldError describes one invalid request field.
type FieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationResponse is the 422 body for request validation failures.
type ValidationResponse struct {
	Detail []FieldError `json:"detail"`
}
