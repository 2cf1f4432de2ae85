package notify

// Email is a single transactional message
type Email struct {
	To      string
	Subject string
	Text    string
	Tags    map[string]string
}

type sendRequest struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// ErrorResponse is the relay's error body
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
