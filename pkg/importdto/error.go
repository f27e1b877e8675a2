package importdto

// DomainError is the uniform error body returned by the HTTP layer.
// Retryable marks failures that clear on their own, like a held run lock.
type DomainError struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "import service error"
}
