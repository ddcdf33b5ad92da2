package domain

// TextRequest is the inline submission payload
type TextRequest struct {
	SessionID string   `json:"session_id" validate:"required,uuid4"`
	Documents []string `json:"documents"  validate:"required,min=1"`
	Context   string   `json:"context"`
}

// Accepted acknowledges an admitted batch
type Accepted struct {
	BatchID        string `json:"batch_id"`
	TotalDocuments int    `json:"total_documents"`
}
