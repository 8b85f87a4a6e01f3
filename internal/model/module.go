package model

// ModuleStep is one content step of a training module (video + text)
type ModuleStep struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Content    string `json:"content"`
	MediaURL   string `json:"media_url"`
	OrderIndex int    `json:"order_index"`
}

// Module is the training module resource served by the LMS backend at
// GET /api/v1/modules/{id}
type Module struct {
	ID           int          `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Objectives   string       `json:"objectives,omitempty"`
	VideoURL     string       `json:"video_url,omitempty"`
	IsProcessing bool         `json:"is_processing,omitempty"`
	QuizData     string       `json:"quiz_data,omitempty"` // JSON-encoded questions
	Steps        []ModuleStep `json:"steps"`
}

// HasStep reports whether idx resolves to an existing content step
func (m *Module) HasStep(idx int) bool {
	return idx >= 0 && idx < len(m.Steps)
}
