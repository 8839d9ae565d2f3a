package models

// Recommendation is one ranked habit. Name and Description are null when the id is not
// among the request's habits (possible when ranking against a stored model).
type Recommendation struct {
	ID          string  `json:"id"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Score       float64 `json:"score"`
}

// RecommendResponse is the success body.
type RecommendResponse struct {
	Recommendations []Recommendation `json:"recommendations"`
}

// TrainResponse is the body written after a training run.
type TrainResponse struct {
	Status     string `json:"status"`
	Saved      string `json:"saved"`
	HabitCount int    `json:"habitCount"`
}

// ErrorResponse is the body for request-level failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error messages written to clients.
const (
	MsgInvalidInput  = "Invalid input"
	MsgMissingTarget = "Missing targetHabitId"
	MsgSaveFailed    = "Failed to save model"
)

// StatusResponse summarizes the model file and the habit database.
type StatusResponse struct {
	ModelPath      string `json:"modelPath"`
	ModelStatus    string `json:"modelStatus"`
	ModelVectors   int    `json:"modelVectors"`
	DatabasePath   string `json:"databasePath,omitempty"`
	HabitCount     int64  `json:"habitCount"`
	DiskUsageBytes int64  `json:"diskUsageBytes"`
}

// SearchResponse is the body of a habit search. Scores fuse keyword relevance with
// TF-IDF similarity to the query.
type SearchResponse struct {
	Query   string           `json:"query"`
	Results []Recommendation `json:"results"`
}
