package baseline

import "time"

// EventAnalysisCompleted is the event type attribute of completion messages.
const EventAnalysisCompleted = "analysis.completed"

// AnalysisCompleted is published after an analysis is stored.
type AnalysisCompleted struct {
	AnalysisID  string    `json:"analysisId"`
	JobID       string    `json:"jobId,omitempty"`
	URL         string    `json:"url"`
	Score       int       `json:"score"`
	Grade       string    `json:"grade"`
	Compliance  string    `json:"compliance"`
	Limited     bool      `json:"limited"`
	ReportURI   string    `json:"reportUri,omitempty"`
	CompletedAt time.Time `json:"completedAt"`
}

// CompletedEvent builds the completion event for result.
func CompletedEvent(result AnalysisResult, jobID, reportURI string, at time.Time) AnalysisCompleted {
	return AnalysisCompleted{
		AnalysisID:  result.ID,
		JobID:       jobID,
		URL:         result.URL,
		Score:       result.Overall.Score,
		Grade:       result.Overall.Grade,
		Compliance:  result.Overall.Compliance,
		Limited:     result.Limited,
		ReportURI:   reportURI,
		CompletedAt: at,
	}
}
