package domain

import "time"

type TriggerKind string

const (
	TriggerSchedule TriggerKind = "schedule"
	TriggerDispatch TriggerKind = "dispatch"
	TriggerCLI      TriggerKind = "cli"
)

// RunResult summarises one monitor pass.
type RunResult struct {
	RunID      string        `json:"run_id"`
	Trigger    TriggerKind   `json:"trigger"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Checkpoint string        `json:"checkpoint"`
	Fetched    int           `json:"fetched"`
	Skipped    int           `json:"skipped"`
	Empty      int           `json:"empty"`
	Classified int           `json:"classified"`
	Alerted    int           `json:"alerted"`
	Deferred   int           `json:"deferred"`
	Errors     []string      `json:"errors,omitempty"`
	Duration   time.Duration `json:"duration"`

	// LowConfidence counts classified posts that were not alerted on
	// because the verdict fell below the threshold.
	LowConfidence int `json:"low_confidence"`
}

// ProcessedPost is the post-log row written for every handled post.
type ProcessedPost struct {
	PostID         string         `bson:"post_id"`
	Text           string         `bson:"text"`
	Classification Classification `bson:"classification,omitempty"`
	Explanation    string         `bson:"explanation,omitempty"`
	Confidence     float64        `bson:"confidence"`
	Alerted        bool           `bson:"alerted"`
	LowConfidence  bool           `bson:"low_confidence"`
	RunID          string         `bson:"run_id"`
	ProcessedAt    time.Time      `bson:"processed_at"`
}
