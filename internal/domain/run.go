package domain

import "time"

// Stage names a pipeline stage.
type Stage string

const (
	StageAcquisition     Stage = "acquisition"
	StageChangeDetection Stage = "change_detection"
	StageIntegrity       Stage = "integrity"
	StagePromotion       Stage = "promotion"
)

// String returns the string representation of Stage.
func (s Stage) String() string {
	return string(s)
}

// IsValid checks if the stage is a valid value.
func (s Stage) IsValid() bool {
	switch s {
	case StageAcquisition, StageChangeDetection, StageIntegrity, StagePromotion:
		return true
	}
	return false
}

// StageOutcome is the verdict of a single stage.
type StageOutcome string

const (
	StageProceeded StageOutcome = "proceeded"
	StageHalted    StageOutcome = "halted"
	StageFailed    StageOutcome = "failed"
)

// IsValid checks if the outcome is a valid value.
func (o StageOutcome) IsValid() bool {
	return o == StageProceeded || o == StageHalted || o == StageFailed
}

// RunOutcome is the verdict of a whole pipeline run.
type RunOutcome string

const (
	RunPromoted RunOutcome = "promoted"
	RunHalted   RunOutcome = "halted"
	RunFailed   RunOutcome = "failed"
)

// IsValid checks if the outcome is a valid value.
func (o RunOutcome) IsValid() bool {
	return o == RunPromoted || o == RunHalted || o == RunFailed
}

// Run is one ledger row per pipeline run.
// Corresponds to the runs table in PostgreSQL.
type Run struct {
	RunID       string     `json:"runId"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  time.Time  `json:"finishedAt"`
	Locator     string     `json:"locator,omitempty"` // empty when acquisition found nothing
	Outcome     RunOutcome `json:"outcome"`
	HaltedStage Stage      `json:"haltedStage,omitempty"` // empty when promoted
	Message     string     `json:"message,omitempty"`     // halt reason or error text
	Checksum    string     `json:"checksum,omitempty"`    // promoted object checksum, empty unless promoted
}

// StageEvent records one executed stage of a run.
// Corresponds to the stage_events table.
type StageEvent struct {
	EventID    string       `json:"eventId"`
	RunID      string       `json:"runId"`
	Stage      Stage        `json:"stage"`
	Outcome    StageOutcome `json:"outcome"`
	Locator    string       `json:"locator,omitempty"`
	Message    string       `json:"message,omitempty"`
	DurationMs int64        `json:"durationMs"`
	OccurredAt time.Time    `json:"occurredAt"`
}
