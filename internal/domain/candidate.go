package domain

import "time"

// Candidate is the verdict token threaded through the pipeline stages.
// A stage never mutates a Candidate; it returns a new value carrying its verdict.
type Candidate struct {
	Locator        string    `json:"locator,omitempty"`        // staging key, empty when acquisition found nothing
	Proceed        bool      `json:"proceed"`                  // false halts every downstream stage
	Timestamp      time.Time `json:"timestamp"`                // creation time of the first candidate in the run
	FailureMessage string    `json:"failureMessage,omitempty"` // set by the halting stage
}

// NewCandidate creates the candidate that seeds a run.
func NewCandidate(locator string, at time.Time) Candidate {
	return Candidate{
		Locator:   locator,
		Proceed:   true,
		Timestamp: at.UTC(),
	}
}

// NoCandidate creates a halted seed with no locator.
func NoCandidate(at time.Time, reason string) Candidate {
	return Candidate{
		Proceed:        false,
		Timestamp:      at.UTC(),
		FailureMessage: reason,
	}
}

// Halt returns a copy that stops the pipeline with the given reason.
// Locator and Timestamp are carried over unchanged.
func (c Candidate) Halt(reason string) Candidate {
	c.Proceed = false
	c.FailureMessage = reason
	return c
}

// Continue returns a copy that lets the pipeline carry on.
func (c Candidate) Continue() Candidate {
	c.Proceed = true
	c.FailureMessage = ""
	return c
}

// Halted reports whether a previous stage stopped the pipeline.
func (c Candidate) Halted() bool {
	return !c.Proceed
}

// HasLocator reports whether acquisition nominated a file.
func (c Candidate) HasLocator() bool {
	return c.Locator != ""
}
