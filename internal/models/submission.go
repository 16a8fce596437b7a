package models

import "time"

// Submission is a pre-persistence alert payload, as posted by a client.
// Location is a pointer so a missing pair is distinguishable from (0, 0).
type Submission struct {
	SubmitterID   string        `json:"submitterId"`
	SubmitterName string        `json:"submitterName"`
	Location      *Location     `json:"location"`
	Category      AlertCategory `json:"category,omitempty"`
	Description   string        `json:"description,omitempty"`
}

// QueuedSubmission is a Submission held in the client's offline queue.
// QueuedAt is diagnostic only; ordering is the queue's FIFO position.
type QueuedSubmission struct {
	Submission
	QueuedAt time.Time `json:"queuedAt"`
}
