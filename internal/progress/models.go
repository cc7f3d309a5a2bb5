package progress

import "time"

// Record is one learner's state on one topic. (TopicID, UserID) is unique.
type Record struct {
	TopicID     string    `json:"topic_id" db:"topic_id"`
	UserID      string    `json:"user_id" db:"user_id"`
	Completed   bool      `json:"completed" db:"completed"`
	LastAttempt time.Time `json:"last_attempt" db:"last_attempt"`
}

// CompletionXP is awarded the first time a learner completes a topic.
const CompletionXP = 10
