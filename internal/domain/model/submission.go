package model

import "time"

type SubmissionOutcome string

const (
	OutcomeSolved       SubmissionOutcome = "Solved"
	OutcomeIncorrect    SubmissionOutcome = "Incorrect"
	OutcomeSolvedBefore SubmissionOutcome = "SolvedBefore" // unofficial check on an already solved problem
)

// Attempt is one answer submission, right or wrong.
type Attempt struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProblemID   int64     `json:"problem_id"`
	Official    bool      `json:"official"`
	Submission  int64     `json:"submission"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type Solve struct {
	ID          int64 `json:"id"`
	UserID      int64 `json:"user_id"`
	ProblemID   int64 `json:"problem_id"`
	NumAttempts int   `json:"num_attempts"`
	Official    bool  `json:"official"`
}

type SubmissionResult struct {
	Outcome     SubmissionOutcome `json:"outcome"`
	NumAttempts int               `json:"num_attempts"`
	ProblemID   int64             `json:"problem_id"`
	Official    bool              `json:"official"`
}
