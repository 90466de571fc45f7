// Package notify turns committed state changes into messages for the chat destinations.
package notify

import (
	"context"
	"time"

	"potd_engine/internal/domain/model"

	"github.com/google/uuid"
)

type Kind string

const (
	KindProblemPosted Kind = "problem_posted"
	KindProblemLate   Kind = "problem_late"
	KindClearSolved   Kind = "clear_solved" // remove the solved role from everyone
	KindGrantSolved   Kind = "grant_solved" // give one user the solved role
)

// Intent is one message for one destination. Intents are created only after the
// state change they describe has been committed.
type Intent struct {
	ID            string    `json:"id"`
	Kind          Kind      `json:"kind"`
	Destination   string    `json:"destination"`
	ProblemID     int64     `json:"problem_id,omitempty"`
	ProblemDate   string    `json:"problem_date,omitempty"`
	Statement     string    `json:"statement,omitempty"`
	ImageIDs      []int64   `json:"image_ids,omitempty"`
	UserID        int64     `json:"user_id,omitempty"`
	ExemptUserIDs []int64   `json:"exempt_user_ids,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Dispatcher hands intents to the delivery side. It must not block on delivery.
type Dispatcher interface {
	Dispatch(ctx context.Context, intents ...Intent) error
}

func newIntent(kind Kind, dest model.Destination) Intent {
	return Intent{ID: uuid.NewString(), Kind: kind, Destination: dest.Name, CreatedAt: time.Now().UTC()}
}

func PostedIntents(dests []model.Destination, p *model.Problem, imageIDs []int64) []Intent {
	out := make([]Intent, 0, len(dests))
	for _, d := range dests {
		in := newIntent(KindProblemPosted, d)
		in.ProblemID = p.ID
		in.ProblemDate = p.Date.Format(model.DateLayout)
		in.Statement = p.Statement
		in.ImageIDs = imageIDs
		out = append(out, in)
	}
	return out
}

func LateIntents(dests []model.Destination) []Intent {
	out := make([]Intent, 0, len(dests))
	for _, d := range dests {
		out = append(out, newIntent(KindProblemLate, d))
	}
	return out
}

func ClearSolvedIntents(dests []model.Destination, exempt []int64) []Intent {
	out := make([]Intent, 0, len(dests))
	for _, d := range dests {
		if d.SolvedRoleID == "" {
			continue
		}
		in := newIntent(KindClearSolved, d)
		in.ExemptUserIDs = exempt
		out = append(out, in)
	}
	return out
}

func GrantSolvedIntents(dests []model.Destination, userID, problemID int64) []Intent {
	out := make([]Intent, 0, len(dests))
	for _, d := range dests {
		if d.SolvedRoleID == "" {
			continue
		}
		in := newIntent(KindGrantSolved, d)
		in.UserID = userID
		in.ProblemID = problemID
		out = append(out, in)
	}
	return out
}
