package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"potd_engine/internal/app/competition"
	"potd_engine/internal/app/notify"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/domain/repository/memory"
)

type recordingDispatcher struct {
	mu      sync.Mutex
	intents []notify.Intent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, intents ...notify.Intent) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.intents = append(d.intents, intents...)
	return nil
}

func (d *recordingDispatcher) kinds() map[notify.Kind]int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := map[notify.Kind]int{}
	for _, in := range d.intents {
		out[in.Kind]++
	}
	return out
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var testDests = []model.Destination{
	{Name: "main", WebhookURL: "http://example.invalid", ChannelID: "c1", SolvedRoleID: "solved"},
}

type testEnv struct {
	store      *repository.Store
	clock      *fakeClock
	session    *competition.Session
	dispatcher *recordingDispatcher
	scoring    *ScoringService
	problems   *ProblemService
	submit     *SubmissionService
	advance    *AdvanceService
	admin      *AdminService
	ratings    *RatingService
	board      *LeaderboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:      memory.NewStore(),
		clock:      &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		dispatcher: &recordingDispatcher{},
	}
	env.session = competition.NewSessionWithClock(env.clock.now)
	env.scoring = NewScoringService(env.store, 100, nil)
	env.problems = NewProblemService(env.store, nil)
	env.submit = NewSubmissionService(env.store, env.session, env.scoring, env.problems, env.dispatcher, testDests)
	env.advance = NewAdvanceService(env.store, env.session, env.scoring, env.dispatcher, nil, testDests, time.UTC, []int64{999})
	env.admin = NewAdminService(env.store, env.scoring, nil)
	env.ratings = NewRatingService(env.store, env.session)
	env.board = NewLeaderboardService(env.store)
	return env
}

func (e *testEnv) season(t *testing.T, name string, running bool) *model.Season {
	t.Helper()
	s, err := e.admin.NewSeason(context.Background(), NewSeasonRequest{Name: name})
	if err != nil {
		t.Fatalf("NewSeason: %v", err)
	}
	if running {
		if s, err = e.admin.StartSeason(context.Background(), s.ID); err != nil {
			t.Fatalf("StartSeason: %v", err)
		}
	}
	return s
}

func (e *testEnv) problem(t *testing.T, seasonID int64, date string, answer int64) *model.Problem {
	t.Helper()
	p, err := e.admin.AddProblem(context.Background(), AddProblemRequest{
		SeasonID: seasonID, Date: date, Statement: "statement " + date, Answer: &answer,
	})
	if err != nil {
		t.Fatalf("AddProblem: %v", err)
	}
	return p
}

// livePotd creates a running season whose current problem is posted and has the given answer.
func (e *testEnv) livePotd(t *testing.T, answer int64) (*model.Season, *model.Problem) {
	t.Helper()
	s := e.season(t, "Season One", true)
	p := e.problem(t, s.ID, "2024-03-01", answer)
	res, err := e.advance.Advance(context.Background())
	if err != nil || res.Outcome != AdvancePosted {
		t.Fatalf("Advance = %+v, %v", res, err)
	}
	return s, p
}

// skipCooldown moves the clock past any cooldown.
func (e *testEnv) skipCooldown() {
	e.clock.advance(time.Hour)
}
