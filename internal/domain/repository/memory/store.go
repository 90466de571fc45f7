// Package memory keeps the whole catalog in process memory. It backs
// STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
)

type rankingKey struct{ seasonID, userID int64 }
type solveKey struct{ userID, problemID int64 }

type state struct {
	seasons  map[int64]model.Season
	problems map[int64]model.Problem
	images   map[int64]model.ProblemImage
	attempts []model.Attempt
	solves   map[solveKey]model.Solve
	rankings map[rankingKey]model.Ranking
	choices  []model.RatingChoice
	users    map[int64]model.User
	nextID   int64
}

func newState() *state {
	return &state{
		seasons:  map[int64]model.Season{},
		problems: map[int64]model.Problem{},
		images:   map[int64]model.ProblemImage{},
		solves:   map[solveKey]model.Solve{},
		rankings: map[rankingKey]model.Ranking{},
		users:    map[int64]model.User{},
	}
}

// clone copies maps and slices. Stored structs only share pointer fields that are never mutated in place.
func (s *state) clone() *state {
	c := &state{
		seasons:  make(map[int64]model.Season, len(s.seasons)),
		problems: make(map[int64]model.Problem, len(s.problems)),
		images:   make(map[int64]model.ProblemImage, len(s.images)),
		attempts: append([]model.Attempt(nil), s.attempts...),
		solves:   make(map[solveKey]model.Solve, len(s.solves)),
		rankings: make(map[rankingKey]model.Ranking, len(s.rankings)),
		choices:  append([]model.RatingChoice(nil), s.choices...),
		users:    make(map[int64]model.User, len(s.users)),
		nextID:   s.nextID,
	}
	for k, v := range s.seasons {
		c.seasons[k] = v
	}
	for k, v := range s.problems {
		c.problems[k] = v
	}
	for k, v := range s.images {
		c.images[k] = v
	}
	for k, v := range s.solves {
		c.solves[k] = v
	}
	for k, v := range s.rankings {
		c.rankings[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	return c
}

// DB is the shared in-memory database behind every repository of one Store.
type DB struct {
	mu   sync.Mutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time
}

func (db *DB) id() int64 {
	db.st.nextID++
	return db.st.nextID
}

// NewStore returns a repository.Store whose repositories share one in-memory database.
func NewStore() *repository.Store {
	db := &DB{st: newState(), now: time.Now}
	return &repository.Store{
		Seasons:     &seasonRepo{db},
		Problems:    &problemRepo{db},
		Submissions: &submissionRepo{db},
		Rankings:    &rankingRepo{db},
		Ratings:     &ratingRepo{db},
		Users:       &userRepo{db},
		Tx:          db,
	}
}

// RunInTx serializes transactions and restores the previous state if fn fails.
func (db *DB) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	snapshot := db.st.clone()
	db.mu.Unlock()

	err := fn(nil)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		db.mu.Lock()
		db.st = snapshot
		db.mu.Unlock()
	}
	return err
}

type seasonRepo struct{ db *DB }

func (r *seasonRepo) Create(_ context.Context, _ *sql.Tx, s *model.Season) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.st.seasons {
		if existing.Slug == s.Slug {
			return common.Errorf("season with this slug already exists: %w", common.ErrStateConflict)
		}
		if s.Running && existing.Running {
			return common.ErrSeasonAlreadyRunning
		}
	}
	s.ID = r.db.id()
	s.CreatedAt = r.db.now()
	r.db.st.seasons[s.ID] = *s
	return nil
}

func (r *seasonRepo) FindByID(_ context.Context, _ *sql.Tx, id int64) (*model.Season, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.st.seasons[id]
	if !ok {
		return nil, common.ErrSeasonNotFound
	}
	return &s, nil
}

func (r *seasonRepo) FindRunning(_ context.Context, _ *sql.Tx) (*model.Season, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range r.db.st.seasons {
		if s.Running {
			s := s
			return &s, nil
		}
	}
	return nil, nil
}

func (r *seasonRepo) List(_ context.Context) ([]model.Season, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	seasons := make([]model.Season, 0, len(r.db.st.seasons))
	for _, s := range r.db.st.seasons {
		seasons = append(seasons, s)
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].ID < seasons[j].ID })
	return seasons, nil
}

func (r *seasonRepo) SetRunning(_ context.Context, _ *sql.Tx, id int64, running bool) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.st.seasons[id]
	if !ok {
		return common.ErrSeasonNotFound
	}
	if running {
		for otherID, other := range r.db.st.seasons {
			if otherID != id && other.Running {
				return common.ErrSeasonAlreadyRunning
			}
		}
	}
	s.Running = running
	r.db.st.seasons[id] = s
	return nil
}

func (r *seasonRepo) SetLatestPotd(_ context.Context, _ *sql.Tx, seasonID, problemID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.st.seasons[seasonID]
	if !ok {
		return common.ErrSeasonNotFound
	}
	s.LatestPotd = &problemID
	r.db.st.seasons[seasonID] = s
	return nil
}

func (r *seasonRepo) SetCutoffs(_ context.Context, _ *sql.Tx, id int64, c model.Cutoffs) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.st.seasons[id]
	if !ok {
		return common.ErrSeasonNotFound
	}
	s.Cutoffs = c
	r.db.st.seasons[id] = s
	return nil
}

type problemRepo struct{ db *DB }

func (r *problemRepo) Create(_ context.Context, _ *sql.Tx, p *model.Problem) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.seasons[p.SeasonID]; !ok {
		return common.ErrSeasonNotFound
	}
	p.ID = r.db.id()
	p.CreatedAt = r.db.now()
	stored := *p
	stored.ImageIDs = nil
	r.db.st.problems[p.ID] = stored
	return nil
}

func (r *problemRepo) Update(_ context.Context, _ *sql.Tx, id int64, u model.ProblemUpdate) error {
	if u.IsEmpty() {
		return common.ErrEmptyProblemUpdate
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.st.problems[id]
	if !ok {
		return common.ErrProblemNotFound
	}
	if u.SeasonID != nil {
		if _, ok := r.db.st.seasons[*u.SeasonID]; !ok {
			return common.ErrSeasonNotFound
		}
	}
	u.Apply(&p)
	r.db.st.problems[id] = p
	return nil
}

func (r *problemRepo) FindByID(_ context.Context, _ *sql.Tx, id int64) (*model.Problem, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.st.problems[id]
	if !ok {
		return nil, common.ErrProblemNotFound
	}
	return &p, nil
}

func (r *problemRepo) filter(keep func(p model.Problem) bool) []model.Problem {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.Problem{}
	for _, p := range r.db.st.problems {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *problemRepo) FindByDate(_ context.Context, date time.Time, publicOnly bool) ([]model.Problem, error) {
	return r.filter(func(p model.Problem) bool {
		return p.Date.Equal(date) && (!publicOnly || p.Public)
	}), nil
}

func (r *problemRepo) FindBySeasonAndDate(_ context.Context, _ *sql.Tx, seasonID int64, date time.Time) ([]model.Problem, error) {
	return r.filter(func(p model.Problem) bool {
		return p.SeasonID == seasonID && p.Date.Equal(date)
	}), nil
}

func (r *problemRepo) ListIDsBySeason(_ context.Context, _ *sql.Tx, seasonID int64) ([]int64, error) {
	ids := []int64{}
	for _, p := range r.filter(func(p model.Problem) bool { return p.SeasonID == seasonID }) {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (r *problemRepo) SetPublic(_ context.Context, _ *sql.Tx, id int64, public bool) error {
	return r.Update(context.Background(), nil, id, model.ProblemUpdate{Public: &public})
}

func (r *problemRepo) UpdateStats(_ context.Context, _ *sql.Tx, stats []model.ProblemStats) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, s := range stats {
		p, ok := r.db.st.problems[s.ProblemID]
		if !ok {
			continue
		}
		p.WeightedSolves = s.WeightedSolves
		p.BasePoints = s.BasePoints
		r.db.st.problems[s.ProblemID] = p
	}
	return nil
}

func (r *problemRepo) UpdateRating(_ context.Context, _ *sql.Tx, id int64, t model.RatingType, rating float64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	p, ok := r.db.st.problems[id]
	if !ok {
		return common.ErrProblemNotFound
	}
	if t == model.RatingDifficulty {
		p.DifficultyRating = rating
	} else {
		p.QualityRating = rating
	}
	r.db.st.problems[id] = p
	return nil
}

func (r *problemRepo) CreateImage(_ context.Context, _ *sql.Tx, img *model.ProblemImage) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.problems[img.ProblemID]; !ok {
		return common.ErrProblemNotFound
	}
	img.ID = r.db.id()
	img.CreatedAt = r.db.now()
	stored := *img
	stored.Data = append([]byte(nil), img.Data...)
	r.db.st.images[img.ID] = stored
	return nil
}

func (r *problemRepo) FindImage(_ context.Context, problemID, imageID int64) (*model.ProblemImage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	img, ok := r.db.st.images[imageID]
	if !ok || img.ProblemID != problemID {
		return nil, common.ErrImageNotFound
	}
	return &img, nil
}

func (r *problemRepo) ListImageIDs(_ context.Context, problemID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := []int64{}
	for id, img := range r.db.st.images {
		if img.ProblemID == problemID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type submissionRepo struct{ db *DB }

func (r *submissionRepo) CreateAttempt(_ context.Context, _ *sql.Tx, a *model.Attempt) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.st.problems[a.ProblemID]; !ok {
		return common.ErrProblemNotFound
	}
	a.ID = r.db.id()
	a.SubmittedAt = r.db.now()
	r.db.st.attempts = append(r.db.st.attempts, *a)
	return nil
}

func (r *submissionRepo) CountAttempts(_ context.Context, _ *sql.Tx, userID, problemID int64, official bool) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, a := range r.db.st.attempts {
		if a.UserID == userID && a.ProblemID == problemID && a.Official == official {
			n++
		}
	}
	return n, nil
}

func (r *submissionRepo) ListAttempts(_ context.Context, _ *sql.Tx, problemID int64) ([]model.Attempt, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.Attempt{}
	// attempts is append-only, so slice order is submission order.
	for _, a := range r.db.st.attempts {
		if a.ProblemID == problemID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *submissionRepo) FindSolve(_ context.Context, _ *sql.Tx, userID, problemID int64) (*model.Solve, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.st.solves[solveKey{userID, problemID}]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &s, nil
}

func (r *submissionRepo) CreateSolve(_ context.Context, _ *sql.Tx, s *model.Solve) (bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := solveKey{s.UserID, s.ProblemID}
	if _, exists := r.db.st.solves[key]; exists {
		return false, nil
	}
	s.ID = r.db.id()
	r.db.st.solves[key] = *s
	return true, nil
}

func (r *submissionRepo) DeleteSolvesForProblem(_ context.Context, _ *sql.Tx, problemID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for k := range r.db.st.solves {
		if k.problemID == problemID {
			delete(r.db.st.solves, k)
		}
	}
	return nil
}

func (r *submissionRepo) ListOfficialSolvesBySeason(_ context.Context, _ *sql.Tx, seasonID int64) ([]model.Solve, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.Solve{}
	for _, s := range r.db.st.solves {
		if p, ok := r.db.st.problems[s.ProblemID]; ok && s.Official && p.SeasonID == seasonID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ProblemID != out[j].ProblemID {
			return out[i].ProblemID < out[j].ProblemID
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *submissionRepo) ListSolvedProblemIDs(_ context.Context, userID int64) ([]int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	ids := []int64{}
	for k := range r.db.st.solves {
		if k.userID == userID {
			ids = append(ids, k.problemID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type rankingRepo struct{ db *DB }

func (r *rankingRepo) Ensure(_ context.Context, _ *sql.Tx, seasonID, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	key := rankingKey{seasonID, userID}
	if _, ok := r.db.st.rankings[key]; ok {
		return nil
	}
	n := 0
	for k := range r.db.st.rankings {
		if k.seasonID == seasonID {
			n++
		}
	}
	r.db.st.rankings[key] = model.Ranking{SeasonID: seasonID, UserID: userID, Rank: n + 1}
	return nil
}

func (r *rankingRepo) ListBySeason(_ context.Context, _ *sql.Tx, seasonID int64) ([]model.Ranking, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []model.Ranking{}
	for k, rk := range r.db.st.rankings {
		if k.seasonID == seasonID {
			out = append(out, rk)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rank != out[j].Rank {
			return out[i].Rank < out[j].Rank
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

func (r *rankingRepo) Upsert(_ context.Context, _ *sql.Tx, rankings []model.Ranking) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, rk := range rankings {
		r.db.st.rankings[rankingKey{rk.SeasonID, rk.UserID}] = rk
	}
	return nil
}

type ratingRepo struct{ db *DB }

func (r *ratingRepo) CreateChoice(_ context.Context, _ *sql.Tx, c *model.RatingChoice) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	c.ID = r.db.id()
	c.CreatedAt = r.db.now()
	r.db.st.choices = append(r.db.st.choices, *c)
	return nil
}

func (r *ratingRepo) CountJudgments(_ context.Context, _ *sql.Tx, problemID int64, t model.RatingType) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	n := 0
	for _, c := range r.db.st.choices {
		if c.Type == t && c.Choice != model.ChoiceUndecide && (c.Problem1ID == problemID || c.Problem2ID == problemID) {
			n++
		}
	}
	return n, nil
}

type userRepo struct{ db *DB }

func (r *userRepo) Ensure(_ context.Context, _ *sql.Tx, id int64) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.st.users[id]
	if !ok {
		now := r.db.now()
		u = model.User{ID: id, ReceiveMedals: true, CreatedAt: now, UpdatedAt: now}
		r.db.st.users[id] = u
	}
	return &u, nil
}

func (r *userRepo) FindByID(_ context.Context, id int64) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.st.users[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return &u, nil
}

func (r *userRepo) FindByIDs(_ context.Context, ids []int64) (map[int64]*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make(map[int64]*model.User, len(ids))
	for _, id := range ids {
		if u, ok := r.db.st.users[id]; ok {
			u := u
			out[id] = &u
		}
	}
	return out, nil
}

func (r *userRepo) UpdateSettings(_ context.Context, id int64, s model.UserSettings) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.st.users[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	if s.Nickname != nil {
		nick := *s.Nickname
		u.Nickname = &nick
	}
	if s.Anonymous != nil {
		u.Anonymous = *s.Anonymous
	}
	if s.ReceiveMedals != nil {
		u.ReceiveMedals = *s.ReceiveMedals
	}
	u.UpdatedAt = r.db.now()
	r.db.st.users[id] = u
	return &u, nil
}
