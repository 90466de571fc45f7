package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"potd_engine/internal/api/handler"
	"potd_engine/internal/app/competition"
	"potd_engine/internal/app/notify"
	"potd_engine/internal/app/service"
	"potd_engine/internal/common/security"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository/memory"
	"potd_engine/internal/platform/config"
)

type nopDispatcher struct{}

func (nopDispatcher) Dispatch(context.Context, ...notify.Intent) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	hash, err := security.HashPassword("bot-secret")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		JWTKey:        []byte("router-test-key"),
		JWTExp:        time.Hour,
		BotSecretHash: hash,
		AdminIDs:      []int64{1},
		BasePoints:    100,
		Location:      time.UTC,
	}
	config.AppConfig = cfg
	security.InitJWT()

	store := memory.NewStore()
	session := competition.NewSession()
	scoring := service.NewScoringService(store, cfg.BasePoints, nil)
	problems := service.NewProblemService(store, nil)
	svc := Services{
		Auth:        service.NewAuthService(store, cfg),
		Problems:    problems,
		Submissions: service.NewSubmissionService(store, session, scoring, problems, nopDispatcher{}, nil),
		Advance:     service.NewAdvanceService(store, session, scoring, nopDispatcher{}, nil, nil, cfg.Location, cfg.AdminIDs),
		Admin:       service.NewAdminService(store, scoring, nil),
		Ratings:     service.NewRatingService(store, session),
		Leaderboard: service.NewLeaderboardService(store),
		Users:       service.NewUserService(store),
	}
	srv := httptest.NewServer(NewRouter(svc, []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode %s: %v", resp.Request.URL.Path, err)
	}
}

func token(t *testing.T, srv *httptest.Server, userID int64) string {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/token",
		bytes.NewBufferString(`{"user_id":`+jsonInt(userID)+`}`))
	req.Header.Set(handler.BotSecretHeader, "bot-secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d", resp.StatusCode)
	}
	var out service.TokenResponse
	decode(t, resp, &out)
	return out.Token
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(t)

	resp := do(t, srv, http.MethodPost, "/api/v1/submissions", "", map[string]string{"answer": "1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("anonymous submit status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/auth/token", bytes.NewBufferString(`{"user_id":5}`))
	req.Header.Set(handler.BotSecretHeader, "nope")
	bad, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Errorf("bad secret status = %d", bad.StatusCode)
	}

	userToken := token(t, srv, 5)
	resp = do(t, srv, http.MethodPost, "/api/v1/admin/advance", userToken, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("non-admin advance status = %d", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodGet, "/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
}

func TestCompetitionFlow(t *testing.T) {
	srv := newTestServer(t)
	admin := token(t, srv, 1)
	user := token(t, srv, 5)

	resp := do(t, srv, http.MethodPost, "/api/v1/admin/seasons", admin, map[string]string{"name": "Season One"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("new season status = %d", resp.StatusCode)
	}
	var season model.Season
	decode(t, resp, &season)

	resp = do(t, srv, http.MethodPost, "/api/v1/admin/seasons/"+jsonInt(season.ID)+"/start", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	today := time.Now().UTC().Format(model.DateLayout)
	resp = do(t, srv, http.MethodPost, "/api/v1/admin/problems", admin, map[string]interface{}{
		"season_id": season.ID, "date": today, "statement": "6*7?", "answer": 42,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("add problem status = %d", resp.StatusCode)
	}

	// Not public yet.
	resp = do(t, srv, http.MethodGet, "/api/v1/problems/"+today, user, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("hidden problem status = %d", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodPost, "/api/v1/admin/advance", admin, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("advance status = %d", resp.StatusCode)
	}
	var adv service.AdvanceResult
	decode(t, resp, &adv)
	if adv.Outcome != service.AdvancePosted {
		t.Fatalf("advance outcome = %s", adv.Outcome)
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/problems/"+today, user, nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("posted problem status = %d", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodPost, "/api/v1/submissions", user, map[string]string{"answer": "forty-two"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("non-integer answer status = %d", resp.StatusCode)
	}

	resp = do(t, srv, http.MethodPost, "/api/v1/submissions", user, map[string]string{"answer": "41"})
	var res model.SubmissionResult
	decode(t, resp, &res)
	if resp.StatusCode != http.StatusOK || res.Outcome != model.OutcomeIncorrect {
		t.Fatalf("wrong answer = %d %+v", resp.StatusCode, res)
	}

	resp = do(t, srv, http.MethodPost, "/api/v1/submissions", user, map[string]string{"answer": "42"})
	if resp.StatusCode != http.StatusTooManyRequests || resp.Header.Get("Retry-After") == "" {
		t.Errorf("cooldown status = %d, Retry-After %q", resp.StatusCode, resp.Header.Get("Retry-After"))
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/seasons/"+jsonInt(season.ID)+"/leaderboard", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("leaderboard status = %d", resp.StatusCode)
	}
	var board service.Leaderboard
	decode(t, resp, &board)
	if len(board.Entries) != 1 || board.Entries[0].UserID != 5 || board.Entries[0].Score != 0 {
		t.Errorf("leaderboard = %+v", board.Entries)
	}

	resp = do(t, srv, http.MethodGet, "/api/v1/status", "", nil)
	var status map[string]bool
	decode(t, resp, &status)
	if status["running"] {
		t.Error("status reports a running advancement")
	}
}
