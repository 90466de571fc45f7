package common

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
)

// Error categories. Every domain error wraps exactly one of these.
var (
	ErrNotFound      = errors.New("requested resource not found")
	ErrUnauthorized  = errors.New("unauthorized access")
	ErrForbidden     = errors.New("forbidden access")
	ErrValidation    = errors.New("validation failed")
	ErrStateConflict = errors.New("state conflict")
	ErrRateLimited   = errors.New("rate limited")
	ErrStoreFailure  = errors.New("store failure")
)

// Submission errors
var (
	ErrInvalidAnswerFormat        = fmt.Errorf("answer must be an integer: %w", ErrValidation)
	ErrAnswerOutOfRange           = fmt.Errorf("answer does not fit in 64 bits: %w", ErrValidation)
	ErrNoActiveProblem            = fmt.Errorf("there is no current problem to check answers against: %w", ErrStateConflict)
	ErrAlreadySolved              = fmt.Errorf("you have already solved this problem: %w", ErrStateConflict)
	ErrProblemBeingPosted         = fmt.Errorf("the problem is being posted, please wait: %w", ErrStateConflict)
	ErrProblemIsCurrentSeasonItem = fmt.Errorf("this problem is the current problem of a running season, submit it directly: %w", ErrStateConflict)
)

// Catalog errors
var (
	ErrProblemNotFound       = fmt.Errorf("problem not found: %w", ErrNotFound)
	ErrSeasonNotFound        = fmt.Errorf("season not found: %w", ErrNotFound)
	ErrUserNotFound          = fmt.Errorf("user not found: %w", ErrNotFound)
	ErrImageNotFound         = fmt.Errorf("image not found: %w", ErrNotFound)
	ErrAmbiguousProblemRef   = fmt.Errorf("several problems share that date, use an id: %w", ErrValidation)
	ErrInvalidProblemRef     = fmt.Errorf("please enter a valid id or date: %w", ErrValidation)
	ErrInvalidDate           = fmt.Errorf("date must look like 2006-01-02: %w", ErrValidation)
	ErrInvalidCutoffs        = fmt.Errorf("cutoffs must satisfy bronze <= silver <= gold: %w", ErrValidation)
	ErrSeasonAlreadyRunning  = fmt.Errorf("another season is already running: %w", ErrStateConflict)
	ErrEmptyProblemUpdate    = fmt.Errorf("no fields to update: %w", ErrValidation)
	ErrNicknameTooLong       = fmt.Errorf("nickname is too long: %w", ErrValidation)
	ErrMissingRequiredFields = fmt.Errorf("missing required fields: %w", ErrValidation)
)

// Advancement and rating errors
var (
	ErrAdvanceInProgress   = fmt.Errorf("an advancement is already in progress: %w", ErrStateConflict)
	ErrInsufficientHistory = fmt.Errorf("you need at least two solved problems to rate: %w", ErrStateConflict)
	ErrJudgmentPending     = fmt.Errorf("you already have a pending comparison: %w", ErrStateConflict)
	ErrNoPendingJudgment   = fmt.Errorf("you have no pending comparison: %w", ErrStateConflict)
	ErrInvalidChoice       = fmt.Errorf("choice must be one of 1, 2, n, d: %w", ErrValidation)
	ErrInvalidRatingType   = fmt.Errorf("rating type must be DIFF or COOL: %w", ErrValidation)
)

// CooldownError is returned when a user submits again before their cooldown has elapsed.
type CooldownError struct {
	RetryAfter float64 // seconds
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("you're going too fast! try again in %.2f seconds", e.RetryAfter)
}

func (e *CooldownError) Unwrap() error { return ErrRateLimited }

// StoreError wraps a backing store error so that it reports as ErrStoreFailure.
func StoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStateConflict) || errors.Is(err, ErrValidation) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
}

// HTTPStatusFromError maps domain errors to HTTP status codes.
func HTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, ErrForbidden) {
		return http.StatusForbidden
	}
	if errors.Is(err, ErrValidation) {
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrStateConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrRateLimited) {
		return http.StatusTooManyRequests
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" { // Unique violation
			return http.StatusConflict
		}
	}

	return http.StatusInternalServerError
}

// Errorf creates a new error with formatting, useful for wrapping.
func Errorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
