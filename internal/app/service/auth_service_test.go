package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"potd_engine/internal/common"
	"potd_engine/internal/common/security"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/platform/config"
)

func TestIssueToken(t *testing.T) {
	hash, err := security.HashPassword("bot-secret")
	if err != nil {
		t.Fatal(err)
	}
	cfg := &config.Config{
		JWTKey:        []byte("test-key"),
		JWTExp:        time.Hour,
		BotSecretHash: hash,
		AdminIDs:      []int64{10},
		BlacklistIDs:  []int64{66},
	}
	config.AppConfig = cfg
	security.InitJWT()

	env := newTestEnv(t)
	auth := NewAuthService(env.store, cfg)
	ctx := context.Background()

	if _, err := auth.IssueToken(ctx, "wrong", TokenRequest{UserID: 1}); !errors.Is(err, common.ErrUnauthorized) {
		t.Errorf("wrong secret error = %v", err)
	}
	if _, err := auth.IssueToken(ctx, "bot-secret", TokenRequest{}); !errors.Is(err, common.ErrMissingRequiredFields) {
		t.Errorf("missing user error = %v", err)
	}
	if _, err := auth.IssueToken(ctx, "bot-secret", TokenRequest{UserID: 66}); !errors.Is(err, common.ErrForbidden) {
		t.Errorf("blacklisted error = %v", err)
	}

	resp, err := auth.IssueToken(ctx, "bot-secret", TokenRequest{UserID: 10})
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if resp.Role != model.RoleAdmin || resp.Token == "" {
		t.Errorf("admin token response = %+v", resp)
	}

	token, err := security.TokenAuth.Decode(resp.Token)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	claims, err := token.AsMap(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if id, err := security.GetUserIDFromClaims(claims); err != nil || id != 10 {
		t.Errorf("user id claim = %d, %v", id, err)
	}

	resp, err = auth.IssueToken(ctx, "bot-secret", TokenRequest{UserID: 2})
	if err != nil || resp.Role != model.RoleUser {
		t.Errorf("user token = %+v, %v", resp, err)
	}
}
