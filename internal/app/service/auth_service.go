package service

import (
	"context"
	"fmt"

	"potd_engine/internal/common"
	"potd_engine/internal/common/security"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
	"potd_engine/internal/platform/config"
	"potd_engine/internal/platform/logger"

	"go.uber.org/zap"
)

type AuthService struct {
	store *repository.Store
	cfg   *config.Config
}

func NewAuthService(store *repository.Store, cfg *config.Config) *AuthService {
	return &AuthService{store: store, cfg: cfg}
}

type TokenRequest struct {
	UserID int64 `json:"user_id"`
}

type TokenResponse struct {
	User  *model.User `json:"user"`
	Role  string      `json:"role"`
	Token string      `json:"token"`
}

// IssueToken is called by the chat bot on behalf of a user. The bot proves itself with
// the shared secret; the user's role comes from the admin allow-list.
func (s *AuthService) IssueToken(ctx context.Context, botSecret string, req TokenRequest) (*TokenResponse, error) {
	if s.cfg.BotSecretHash == "" || !security.CheckPasswordHash(botSecret, s.cfg.BotSecretHash) {
		return nil, common.ErrUnauthorized
	}
	if req.UserID <= 0 {
		return nil, common.ErrMissingRequiredFields
	}
	if s.cfg.IsBlacklisted(req.UserID) {
		logger.Log.Info("refused token for blacklisted user", zap.Int64("user_id", req.UserID))
		return nil, common.ErrForbidden
	}

	role := model.RoleUser
	if s.cfg.IsAdmin(req.UserID) {
		role = model.RoleAdmin
	}
	user, err := s.store.Users.Ensure(ctx, nil, req.UserID)
	if err != nil {
		return nil, common.StoreError("register user", err)
	}

	token, err := security.GenerateToken(user.ID, role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &TokenResponse{User: user, Role: role, Token: token}, nil
}
