package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"potd_engine/internal/common"
	"potd_engine/internal/domain/model"
	"potd_engine/internal/domain/repository"
)

type UserService struct {
	store *repository.Store
}

func NewUserService(store *repository.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) Me(ctx context.Context, userID int64) (*model.User, error) {
	u, err := s.store.Users.Ensure(ctx, nil, userID)
	if err != nil {
		return nil, common.StoreError("load user", err)
	}
	return u, nil
}

func (s *UserService) UpdateSettings(ctx context.Context, userID int64, settings model.UserSettings) (*model.User, error) {
	if settings.Nickname != nil {
		nick := strings.TrimSpace(*settings.Nickname)
		if utf8.RuneCountInString(nick) > model.MaxNicknameLength {
			return nil, common.ErrNicknameTooLong
		}
		settings.Nickname = &nick
	}
	if _, err := s.store.Users.Ensure(ctx, nil, userID); err != nil {
		return nil, common.StoreError("load user", err)
	}
	u, err := s.store.Users.UpdateSettings(ctx, userID, settings)
	if err != nil {
		return nil, common.StoreError("update settings", err)
	}
	return u, nil
}
