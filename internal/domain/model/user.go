package model

import (
	"strconv"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	MaxNicknameLength = 32
)

// User is a chat participant, keyed by the chat platform's user id.
type User struct {
	ID            int64     `json:"id"`
	Nickname      *string   `json:"nickname,omitempty"`
	Anonymous     bool      `json:"anonymous"`
	ReceiveMedals bool      `json:"receive_medals"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (u *User) DisplayName() string {
	if u.Anonymous {
		return "Anonymous"
	}
	if u.Nickname != nil && *u.Nickname != "" {
		return *u.Nickname
	}
	return "User " + strconv.FormatInt(u.ID, 10)
}

type UserSettings struct {
	Nickname      *string `json:"nickname,omitempty"`
	Anonymous     *bool   `json:"anonymous,omitempty"`
	ReceiveMedals *bool   `json:"receive_medals,omitempty"`
}
