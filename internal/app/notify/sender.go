package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"potd_engine/internal/domain/model"
)

// Sender delivers one rendered message to a destination.
type Sender interface {
	Send(ctx context.Context, dest model.Destination, msg Message) error
}

// Message is the JSON body posted to a destination webhook.
type Message struct {
	IntentID      string  `json:"intent_id"`
	Kind          Kind    `json:"kind"`
	ChannelID     string  `json:"channel_id,omitempty"`
	Content       string  `json:"content,omitempty"`
	RoleID        string  `json:"role_id,omitempty"`
	UserID        int64   `json:"user_id,omitempty"`
	ExemptUserIDs []int64 `json:"exempt_user_ids,omitempty"`
	ImageIDs      []int64 `json:"image_ids,omitempty"`
}

// Render builds the message text for dest, using its "of the day" prefix.
func Render(dest model.Destination, in Intent) Message {
	msg := Message{IntentID: in.ID, Kind: in.Kind, ChannelID: dest.ChannelID}
	prefix := dest.OtdPrefix
	if prefix == "" {
		prefix = "Problem"
	}
	switch in.Kind {
	case KindProblemPosted:
		ping := ""
		if dest.PingRoleID != "" {
			ping = "<@&" + dest.PingRoleID + "> "
		}
		msg.Content = fmt.Sprintf("%s%s of the Day for %s (#%d)\n%s", ping, prefix, in.ProblemDate, in.ProblemID, in.Statement)
		msg.ImageIDs = in.ImageIDs
	case KindProblemLate:
		msg.Content = fmt.Sprintf("Sorry! We are running a bit late on the %s of the Day today.", prefix)
	case KindClearSolved:
		msg.RoleID = dest.SolvedRoleID
		msg.ExemptUserIDs = in.ExemptUserIDs
	case KindGrantSolved:
		msg.RoleID = dest.SolvedRoleID
		msg.UserID = in.UserID
	}
	return msg
}

type WebhookSender struct {
	client *http.Client
}

func NewWebhookSender(timeout time.Duration) *WebhookSender {
	return &WebhookSender{client: &http.Client{Timeout: timeout}}
}

func (s *WebhookSender) Send(ctx context.Context, dest model.Destination, msg Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook call to %s failed: %w", dest.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook for %s returned status %d", dest.Name, resp.StatusCode)
	}
	return nil
}
