package domain

import (
	"fmt"
	"strings"
	"time"
)

// Subscription is a user's record: the last chosen location and the reminder
// opt-in flag.
type Subscription struct {
	UserID     string    `bson:"user_id" json:"user_id"`
	LocationID string    `bson:"location_id,omitempty" json:"location_id,omitempty"`
	Subscribed bool      `bson:"subscribed" json:"subscribed"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at" json:"updated_at"`
	LastSeenAt time.Time `bson:"last_seen_at" json:"last_seen_at"`
}

// Active reports whether the subscription is eligible for reminders.
func (s Subscription) Active() bool {
	return s.Subscribed && strings.TrimSpace(s.LocationID) != ""
}

// RevokePolicy selects what happens to a subscription whose owner can no
// longer be reached.
type RevokePolicy string

const (
	RevokeUnsubscribe RevokePolicy = "unsubscribe"
	RevokeDelete      RevokePolicy = "delete"
)

// ParseRevokePolicy validates a configured policy name.
func ParseRevokePolicy(value string) (RevokePolicy, error) {
	switch RevokePolicy(strings.ToLower(strings.TrimSpace(value))) {
	case RevokeUnsubscribe:
		return RevokeUnsubscribe, nil
	case RevokeDelete:
		return RevokeDelete, nil
	default:
		return "", fmt.Errorf("unknown revoke policy %q", value)
	}
}
