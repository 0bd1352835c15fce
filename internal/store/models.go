package store

import (
	"time"

	"autoshutdown/api/internal/rules"
)

type User struct {
	ID        string
	LoginID   string
	CreatedAt time.Time
}

// UserPreference pairs a user with their preference record, nil when the
// user has none. Produced by EnumerateUsers as a left outer join.
type UserPreference struct {
	User       User
	Preference *rules.Preference
}
