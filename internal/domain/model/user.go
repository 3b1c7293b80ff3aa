package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"hotspot-billing/internal/domain"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the paying account. Only email, role and status matter to billing.
type User struct {
	ID           string
	Username     string
	Email        *string
	Role         string
	RecordStatus RecordStatus
	CreatedAt    time.Time
}

func NewUser(id, username, email string) (*User, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if strings.TrimSpace(username) == "" {
		return nil, domain.ErrInvalidArgument
	}
	u := &User{
		ID:           id,
		Username:     username,
		Role:         RoleUser,
		RecordStatus: RecordActive,
		CreatedAt:    time.Now(),
	}
	if e := strings.TrimSpace(email); e != "" {
		u.Email = &e
	}
	return u, nil
}

func (u *User) IsZero() bool { return u == nil || u.ID == "" }

// ContactEmail returns the email or "" when absent or the user is deleted.
func (u *User) ContactEmail() string {
	if u == nil || u.Email == nil || u.RecordStatus == RecordDeleted {
		return ""
	}
	return *u.Email
}
