// Package model defines the entities shared by the yepdone storage,
// action, and board layers: workspaces, their members, todos, comments,
// and invite codes.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DueDateFormat is the persisted due-date representation: a naive local
// timestamp with no timezone. Every due date that crosses the action
// boundary is serialized with this layout.
const DueDateFormat = "2006-01-02T15:04:05"

// TempIDPrefix marks identifiers synthesized for optimistic creates
// before the store has assigned a durable id.
const TempIDPrefix = "temp-"

// MaxTitleLen is the longest accepted todo title.
const MaxTitleLen = 100

// Role is a workspace member's role.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// IsValid returns true if the role is a known valid value.
func (r Role) IsValid() bool {
	return r == RoleOwner || r == RoleMember
}

// User is an authenticated account. Authentication itself lives outside
// this module; users arrive here already verified.
type User struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Workspace is a named container scoping a set of todos and members.
type Workspace struct {
	ID        string
	Name      string
	UserID    string // creating owner
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkspaceMember links a user to a workspace with a role.
type WorkspaceMember struct {
	ID          string
	WorkspaceID string
	UserID      string
	Role        Role
}

// Invite is a single-use, time-limited code granting workspace
// membership to whoever redeems it.
type Invite struct {
	Code        string
	WorkspaceID string
	CreatedBy   string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Todo is a single task inside a workspace. DueDate is the persisted
// string form (DueDateFormat) or nil when the todo has no due date.
type Todo struct {
	ID          string
	Title       string
	Completed   bool
	DueDate     *string
	Priority    int // 1 (low) to 5 (high)
	WorkspaceID string
	UserID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Comment belongs to a todo and is removed with it.
type Comment struct {
	ID        string
	Content   string
	TodoID    string
	UserID    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewID returns a fresh durable entity id.
func NewID() string {
	return uuid.NewString()
}

// NewTempID returns a temporary id for an optimistic entity. The suffix
// only needs to be unique within one controller's in-flight set.
func NewTempID() string {
	return TempIDPrefix + uuid.NewString()
}

// IsTempID reports whether id was synthesized by NewTempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, TempIDPrefix)
}

// FormatDueDate serializes t into the persisted due-date form.
func FormatDueDate(t time.Time) string {
	return t.Format(DueDateFormat)
}

// ParseDueDate parses a stored due-date string. A nil or malformed
// value yields nil: a todo with an unreadable due date behaves like one
// with no due date instead of failing the read path.
func ParseDueDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.ParseInLocation(DueDateFormat, *s, time.Local)
	if err != nil {
		return nil
	}
	return &t
}

// ValidateTitle checks the todo-title constraints shared by the action
// boundary and the controller.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("title cannot be empty")
	}
	if len(title) > MaxTitleLen {
		return fmt.Errorf("title must be %d characters or fewer", MaxTitleLen)
	}
	return nil
}

// ValidatePriority checks the 1..5 priority range.
func ValidatePriority(p int) error {
	if p < 1 || p > 5 {
		return fmt.Errorf("priority must be between 1 and 5, got %d", p)
	}
	return nil
}

// Clone returns a deep copy of the todo, safe to retain as a rollback
// snapshot while the original keeps changing.
func (t Todo) Clone() Todo {
	c := t
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return c
}

// CloneTodos deep-copies a todo collection.
func CloneTodos(todos []Todo) []Todo {
	out := make([]Todo, len(todos))
	for i, t := range todos {
		out[i] = t.Clone()
	}
	return out
}
