package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/baiirun/yepdone/internal/model"
)

// ErrInviteExpired is wrapped when an invite exists but its expiry has
// passed. The expired row is consumed as part of the failed acceptance.
var ErrInviteExpired = fmt.Errorf("invite expired")

// ErrAlreadyMember is wrapped when the accepting user already belongs
// to the invite's workspace.
var ErrAlreadyMember = fmt.Errorf("already a member")

// CreateInvite inserts an invite code for a workspace.
func (db *DB) CreateInvite(invite *model.Invite) error {
	_, err := db.Exec(`
		INSERT INTO invites (code, workspace_id, created_by, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		invite.Code, invite.WorkspaceID, invite.CreatedBy, invite.ExpiresAt, invite.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetInvite retrieves an invite by code.
func (db *DB) GetInvite(code string) (*model.Invite, error) {
	row := db.QueryRow(`
		SELECT code, workspace_id, created_by, expires_at, created_at
		FROM invites WHERE code = ?`, code)

	invite := &model.Invite{}
	err := row.Scan(&invite.Code, &invite.WorkspaceID, &invite.CreatedBy, &invite.ExpiresAt, &invite.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invite %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	return invite, nil
}

// AcceptInvite redeems an invite code for a user. The lookup, expiry
// check, duplicate-membership check, member insert, and invite
// consumption run in one transaction so a code can only be redeemed
// once.
func (db *DB) AcceptInvite(code, userID string, now time.Time) (*model.WorkspaceMember, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRow(`
		SELECT code, workspace_id, created_by, expires_at, created_at
		FROM invites WHERE code = ?`, code)

	invite := &model.Invite{}
	err = row.Scan(&invite.Code, &invite.WorkspaceID, &invite.CreatedBy, &invite.ExpiresAt, &invite.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("invite %s: %w", code, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}

	if invite.ExpiresAt.Before(now) {
		// Expired codes are dead either way; consume on sight.
		if _, err := tx.Exec(`DELETE FROM invites WHERE code = ?`, code); err != nil {
			return nil, fmt.Errorf("failed to delete expired invite: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return nil, fmt.Errorf("invite %s: %w", code, ErrInviteExpired)
	}

	var existing int
	err = tx.QueryRow(`
		SELECT COUNT(*) FROM workspace_members WHERE workspace_id = ? AND user_id = ?`,
		invite.WorkspaceID, userID).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("user %s in workspace %s: %w", userID, invite.WorkspaceID, ErrAlreadyMember)
	}

	member := &model.WorkspaceMember{
		ID:          model.NewID(),
		WorkspaceID: invite.WorkspaceID,
		UserID:      userID,
		Role:        model.RoleMember,
	}
	_, err = tx.Exec(`
		INSERT INTO workspace_members (id, workspace_id, user_id, role)
		VALUES (?, ?, ?, ?)`,
		member.ID, member.WorkspaceID, member.UserID, member.Role,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM invites WHERE code = ?`, code); err != nil {
		return nil, fmt.Errorf("failed to consume invite: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit invite acceptance: %w", err)
	}
	return member, nil
}
