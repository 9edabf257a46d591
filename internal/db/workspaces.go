package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/baiirun/yepdone/internal/model"
)

// UpsertUser inserts a user or refreshes an existing one's name/email.
// Authentication happens elsewhere; storage just mirrors the account.
func (db *DB) UpsertUser(user *model.User) error {
	if strings.TrimSpace(user.Name) == "" || strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("user name and email are required")
	}

	_, err := db.Exec(`
		INSERT INTO users (id, name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email, updated_at = excluded.updated_at`,
		user.ID, user.Name, user.Email, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return nil
}

// GetUser retrieves a user by ID.
func (db *DB) GetUser(id string) (*model.User, error) {
	row := db.QueryRow(`SELECT id, name, email, created_at, updated_at FROM users WHERE id = ?`, id)

	user := &model.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(email string) (*model.User, error) {
	row := db.QueryRow(`SELECT id, name, email, created_at, updated_at FROM users WHERE email = ?`, email)

	user := &model.User{}
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// CreateWorkspace inserts a workspace and its owner membership in one
// transaction: a workspace never exists without an owner member.
func (db *DB) CreateWorkspace(ws *model.Workspace) error {
	if strings.TrimSpace(ws.Name) == "" {
		return fmt.Errorf("workspace name cannot be empty")
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO workspaces (id, name, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		ws.ID, ws.Name, ws.UserID, ws.CreatedAt, ws.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	_, err = tx.Exec(`
		INSERT INTO workspace_members (id, workspace_id, user_id, role)
		VALUES (?, ?, ?, ?)`,
		model.NewID(), ws.ID, ws.UserID, model.RoleOwner,
	)
	if err != nil {
		return fmt.Errorf("failed to add owner member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit workspace: %w", err)
	}
	return nil
}

// GetWorkspace retrieves a workspace by ID.
func (db *DB) GetWorkspace(id string) (*model.Workspace, error) {
	row := db.QueryRow(`SELECT id, name, user_id, created_at, updated_at FROM workspaces WHERE id = ?`, id)

	ws := &model.Workspace{}
	err := row.Scan(&ws.ID, &ws.Name, &ws.UserID, &ws.CreatedAt, &ws.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workspace %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return ws, nil
}

// DeleteWorkspace removes a workspace and returns the deleted row.
// Todos, members, and invites go with it via cascade.
func (db *DB) DeleteWorkspace(id string) (*model.Workspace, error) {
	ws, err := db.GetWorkspace(id)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`DELETE FROM workspaces WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete workspace: %w", err)
	}
	return ws, nil
}

// ListWorkspacesForUser returns every workspace the user is a member of,
// oldest first.
func (db *DB) ListWorkspacesForUser(userID string) ([]model.Workspace, error) {
	rows, err := db.Query(`
		SELECT w.id, w.name, w.user_id, w.created_at, w.updated_at
		FROM workspaces w
		JOIN workspace_members m ON m.workspace_id = w.id
		WHERE m.user_id = ?
		ORDER BY w.created_at ASC, w.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []model.Workspace
	for rows.Next() {
		var ws model.Workspace
		if err := rows.Scan(&ws.ID, &ws.Name, &ws.UserID, &ws.CreatedAt, &ws.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, rows.Err()
}

// GetMembership returns the user's membership in a workspace, or a
// wrapped ErrNotFound if they are not a member.
func (db *DB) GetMembership(workspaceID, userID string) (*model.WorkspaceMember, error) {
	row := db.QueryRow(`
		SELECT id, workspace_id, user_id, role
		FROM workspace_members WHERE workspace_id = ? AND user_id = ?`,
		workspaceID, userID)

	m := &model.WorkspaceMember{}
	err := row.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("membership of %s in %s: %w", userID, workspaceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return m, nil
}

// IsOwner reports whether the user holds the owner role in a workspace.
func (db *DB) IsOwner(workspaceID, userID string) (bool, error) {
	m, err := db.GetMembership(workspaceID, userID)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return m.Role == model.RoleOwner, nil
}

// RemoveMember deletes a membership row (leave or kick) and returns it.
func (db *DB) RemoveMember(workspaceID, userID string) (*model.WorkspaceMember, error) {
	m, err := db.GetMembership(workspaceID, userID)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`DELETE FROM workspace_members WHERE id = ?`, m.ID); err != nil {
		return nil, fmt.Errorf("failed to remove member: %w", err)
	}
	return m, nil
}

// ListMembers returns a workspace's members, owners first.
func (db *DB) ListMembers(workspaceID string) ([]model.WorkspaceMember, error) {
	rows, err := db.Query(`
		SELECT id, workspace_id, user_id, role
		FROM workspace_members WHERE workspace_id = ?
		ORDER BY role = 'owner' DESC, user_id ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []model.WorkspaceMember
	for rows.Next() {
		var m model.WorkspaceMember
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// EnsurePersonalWorkspace returns the user's "Personal" workspace,
// creating it on first login.
func (db *DB) EnsurePersonalWorkspace(userID string) (*model.Workspace, error) {
	workspaces, err := db.ListWorkspacesForUser(userID)
	if err != nil {
		return nil, err
	}
	for _, ws := range workspaces {
		if ws.Name == "Personal" {
			return &ws, nil
		}
	}
	if len(workspaces) > 0 {
		return &workspaces[0], nil
	}

	now := time.Now()
	ws := &model.Workspace{
		ID:        model.NewID(),
		Name:      "Personal",
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.CreateWorkspace(ws); err != nil {
		return nil, err
	}
	return ws, nil
}
