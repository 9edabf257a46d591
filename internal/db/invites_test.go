package db

import (
	"errors"
	"testing"
	"time"

	"github.com/baiirun/yepdone/internal/model"
)

func seedInvitee(t *testing.T, db *DB) *model.User {
	t.Helper()
	now := time.Now()
	user := &model.User{
		ID: model.NewID(), Name: "Grace", Email: model.NewID() + "@example.com",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := db.UpsertUser(user); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	return user
}

func TestAcceptInvite(t *testing.T) {
	db := setupTestDB(t)
	owner, ws := seedUserAndWorkspace(t, db)
	invitee := seedInvitee(t, db)

	now := time.Now()
	invite := &model.Invite{
		Code: model.NewID(), WorkspaceID: ws.ID, CreatedBy: owner.ID,
		ExpiresAt: now.Add(24 * time.Hour), CreatedAt: now,
	}
	if err := db.CreateInvite(invite); err != nil {
		t.Fatalf("failed to create invite: %v", err)
	}

	m, err := db.AcceptInvite(invite.Code, invitee.ID, now)
	if err != nil {
		t.Fatalf("failed to accept invite: %v", err)
	}
	if m.Role != model.RoleMember {
		t.Errorf("role = %s, want %s", m.Role, model.RoleMember)
	}
	if m.WorkspaceID != ws.ID {
		t.Errorf("workspace = %s, want %s", m.WorkspaceID, ws.ID)
	}

	// Accepting consumes the code.
	if _, err := db.GetInvite(invite.Code); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected invite to be consumed, got %v", err)
	}
}

func TestAcceptInvite_Expired(t *testing.T) {
	db := setupTestDB(t)
	owner, ws := seedUserAndWorkspace(t, db)
	invitee := seedInvitee(t, db)

	now := time.Now()
	invite := &model.Invite{
		Code: model.NewID(), WorkspaceID: ws.ID, CreatedBy: owner.ID,
		ExpiresAt: now.Add(-time.Minute), CreatedAt: now.Add(-time.Hour),
	}
	if err := db.CreateInvite(invite); err != nil {
		t.Fatalf("failed to create invite: %v", err)
	}

	_, err := db.AcceptInvite(invite.Code, invitee.ID, now)
	if !errors.Is(err, ErrInviteExpired) {
		t.Fatalf("expected ErrInviteExpired, got %v", err)
	}

	// Expired codes are consumed too.
	if _, err := db.GetInvite(invite.Code); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected expired invite to be deleted, got %v", err)
	}

	if _, err := db.GetMembership(ws.ID, invitee.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected no membership, got %v", err)
	}
}

func TestAcceptInvite_AlreadyMember(t *testing.T) {
	db := setupTestDB(t)
	owner, ws := seedUserAndWorkspace(t, db)

	now := time.Now()
	invite := &model.Invite{
		Code: model.NewID(), WorkspaceID: ws.ID, CreatedBy: owner.ID,
		ExpiresAt: now.Add(time.Hour), CreatedAt: now,
	}
	if err := db.CreateInvite(invite); err != nil {
		t.Fatalf("failed to create invite: %v", err)
	}

	_, err := db.AcceptInvite(invite.Code, owner.ID, now)
	if !errors.Is(err, ErrAlreadyMember) {
		t.Fatalf("expected ErrAlreadyMember, got %v", err)
	}

	// Code survives a rejected accept.
	if _, err := db.GetInvite(invite.Code); err != nil {
		t.Errorf("expected invite to remain, got %v", err)
	}
}

func TestAcceptInvite_UnknownCode(t *testing.T) {
	db := setupTestDB(t)
	invitee := seedInvitee(t, db)

	_, err := db.AcceptInvite("no-such-code", invitee.ID, time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
