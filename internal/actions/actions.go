// Package actions is the authoritative mutation boundary. The board and
// the CLI never touch storage directly; they dispatch through a Service
// which authenticates the caller, enforces workspace membership and
// ownership, and folds every failure into a typed *Error.
package actions

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/baiirun/yepdone/internal/db"
	"github.com/baiirun/yepdone/internal/model"
)

// Session resolves the signed-in user for the current process. An empty
// id means signed out; every operation below rejects that with an
// AUTH_ERROR before touching storage.
type Session interface {
	UserID() string
}

// StaticSession is a Session pinned to one user id.
type StaticSession string

func (s StaticSession) UserID() string { return string(s) }

// Service implements the boundary over SQLite storage.
type Service struct {
	db      *db.DB
	session Session
	log     *log.Logger
}

func NewService(database *db.DB, session Session, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{db: database, session: session, log: logger}
}

// requireUser gates every operation on a signed-in session.
func (s *Service) requireUser() (string, *Error) {
	id := s.session.UserID()
	if id == "" {
		return "", authErr("not signed in")
	}
	return id, nil
}

// requireMembership gates workspace-scoped operations.
func (s *Service) requireMembership(workspaceID, userID string) *Error {
	_, err := s.db.GetMembership(workspaceID, userID)
	if err != nil {
		return classify(err, "not a member of this workspace")
	}
	return nil
}

// Login upserts the user record and ensures they have at least one
// workspace to land in.
func (s *Service) Login(name, email string) (*model.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, validationErr("email cannot be empty", nil)
	}
	user, err := s.db.GetUserByEmail(email)
	if err != nil && !db.IsNotFound(err) {
		return nil, classify(err, "failed to look up user")
	}

	now := time.Now()
	if user == nil {
		if strings.TrimSpace(name) == "" {
			name, _, _ = strings.Cut(email, "@")
		}
		user = &model.User{
			ID: model.NewID(), Name: name, Email: email,
			CreatedAt: now, UpdatedAt: now,
		}
	} else if strings.TrimSpace(name) != "" {
		user.Name = name
		user.UpdatedAt = now
	}
	if err := s.db.UpsertUser(user); err != nil {
		return nil, classify(err, "failed to save user")
	}

	if _, err := s.db.EnsurePersonalWorkspace(user.ID); err != nil {
		return nil, classify(err, "failed to create personal workspace")
	}

	s.log.Info("signed in", "user", user.ID, "email", email)
	return user, nil
}

// CurrentUser returns the signed-in user's record.
func (s *Service) CurrentUser() (*model.User, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	user, err := s.db.GetUser(userID)
	if err != nil {
		return nil, classify(err, "failed to load user")
	}
	return user, nil
}

// CreateWorkspace creates a workspace with the caller as owner.
func (s *Service) CreateWorkspace(name string) (*model.Workspace, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if strings.TrimSpace(name) == "" {
		return nil, validationErr("workspace name cannot be empty", nil)
	}

	now := time.Now()
	ws := &model.Workspace{
		ID: model.NewID(), Name: name, UserID: userID,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.db.CreateWorkspace(ws); err != nil {
		return nil, classify(err, "failed to create workspace")
	}
	s.log.Info("workspace created", "workspace", ws.ID, "name", name)
	return ws, nil
}

// DeleteWorkspace removes a workspace and everything in it. Owner only.
func (s *Service) DeleteWorkspace(workspaceID string) (*model.Workspace, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}

	owner, err := s.db.IsOwner(workspaceID, userID)
	if err != nil {
		return nil, classify(err, "failed to check ownership")
	}
	if !owner {
		return nil, ownershipErr("only the owner can delete a workspace")
	}

	ws, err := s.db.DeleteWorkspace(workspaceID)
	if err != nil {
		return nil, classify(err, "failed to delete workspace")
	}
	s.log.Info("workspace deleted", "workspace", workspaceID)
	return ws, nil
}

// LeaveWorkspace removes the caller's own membership. Owners may not
// leave: they delete the workspace or it has no owner at all.
func (s *Service) LeaveWorkspace(workspaceID string) error {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return aerr
	}

	m, err := s.db.GetMembership(workspaceID, userID)
	if err != nil {
		return classify(err, "not a member of this workspace")
	}
	if m.Role == model.RoleOwner {
		return ownershipErr("the owner cannot leave their own workspace")
	}

	if _, err := s.db.RemoveMember(workspaceID, userID); err != nil {
		return classify(err, "failed to leave workspace")
	}
	s.log.Info("left workspace", "workspace", workspaceID, "user", userID)
	return nil
}

// KickMember removes another member from a workspace. Owner only, and
// the owner cannot kick themselves.
func (s *Service) KickMember(workspaceID, memberUserID string) error {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return aerr
	}

	owner, err := s.db.IsOwner(workspaceID, userID)
	if err != nil {
		return classify(err, "failed to check ownership")
	}
	if !owner {
		return ownershipErr("only the owner can remove members")
	}
	if memberUserID == userID {
		return ownershipErr("the owner cannot remove themselves")
	}

	if _, err := s.db.RemoveMember(workspaceID, memberUserID); err != nil {
		return classify(err, "failed to remove member")
	}
	s.log.Info("member removed", "workspace", workspaceID, "member", memberUserID)
	return nil
}

// ListWorkspaces returns the workspaces the caller belongs to.
func (s *Service) ListWorkspaces() ([]model.Workspace, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	workspaces, err := s.db.ListWorkspacesForUser(userID)
	if err != nil {
		return nil, classify(err, "failed to list workspaces")
	}
	return workspaces, nil
}

// ListMembers returns a workspace's members, owners first.
func (s *Service) ListMembers(workspaceID string) ([]model.WorkspaceMember, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if aerr := s.requireMembership(workspaceID, userID); aerr != nil {
		return nil, aerr
	}
	members, err := s.db.ListMembers(workspaceID)
	if err != nil {
		return nil, classify(err, "failed to list members")
	}
	return members, nil
}

// CheckMembership reports whether the caller still belongs to the
// workspace. Boards poll this to detect revoked access.
func (s *Service) CheckMembership(workspaceID string) (bool, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return false, aerr
	}
	_, err := s.db.GetMembership(workspaceID, userID)
	if db.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, classify(err, "failed to check membership")
	}
	return true, nil
}

// CreateInvite issues a single-use invite code for a workspace.
func (s *Service) CreateInvite(workspaceID string, ttl time.Duration) (*model.Invite, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if aerr := s.requireMembership(workspaceID, userID); aerr != nil {
		return nil, aerr
	}

	now := time.Now()
	invite := &model.Invite{
		Code: model.NewID(), WorkspaceID: workspaceID, CreatedBy: userID,
		ExpiresAt: now.Add(ttl), CreatedAt: now,
	}
	if err := s.db.CreateInvite(invite); err != nil {
		return nil, classify(err, "failed to create invite")
	}
	s.log.Info("invite created", "workspace", workspaceID, "expires", invite.ExpiresAt)
	return invite, nil
}

// AcceptInvite redeems an invite code for the caller.
func (s *Service) AcceptInvite(code string) (*model.WorkspaceMember, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if strings.TrimSpace(code) == "" {
		return nil, validationErr("invite code cannot be empty", nil)
	}

	m, err := s.db.AcceptInvite(code, userID, time.Now())
	if err != nil {
		return nil, classify(err, "failed to accept invite")
	}
	s.log.Info("invite accepted", "workspace", m.WorkspaceID, "user", userID)
	return m, nil
}

// CreateTodo inserts a todo into a workspace the caller belongs to.
// DueDate is the already-serialized form or nil.
func (s *Service) CreateTodo(workspaceID, title string, dueDate *string, priority int) (*model.Todo, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if err := model.ValidateTitle(title); err != nil {
		return nil, validationErr(err.Error(), err)
	}
	if err := model.ValidatePriority(priority); err != nil {
		return nil, validationErr(err.Error(), err)
	}
	if aerr := s.requireMembership(workspaceID, userID); aerr != nil {
		return nil, aerr
	}

	now := time.Now()
	todo := &model.Todo{
		ID: model.NewID(), Title: title, DueDate: dueDate, Priority: priority,
		WorkspaceID: workspaceID, UserID: userID,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.db.CreateTodo(todo); err != nil {
		return nil, classify(err, "failed to create todo")
	}
	return todo, nil
}

// ToggleTodo flips a todo's completed flag.
func (s *Service) ToggleTodo(todoID string) (*model.Todo, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if aerr := s.requireTodoAccess(todoID, userID); aerr != nil {
		return nil, aerr
	}

	todo, err := s.db.ToggleTodo(todoID)
	if err != nil {
		return nil, classify(err, "failed to toggle todo")
	}
	return todo, nil
}

// UpdateDueDate sets or clears a todo's due date.
func (s *Service) UpdateDueDate(todoID string, dueDate *string) (*model.Todo, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if dueDate != nil && model.ParseDueDate(dueDate) == nil {
		return nil, validationErr("due date is not a valid timestamp", nil)
	}
	if aerr := s.requireTodoAccess(todoID, userID); aerr != nil {
		return nil, aerr
	}

	todo, err := s.db.UpdateDueDate(todoID, dueDate)
	if err != nil {
		return nil, classify(err, "failed to update due date")
	}
	return todo, nil
}

// DeleteTodo removes a todo and, through the schema, its comments.
func (s *Service) DeleteTodo(todoID string) (*model.Todo, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if aerr := s.requireTodoAccess(todoID, userID); aerr != nil {
		return nil, aerr
	}

	todo, err := s.db.DeleteTodo(todoID)
	if err != nil {
		return nil, classify(err, "failed to delete todo")
	}
	return todo, nil
}

// ListTodos returns every todo in the workspace in creation order.
func (s *Service) ListTodos(workspaceID string) ([]model.Todo, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if aerr := s.requireMembership(workspaceID, userID); aerr != nil {
		return nil, aerr
	}

	todos, err := s.db.ListTodos(workspaceID)
	if err != nil {
		return nil, classify(err, "failed to list todos")
	}
	return todos, nil
}

// CreateComment attaches a comment to a todo.
func (s *Service) CreateComment(todoID, content string) (*model.Comment, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if strings.TrimSpace(content) == "" {
		return nil, validationErr("comment cannot be empty", nil)
	}
	if aerr := s.requireTodoAccess(todoID, userID); aerr != nil {
		return nil, aerr
	}

	now := time.Now()
	comment := &model.Comment{
		ID: model.NewID(), Content: content, TodoID: todoID, UserID: userID,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.db.CreateComment(comment); err != nil {
		return nil, classify(err, "failed to create comment")
	}
	return comment, nil
}

// DeleteComment removes a single comment.
func (s *Service) DeleteComment(commentID string) (*model.Comment, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}

	comment, err := s.db.GetComment(commentID)
	if err != nil {
		return nil, classify(err, "comment not found")
	}
	if aerr := s.requireTodoAccess(comment.TodoID, userID); aerr != nil {
		return nil, aerr
	}

	deleted, err := s.db.DeleteComment(commentID)
	if err != nil {
		return nil, classify(err, "failed to delete comment")
	}
	return deleted, nil
}

// ListComments returns a todo's comments, oldest first.
func (s *Service) ListComments(todoID string) ([]model.Comment, error) {
	userID, aerr := s.requireUser()
	if aerr != nil {
		return nil, aerr
	}
	if aerr := s.requireTodoAccess(todoID, userID); aerr != nil {
		return nil, aerr
	}

	comments, err := s.db.ListComments(todoID)
	if err != nil {
		return nil, classify(err, "failed to list comments")
	}
	return comments, nil
}

// requireTodoAccess resolves a todo and checks the caller belongs to
// its workspace. A todo in a foreign workspace reads as NOT_FOUND
// rather than revealing that it exists.
func (s *Service) requireTodoAccess(todoID, userID string) *Error {
	todo, err := s.db.GetTodo(todoID)
	if err != nil {
		return classify(err, "todo not found")
	}
	if _, err := s.db.GetMembership(todo.WorkspaceID, userID); err != nil {
		if db.IsNotFound(err) {
			return notFoundErr("todo not found")
		}
		return classify(err, "failed to check membership")
	}
	return nil
}
