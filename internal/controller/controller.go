// Package controller keeps an in-memory view of one workspace's todos
// and applies mutations optimistically: the view changes first, the
// authoritative boundary confirms after, and a failed confirmation rolls
// the view back using only data captured at dispatch time. Mutations may
// confirm out of order; every rollback is scoped to the entry it touched.
package controller

import (
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/baiirun/yepdone/internal/actions"
	"github.com/baiirun/yepdone/internal/buckets"
	"github.com/baiirun/yepdone/internal/dates"
	"github.com/baiirun/yepdone/internal/model"
)

// Boundary is the slice of the action surface the controller dispatches
// through. *actions.Service satisfies it.
type Boundary interface {
	CreateTodo(workspaceID, title string, dueDate *string, priority int) (*model.Todo, error)
	ToggleTodo(todoID string) (*model.Todo, error)
	DeleteTodo(todoID string) (*model.Todo, error)
	UpdateDueDate(todoID string, dueDate *string) (*model.Todo, error)
	CreateComment(todoID, content string) (*model.Comment, error)
	DeleteComment(commentID string) (*model.Comment, error)
	ListTodos(workspaceID string) ([]model.Todo, error)
	ListComments(todoID string) ([]model.Comment, error)
	CheckMembership(workspaceID string) (bool, error)
}

var (
	// errMissing means the target left the view before the mutation ran.
	errMissing = errors.New("no longer in view")
	// errPending means the target's optimistic create has not confirmed
	// yet, so the boundary has no durable id to mutate.
	errPending = errors.New("create still pending")
)

// Notifier receives user-facing outcomes: failure messages after a
// rollback, and the signal that workspace access has been revoked.
type Notifier interface {
	Notify(message string)
	AccessRevoked()
}

// Controller owns the optimistic view for a single workspace.
type Controller struct {
	mu          sync.Mutex
	boundary    Boundary
	notifier    Notifier
	workspaceID string
	todos       []model.Todo
	comments    map[string][]model.Comment // todo id -> comments, oldest first
	log         *log.Logger
}

func New(boundary Boundary, notifier Notifier, workspaceID string, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		boundary:    boundary,
		notifier:    notifier,
		workspaceID: workspaceID,
		comments:    make(map[string][]model.Comment),
		log:         logger,
	}
}

// Load replaces the view with the boundary's current state.
func (c *Controller) Load() error {
	todos, err := c.boundary.ListTodos(c.workspaceID)
	if err != nil {
		c.fail(err, "couldn't load todos")
		return err
	}
	c.mu.Lock()
	c.todos = todos
	c.mu.Unlock()
	return nil
}

// Todos returns a copy of the current view, safe to hold across later
// mutations.
func (c *Controller) Todos() []model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return model.CloneTodos(c.todos)
}

// Board categorizes the current non-completed todos into due buckets.
func (c *Controller) Board(now time.Time) buckets.Buckets {
	c.mu.Lock()
	defer c.mu.Unlock()
	return buckets.Categorize(c.todos, now)
}

// Comments returns a copy of the loaded comments for one todo.
func (c *Controller) Comments(todoID string) []model.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.Comment, len(c.comments[todoID]))
	copy(out, c.comments[todoID])
	return out
}

// LoadComments fetches a todo's comments into the view.
func (c *Controller) LoadComments(todoID string) error {
	comments, err := c.boundary.ListComments(todoID)
	if err != nil {
		c.fail(err, "couldn't load comments")
		return err
	}
	c.mu.Lock()
	c.comments[todoID] = comments
	c.mu.Unlock()
	return nil
}

// Create adds a todo optimistically under a temporary id, scanning the
// title for a due date, then swaps in the boundary's durable entry once
// it confirms. On failure the temporary entry is removed.
func (c *Controller) Create(title string, priority int, now time.Time) error {
	var due *string
	if when, ok := dates.Extract(title, now); ok {
		s := model.FormatDueDate(when)
		due = &s
	}

	temp := model.Todo{
		ID: model.NewTempID(), Title: title, DueDate: due, Priority: priority,
		WorkspaceID: c.workspaceID, CreatedAt: now, UpdatedAt: now,
	}

	c.mu.Lock()
	c.todos = append(c.todos, temp)
	c.mu.Unlock()

	created, err := c.boundary.CreateTodo(c.workspaceID, title, due, priority)

	c.mu.Lock()
	idx := c.indexOf(temp.ID)
	if err != nil {
		if idx >= 0 {
			c.todos = append(c.todos[:idx], c.todos[idx+1:]...)
		}
		c.mu.Unlock()
		c.fail(err, "couldn't create todo")
		return err
	}
	if idx >= 0 {
		c.todos[idx] = *created
	}
	c.mu.Unlock()
	return nil
}

// Toggle flips a todo's completed flag optimistically; on failure the
// flag captured at dispatch is restored.
func (c *Controller) Toggle(todoID string) error {
	c.mu.Lock()
	idx := c.indexOf(todoID)
	if idx < 0 || model.IsTempID(todoID) {
		c.mu.Unlock()
		return c.rejectPending(idx)
	}
	wasCompleted := c.todos[idx].Completed
	c.todos[idx].Completed = !wasCompleted
	c.mu.Unlock()

	updated, err := c.boundary.ToggleTodo(todoID)

	c.mu.Lock()
	idx = c.indexOf(todoID)
	if err != nil {
		if idx >= 0 {
			c.todos[idx].Completed = wasCompleted
		}
		c.mu.Unlock()
		c.fail(err, "couldn't update todo")
		return err
	}
	if idx >= 0 {
		c.todos[idx] = *updated
	}
	c.mu.Unlock()
	return nil
}

// Delete removes a todo optimistically, remembering its position; on
// failure it reappears where it was.
func (c *Controller) Delete(todoID string) error {
	c.mu.Lock()
	idx := c.indexOf(todoID)
	if idx < 0 || model.IsTempID(todoID) {
		c.mu.Unlock()
		return c.rejectPending(idx)
	}
	snapshot := c.todos[idx].Clone()
	position := idx
	c.todos = append(c.todos[:idx], c.todos[idx+1:]...)
	c.mu.Unlock()

	_, err := c.boundary.DeleteTodo(todoID)

	if err != nil {
		c.mu.Lock()
		at := position
		if at > len(c.todos) {
			at = len(c.todos)
		}
		c.todos = append(c.todos[:at], append([]model.Todo{snapshot}, c.todos[at:]...)...)
		c.mu.Unlock()
		c.fail(err, "couldn't delete todo")
		return err
	}
	c.mu.Lock()
	delete(c.comments, todoID)
	c.mu.Unlock()
	return nil
}

// SetDueDate changes a todo's due date optimistically; on failure the
// todo captured at dispatch is restored in place.
func (c *Controller) SetDueDate(todoID string, dueDate *string) error {
	c.mu.Lock()
	idx := c.indexOf(todoID)
	if idx < 0 || model.IsTempID(todoID) {
		c.mu.Unlock()
		return c.rejectPending(idx)
	}
	snapshot := c.todos[idx].Clone()
	c.todos[idx].DueDate = dueDate
	c.mu.Unlock()

	updated, err := c.boundary.UpdateDueDate(todoID, dueDate)

	c.mu.Lock()
	idx = c.indexOf(todoID)
	if err != nil {
		if idx >= 0 {
			c.todos[idx] = snapshot
		}
		c.mu.Unlock()
		c.fail(err, "couldn't reschedule todo")
		return err
	}
	if idx >= 0 {
		c.todos[idx] = *updated
	}
	c.mu.Unlock()
	return nil
}

// MoveToBucket reassigns a todo to a due bucket by synthesizing a due
// date inside the target's range, then follows the SetDueDate path.
func (c *Controller) MoveToBucket(todoID string, target buckets.ID, now time.Time) error {
	due := model.FormatDueDate(buckets.DropDueDate(target, now))
	return c.SetDueDate(todoID, &due)
}

// AddComment appends a comment optimistically under a temporary id.
func (c *Controller) AddComment(todoID, content string, now time.Time) error {
	temp := model.Comment{
		ID: model.NewTempID(), Content: content, TodoID: todoID,
		CreatedAt: now, UpdatedAt: now,
	}

	c.mu.Lock()
	c.comments[todoID] = append(c.comments[todoID], temp)
	c.mu.Unlock()

	created, err := c.boundary.CreateComment(todoID, content)

	c.mu.Lock()
	list := c.comments[todoID]
	idx := indexOfComment(list, temp.ID)
	if err != nil {
		if idx >= 0 {
			c.comments[todoID] = append(list[:idx], list[idx+1:]...)
		}
		c.mu.Unlock()
		c.fail(err, "couldn't add comment")
		return err
	}
	if idx >= 0 {
		list[idx] = *created
	}
	c.mu.Unlock()
	return nil
}

// RemoveComment deletes a comment optimistically, restoring it at its
// original position on failure.
func (c *Controller) RemoveComment(todoID, commentID string) error {
	c.mu.Lock()
	list := c.comments[todoID]
	idx := indexOfComment(list, commentID)
	if idx < 0 || model.IsTempID(commentID) {
		c.mu.Unlock()
		c.notifier.Notify("comment is still saving")
		return errPending
	}
	snapshot := list[idx]
	position := idx
	c.comments[todoID] = append(list[:idx], list[idx+1:]...)
	c.mu.Unlock()

	_, err := c.boundary.DeleteComment(commentID)

	if err != nil {
		c.mu.Lock()
		list := c.comments[todoID]
		at := position
		if at > len(list) {
			at = len(list)
		}
		c.comments[todoID] = append(list[:at], append([]model.Comment{snapshot}, list[at:]...)...)
		c.mu.Unlock()
		c.fail(err, "couldn't delete comment")
		return err
	}
	return nil
}

// CheckAccess polls the boundary for continued workspace membership and
// signals the notifier when it is gone.
func (c *Controller) CheckAccess() {
	in, err := c.boundary.CheckMembership(c.workspaceID)
	if err != nil {
		c.fail(err, "couldn't verify workspace access")
		return
	}
	if !in {
		c.log.Warn("workspace access revoked", "workspace", c.workspaceID)
		c.notifier.AccessRevoked()
	}
}

// fail surfaces a boundary failure after a rollback. Auth failures mean
// the session is gone, which the notifier treats like revoked access.
func (c *Controller) fail(err error, message string) {
	code := actions.CodeOf(err)
	c.log.Warn("mutation failed", "code", code, "err", err)
	if code == actions.CodeAuth {
		c.notifier.AccessRevoked()
		return
	}
	c.notifier.Notify(message)
}

// rejectPending explains why a mutation on a missing or still-saving
// entry was refused. Callers hold no lock.
func (c *Controller) rejectPending(idx int) error {
	if idx < 0 {
		c.notifier.Notify("todo no longer exists")
		return errMissing
	}
	c.notifier.Notify("todo is still saving")
	return errPending
}

// indexOf finds a todo by id in the view. Callers hold c.mu.
func (c *Controller) indexOf(todoID string) int {
	for i := range c.todos {
		if c.todos[i].ID == todoID {
			return i
		}
	}
	return -1
}

func indexOfComment(list []model.Comment, id string) int {
	for i := range list {
		if list[i].ID == id {
			return i
		}
	}
	return -1
}
