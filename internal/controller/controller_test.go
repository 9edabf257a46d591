package controller

import (
	"fmt"
	"io"
	"reflect"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/baiirun/yepdone/internal/actions"
	"github.com/baiirun/yepdone/internal/buckets"
	"github.com/baiirun/yepdone/internal/model"
)

// stub is an in-memory Boundary whose operations can be made to fail
// one at a time.
type stub struct {
	todos    map[string]*model.Todo
	comments map[string]*model.Comment
	nextID   int
	member   bool
	err      map[string]error // op name -> injected failure
}

func newStub() *stub {
	return &stub{
		todos:    make(map[string]*model.Todo),
		comments: make(map[string]*model.Comment),
		member:   true,
		err:      make(map[string]error),
	}
}

func (s *stub) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func (s *stub) seed(title string, due *string) *model.Todo {
	todo := &model.Todo{ID: s.id(), Title: title, DueDate: due, Priority: 3, WorkspaceID: "ws"}
	s.todos[todo.ID] = todo
	return todo
}

func dbErr() error {
	return &actions.Error{Code: actions.CodeDB, Message: "injected"}
}

func (s *stub) CreateTodo(workspaceID, title string, dueDate *string, priority int) (*model.Todo, error) {
	if err := s.err["create"]; err != nil {
		return nil, err
	}
	todo := &model.Todo{ID: s.id(), Title: title, DueDate: dueDate, Priority: priority, WorkspaceID: workspaceID}
	s.todos[todo.ID] = todo
	clone := todo.Clone()
	return &clone, nil
}

func (s *stub) ToggleTodo(todoID string) (*model.Todo, error) {
	if err := s.err["toggle"]; err != nil {
		return nil, err
	}
	todo, ok := s.todos[todoID]
	if !ok {
		return nil, &actions.Error{Code: actions.CodeNotFound, Message: "todo not found"}
	}
	todo.Completed = !todo.Completed
	clone := todo.Clone()
	return &clone, nil
}

func (s *stub) DeleteTodo(todoID string) (*model.Todo, error) {
	if err := s.err["delete"]; err != nil {
		return nil, err
	}
	todo, ok := s.todos[todoID]
	if !ok {
		return nil, &actions.Error{Code: actions.CodeNotFound, Message: "todo not found"}
	}
	delete(s.todos, todoID)
	clone := todo.Clone()
	return &clone, nil
}

func (s *stub) UpdateDueDate(todoID string, dueDate *string) (*model.Todo, error) {
	if err := s.err["due"]; err != nil {
		return nil, err
	}
	todo, ok := s.todos[todoID]
	if !ok {
		return nil, &actions.Error{Code: actions.CodeNotFound, Message: "todo not found"}
	}
	todo.DueDate = dueDate
	clone := todo.Clone()
	return &clone, nil
}

func (s *stub) CreateComment(todoID, content string) (*model.Comment, error) {
	if err := s.err["comment"]; err != nil {
		return nil, err
	}
	comment := &model.Comment{ID: s.id(), Content: content, TodoID: todoID}
	s.comments[comment.ID] = comment
	clone := *comment
	return &clone, nil
}

func (s *stub) DeleteComment(commentID string) (*model.Comment, error) {
	if err := s.err["uncomment"]; err != nil {
		return nil, err
	}
	comment, ok := s.comments[commentID]
	if !ok {
		return nil, &actions.Error{Code: actions.CodeNotFound, Message: "comment not found"}
	}
	delete(s.comments, commentID)
	clone := *comment
	return &clone, nil
}

func (s *stub) ListTodos(workspaceID string) ([]model.Todo, error) {
	if err := s.err["list"]; err != nil {
		return nil, err
	}
	var out []model.Todo
	for _, todo := range s.todos {
		out = append(out, todo.Clone())
	}
	return out, nil
}

func (s *stub) ListComments(todoID string) ([]model.Comment, error) {
	var out []model.Comment
	for _, comment := range s.comments {
		if comment.TodoID == todoID {
			out = append(out, *comment)
		}
	}
	return out, nil
}

func (s *stub) CheckMembership(workspaceID string) (bool, error) {
	if err := s.err["membership"]; err != nil {
		return false, err
	}
	return s.member, nil
}

// recorder captures notifier calls.
type recorder struct {
	messages []string
	revoked  bool
}

func (r *recorder) Notify(message string) { r.messages = append(r.messages, message) }
func (r *recorder) AccessRevoked()        { r.revoked = true }

func setup(t *testing.T) (*Controller, *stub, *recorder) {
	t.Helper()
	s := newStub()
	r := &recorder{}
	c := New(s, r, "ws", log.New(io.Discard))
	return c, s, r
}

func titles(todos []model.Todo) []string {
	out := make([]string, len(todos))
	for i, todo := range todos {
		out[i] = todo.Title
	}
	return out
}

func TestCreate_SwapsTempID(t *testing.T) {
	c, _, r := setup(t)
	now := time.Now()

	if err := c.Create("buy milk", 3, now); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	todos := c.Todos()
	if len(todos) != 1 {
		t.Fatalf("expected 1 todo, got %d", len(todos))
	}
	if model.IsTempID(todos[0].ID) {
		t.Errorf("temp id %q survived a confirmed create", todos[0].ID)
	}
	if len(r.messages) != 0 {
		t.Errorf("unexpected notifications: %v", r.messages)
	}
}

func TestCreate_ExtractsDueDate(t *testing.T) {
	c, _, _ := setup(t)
	now := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.Local)

	if err := c.Create("submit report dec 5 at 2pm", 3, now); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	todos := c.Todos()
	if todos[0].DueDate == nil {
		t.Fatal("expected a due date extracted from the title")
	}
	if *todos[0].DueDate != "2024-12-05T14:00:00" {
		t.Errorf("due date = %q, want 2024-12-05T14:00:00", *todos[0].DueDate)
	}
}

func TestCreate_RollsBackOnFailure(t *testing.T) {
	c, s, r := setup(t)
	s.err["create"] = dbErr()

	before := c.Todos()
	if err := c.Create("buy milk", 3, time.Now()); err == nil {
		t.Fatal("expected create to fail")
	}

	if got := c.Todos(); !reflect.DeepEqual(got, before) {
		t.Errorf("view changed after rollback: %+v", got)
	}
	if len(r.messages) != 1 {
		t.Errorf("expected one notification, got %v", r.messages)
	}
}

func TestToggle_RollsBackOnFailure(t *testing.T) {
	c, s, _ := setup(t)
	s.seed("buy milk", nil)
	if err := c.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	s.err["toggle"] = dbErr()
	todoID := c.Todos()[0].ID
	if err := c.Toggle(todoID); err == nil {
		t.Fatal("expected toggle to fail")
	}

	if c.Todos()[0].Completed {
		t.Error("completed flag not rolled back")
	}
}

func TestDelete_RestoresPositionOnFailure(t *testing.T) {
	c, s, _ := setup(t)
	first := s.seed("first", nil)
	second := s.seed("second", nil)
	third := s.seed("third", nil)
	c.mu.Lock()
	c.todos = []model.Todo{first.Clone(), second.Clone(), third.Clone()}
	c.mu.Unlock()

	s.err["delete"] = dbErr()
	if err := c.Delete(second.ID); err == nil {
		t.Fatal("expected delete to fail")
	}

	want := []string{"first", "second", "third"}
	if got := titles(c.Todos()); !reflect.DeepEqual(got, want) {
		t.Errorf("order after rollback = %v, want %v", got, want)
	}
}

func TestSetDueDate_RestoresSnapshotOnFailure(t *testing.T) {
	c, s, _ := setup(t)
	original := "2024-06-11T09:00:00"
	seeded := s.seed("buy milk", &original)
	if err := c.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	s.err["due"] = dbErr()
	changed := "2024-12-05T09:00:00"
	if err := c.SetDueDate(seeded.ID, &changed); err == nil {
		t.Fatal("expected update to fail")
	}

	got := c.Todos()[0]
	if got.DueDate == nil || *got.DueDate != original {
		t.Errorf("due date = %v, want %q", got.DueDate, original)
	}
}

func TestMoveToBucket_LandsInTarget(t *testing.T) {
	c, s, _ := setup(t)
	seeded := s.seed("buy milk", nil)
	if err := c.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	now := time.Date(2024, time.June, 10, 10, 0, 0, 0, time.Local)
	for _, target := range buckets.All() {
		if err := c.MoveToBucket(seeded.ID, target, now); err != nil {
			t.Fatalf("move to %s failed: %v", target, err)
		}
		got := c.Todos()[0]
		if bucket := buckets.Classify(got, now); bucket != target {
			t.Errorf("after move to %s, classified as %s (due %v)", target, bucket, got.DueDate)
		}
	}
}

func TestOutOfOrderResolution(t *testing.T) {
	// A toggle rollback lands after a later due-date change confirmed.
	// The rollback only touches the completed flag it captured, so the
	// confirmed due date survives.
	c, s, _ := setup(t)
	seeded := s.seed("buy milk", nil)
	if err := c.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	s.err["toggle"] = dbErr()
	if err := c.Toggle(seeded.ID); err == nil {
		t.Fatal("expected toggle to fail")
	}

	due := "2024-12-05T09:00:00"
	if err := c.SetDueDate(seeded.ID, &due); err != nil {
		t.Fatalf("due-date change failed: %v", err)
	}

	got := c.Todos()[0]
	if got.Completed {
		t.Error("toggle rollback lost")
	}
	if got.DueDate == nil || *got.DueDate != due {
		t.Errorf("due date = %v, want %q", got.DueDate, due)
	}
}

func TestMutationOnPendingCreateRejected(t *testing.T) {
	c, _, r := setup(t)
	c.mu.Lock()
	c.todos = []model.Todo{{ID: model.NewTempID(), Title: "saving"}}
	tempID := c.todos[0].ID
	c.mu.Unlock()

	if err := c.Toggle(tempID); err == nil {
		t.Fatal("expected toggle on pending create to be rejected")
	}
	if err := c.Delete(tempID); err == nil {
		t.Fatal("expected delete on pending create to be rejected")
	}
	if len(r.messages) != 2 {
		t.Errorf("expected 2 notifications, got %v", r.messages)
	}

	// The entry itself is untouched.
	if got := c.Todos(); len(got) != 1 || got[0].ID != tempID {
		t.Errorf("pending entry disturbed: %+v", got)
	}
}

func TestAuthFailureSignalsRevocation(t *testing.T) {
	c, s, r := setup(t)
	s.seed("buy milk", nil)
	if err := c.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	s.err["toggle"] = &actions.Error{Code: actions.CodeAuth, Message: "not signed in"}
	if err := c.Toggle(c.Todos()[0].ID); err == nil {
		t.Fatal("expected toggle to fail")
	}
	if !r.revoked {
		t.Error("expected auth failure to signal revoked access")
	}
}

func TestCheckAccess_Revoked(t *testing.T) {
	c, s, r := setup(t)

	c.CheckAccess()
	if r.revoked {
		t.Fatal("access revoked while still a member")
	}

	s.member = false
	c.CheckAccess()
	if !r.revoked {
		t.Error("expected revocation signal")
	}
}

func TestComments_RollbackOnFailure(t *testing.T) {
	c, s, _ := setup(t)
	seeded := s.seed("buy milk", nil)
	if err := c.Load(); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	now := time.Now()
	if err := c.AddComment(seeded.ID, "first", now); err != nil {
		t.Fatalf("add comment failed: %v", err)
	}
	if err := c.AddComment(seeded.ID, "second", now); err != nil {
		t.Fatalf("add comment failed: %v", err)
	}

	s.err["comment"] = dbErr()
	if err := c.AddComment(seeded.ID, "third", now); err == nil {
		t.Fatal("expected add to fail")
	}
	comments := c.Comments(seeded.ID)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments after rollback, got %d", len(comments))
	}

	s.err["uncomment"] = dbErr()
	if err := c.RemoveComment(seeded.ID, comments[0].ID); err == nil {
		t.Fatal("expected remove to fail")
	}
	restored := c.Comments(seeded.ID)
	if len(restored) != 2 || restored[0].Content != "first" {
		t.Errorf("comment not restored in place: %+v", restored)
	}
}
