package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/baiirun/yepdone/internal/model"
)

// CreateTodo inserts a new todo into the database.
func (db *DB) CreateTodo(todo *model.Todo) error {
	if err := model.ValidateTitle(todo.Title); err != nil {
		return fmt.Errorf("invalid title: %w", err)
	}
	if err := model.ValidatePriority(todo.Priority); err != nil {
		return fmt.Errorf("invalid priority: %w", err)
	}

	_, err := db.Exec(`
		INSERT INTO todos (id, title, completed, due_date, priority, workspace_id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		todo.ID, todo.Title, todo.Completed, todo.DueDate, todo.Priority,
		todo.WorkspaceID, todo.UserID, todo.CreatedAt, todo.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create todo: %w", err)
	}
	return nil
}

// GetTodo retrieves a todo by ID.
func (db *DB) GetTodo(id string) (*model.Todo, error) {
	row := db.QueryRow(`
		SELECT id, title, completed, due_date, priority, workspace_id, user_id, created_at, updated_at
		FROM todos WHERE id = ?`, id)

	todo, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get todo: %w", err)
	}
	return todo, nil
}

// ToggleTodo flips a todo's completed flag and returns the updated row.
func (db *DB) ToggleTodo(id string) (*model.Todo, error) {
	result, err := db.Exec(`
		UPDATE todos SET completed = NOT completed, updated_at = ? WHERE id = ?`,
		time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle todo: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	return db.GetTodo(id)
}

// UpdateDueDate sets a todo's due date (nil clears it) and returns the
// updated row.
func (db *DB) UpdateDueDate(id string, dueDate *string) (*model.Todo, error) {
	result, err := db.Exec(`
		UPDATE todos SET due_date = ?, updated_at = ? WHERE id = ?`,
		dueDate, time.Now(), id)
	if err != nil {
		return nil, fmt.Errorf("failed to update due date: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return nil, fmt.Errorf("todo %s: %w", id, ErrNotFound)
	}
	return db.GetTodo(id)
}

// DeleteTodo removes a todo and returns the deleted row. Comments are
// removed by the schema's cascade rule.
func (db *DB) DeleteTodo(id string) (*model.Todo, error) {
	todo, err := db.GetTodo(id)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`DELETE FROM todos WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete todo: %w", err)
	}
	return todo, nil
}

// ListTodos returns all todos in a workspace, oldest first.
func (db *DB) ListTodos(workspaceID string) ([]model.Todo, error) {
	rows, err := db.Query(`
		SELECT id, title, completed, due_date, priority, workspace_id, user_id, created_at, updated_at
		FROM todos WHERE workspace_id = ?
		ORDER BY created_at ASC, id ASC`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()

	var todos []model.Todo
	for rows.Next() {
		todo, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		todos = append(todos, *todo)
	}
	return todos, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTodo(row scanner) (*model.Todo, error) {
	todo := &model.Todo{}
	var dueDate sql.NullString
	err := row.Scan(
		&todo.ID, &todo.Title, &todo.Completed, &dueDate, &todo.Priority,
		&todo.WorkspaceID, &todo.UserID, &todo.CreatedAt, &todo.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		todo.DueDate = &dueDate.String
	}
	return todo, nil
}
