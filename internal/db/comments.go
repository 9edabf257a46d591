package db

import (
	"database/sql"
	"fmt"

	"github.com/baiirun/yepdone/internal/model"
)

// CreateComment inserts a comment on a todo.
func (db *DB) CreateComment(comment *model.Comment) error {
	if comment.Content == "" {
		return fmt.Errorf("comment content cannot be empty")
	}

	_, err := db.Exec(`
		INSERT INTO comments (id, content, todo_id, user_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		comment.ID, comment.Content, comment.TodoID, comment.UserID,
		comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

// GetComment retrieves a comment by ID.
func (db *DB) GetComment(id string) (*model.Comment, error) {
	row := db.QueryRow(`
		SELECT id, content, todo_id, user_id, created_at, updated_at
		FROM comments WHERE id = ?`, id)

	comment := &model.Comment{}
	err := row.Scan(
		&comment.ID, &comment.Content, &comment.TodoID, &comment.UserID,
		&comment.CreatedAt, &comment.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("comment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

// DeleteComment removes a comment and returns the deleted row.
func (db *DB) DeleteComment(id string) (*model.Comment, error) {
	comment, err := db.GetComment(id)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(`DELETE FROM comments WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}
	return comment, nil
}

// ListComments returns a todo's comments, oldest first.
func (db *DB) ListComments(todoID string) ([]model.Comment, error) {
	rows, err := db.Query(`
		SELECT id, content, todo_id, user_id, created_at, updated_at
		FROM comments WHERE todo_id = ?
		ORDER BY created_at ASC, id ASC`, todoID)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.Content, &c.TodoID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}
