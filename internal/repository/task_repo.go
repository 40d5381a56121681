package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskflow-backend/internal/models"
)

type TaskRepo struct {
	pool *pgxpool.Pool
}

func NewTaskRepo(pool *pgxpool.Pool) *TaskRepo {
	return &TaskRepo{pool: pool}
}

func (r *TaskRepo) Create(ctx context.Context, t *models.Task) error {
	query := `
		INSERT INTO tasks (id, title, description, status, priority, user_id, due_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	t.ID = uuid.New()
	if t.Status == "" {
		t.Status = models.StatusTodo
	}
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}

	return r.pool.QueryRow(ctx, query,
		t.ID, t.Title, t.Description, t.Status, t.Priority, t.UserID, t.DueDate,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	t := &models.Task{}
	query := `SELECT id, title, description, status, priority, user_id, due_date, created_at, updated_at
		FROM tasks WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.UserID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// List returns all tasks newest-first with the assignee joined in.
func (r *TaskRepo) List(ctx context.Context) ([]*models.Task, error) {
	query := `
		SELECT t.id, t.title, t.description, t.status, t.priority, t.user_id,
		       t.due_date, t.created_at, t.updated_at, u.id, u.name, u.email
		FROM tasks t
		JOIN users u ON u.id = t.user_id
		ORDER BY t.created_at DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{Assignee: &models.TaskAssignee{}}
		err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.UserID,
			&t.DueDate, &t.CreatedAt, &t.UpdatedAt,
			&t.Assignee.ID, &t.Assignee.Name, &t.Assignee.Email,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

func (r *TaskRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Task, error) {
	query := `SELECT id, title, description, status, priority, user_id, due_date, created_at, updated_at
		FROM tasks WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t := &models.Task{}
		err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority,
			&t.UserID, &t.DueDate, &t.CreatedAt, &t.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

func (r *TaskRepo) Update(ctx context.Context, t *models.Task) error {
	query := `UPDATE tasks
		SET title = $1, description = $2, status = $3, priority = $4, due_date = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	return r.pool.QueryRow(ctx, query,
		t.Title, t.Description, t.Status, t.Priority, t.DueDate, t.ID,
	).Scan(&t.UpdatedAt)
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	return err
}

// Snapshots pulls the title/status/due-date tuples the summary prompt is
// built from, ordered the way the prompt expects them (status, then due).
func (r *TaskRepo) Snapshots(ctx context.Context) ([]models.TaskSnapshot, error) {
	query := `SELECT title, status, due_date FROM tasks
		ORDER BY status ASC, due_date ASC NULLS LAST`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []models.TaskSnapshot
	for rows.Next() {
		var s models.TaskSnapshot
		if err := rows.Scan(&s.Title, &s.Status, &s.DueDate); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, s)
	}

	return snapshots, rows.Err()
}
