package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// Money columns are read as text so no precision passes through float64.
const taskColumns = `task_id, agent_id, client_id, title, notes, status,
	due_date, priority, effort_hours, estimated_commission::text, probability,
	created_at, updated_at, completed_at`

func scanTask(row pgx.Row) (*Task, error) {
	t := &Task{}
	var status, commission string
	err := row.Scan(
		&t.ID, &t.AgentID, &t.ClientID, &t.Title, &t.Notes, &status,
		&t.DueDate, &t.Priority, &t.EffortHours, &commission, &t.Probability,
		&t.CreatedAt, &t.UpdatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	t.Status = TaskStatus(status)
	t.EstimatedCommission, err = decimal.NewFromString(commission)
	if err != nil {
		return nil, fmt.Errorf("parse estimated_commission: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) CreateTask(ctx context.Context, task *Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = StatusOpen
	}
	return s.pool.QueryRow(ctx, `
		INSERT INTO crm_tasks (task_id, agent_id, client_id, title, notes, status,
			due_date, priority, effort_hours, estimated_commission, probability)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::numeric, $11)
		RETURNING created_at, updated_at`,
		task.ID, task.AgentID, task.ClientID, task.Title, task.Notes, string(task.Status),
		task.DueDate, task.Priority, task.EffortHours, task.EstimatedCommission.String(), task.Probability,
	).Scan(&task.CreatedAt, &task.UpdatedAt)
}

func (s *PostgresStore) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `
		SELECT `+taskColumns+`
		FROM crm_tasks WHERE task_id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *PostgresStore) UpdateTask(ctx context.Context, task *Task) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE crm_tasks SET
			client_id = $2, title = $3, notes = $4, status = $5,
			due_date = $6, priority = $7, effort_hours = $8,
			estimated_commission = $9::numeric, probability = $10,
			completed_at = $11, updated_at = now()
		WHERE task_id = $1`,
		task.ID, task.ClientID, task.Title, task.Notes, string(task.Status),
		task.DueDate, task.Priority, task.EffortHours,
		task.EstimatedCommission.String(), task.Probability,
		task.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	task.UpdatedAt = time.Now()
	return nil
}

func (s *PostgresStore) ListOpenTasks(ctx context.Context, agentID string) ([]*Task, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+taskColumns+`
		FROM crm_tasks
		WHERE agent_id = $1 AND status = $2
		ORDER BY created_at, task_id`, agentID, string(StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *PostgresStore) ListAgentsWithOpenTasks(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT agent_id FROM crm_tasks
		WHERE status = $1 ORDER BY agent_id`, string(StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []string
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func (s *PostgresStore) GetCommissionTarget(ctx context.Context, agentID, month string) (*CommissionTarget, error) {
	ct := &CommissionTarget{AgentID: agentID, Month: month}
	var target, earned string
	err := s.pool.QueryRow(ctx, `
		SELECT target::text, earned::text, updated_at
		FROM crm_commission_targets WHERE agent_id = $1 AND month = $2`,
		agentID, month,
	).Scan(&target, &earned, &ct.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		ct.Target = decimal.Zero
		ct.Earned = decimal.Zero
		return ct, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get commission target: %w", err)
	}
	if ct.Target, err = decimal.NewFromString(target); err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	if ct.Earned, err = decimal.NewFromString(earned); err != nil {
		return nil, fmt.Errorf("parse earned: %w", err)
	}
	return ct, nil
}

func (s *PostgresStore) UpsertCommissionTarget(ctx context.Context, ct *CommissionTarget) error {
	return s.pool.QueryRow(ctx, `
		INSERT INTO crm_commission_targets (agent_id, month, target, earned)
		VALUES ($1, $2, $3::numeric, $4::numeric)
		ON CONFLICT (agent_id, month) DO UPDATE
			SET target = EXCLUDED.target, earned = EXCLUDED.earned, updated_at = now()
		RETURNING updated_at`,
		ct.AgentID, ct.Month, ct.Target.String(), ct.Earned.String(),
	).Scan(&ct.UpdatedAt)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func addEarned(ctx context.Context, q queryRower, agentID, month string, amount decimal.Decimal) (*CommissionTarget, error) {
	ct := &CommissionTarget{AgentID: agentID, Month: month}
	var target, earned string
	err := q.QueryRow(ctx, `
		INSERT INTO crm_commission_targets (agent_id, month, earned)
		VALUES ($1, $2, $3::numeric)
		ON CONFLICT (agent_id, month) DO UPDATE
			SET earned = crm_commission_targets.earned + EXCLUDED.earned, updated_at = now()
		RETURNING target::text, earned::text, updated_at`,
		agentID, month, amount.String(),
	).Scan(&target, &earned, &ct.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("add earned: %w", err)
	}
	if ct.Target, err = decimal.NewFromString(target); err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	if ct.Earned, err = decimal.NewFromString(earned); err != nil {
		return nil, fmt.Errorf("parse earned: %w", err)
	}
	return ct, nil
}

func (s *PostgresStore) AddEarned(ctx context.Context, agentID, month string, amount decimal.Decimal) (*CommissionTarget, error) {
	return addEarned(ctx, s.pool, agentID, month, amount)
}

// CompleteTask uses a conditional UPDATE as the open check, so concurrent
// completions of the same task cannot both succeed.
func (s *PostgresStore) CompleteTask(ctx context.Context, agentID string, id uuid.UUID, completedAt time.Time, month string, earned decimal.Decimal) (*Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := scanTask(tx.QueryRow(ctx, `
		UPDATE crm_tasks SET status = $4, completed_at = $5, updated_at = now()
		WHERE task_id = $1 AND agent_id = $2 AND status = $3
		RETURNING `+taskColumns,
		id, agentID, string(StatusOpen), string(StatusCompleted), completedAt))
	if errors.Is(err, pgx.ErrNoRows) {
		var owner string
		err := tx.QueryRow(ctx, `SELECT agent_id FROM crm_tasks WHERE task_id = $1`, id).Scan(&owner)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && owner != agentID) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get task: %w", err)
		}
		return nil, ErrNotOpen
	}
	if err != nil {
		return nil, fmt.Errorf("complete task: %w", err)
	}

	if earned.IsPositive() {
		if _, err := addEarned(ctx, tx, agentID, month, earned); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}
