package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

// Fixed-width UTC layout so text columns sort chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS crm_tasks (
	task_id              TEXT PRIMARY KEY,
	agent_id             TEXT NOT NULL,
	client_id            TEXT,
	title                TEXT NOT NULL,
	notes                TEXT NOT NULL DEFAULT '',
	status               TEXT NOT NULL DEFAULT 'open',
	due_date             TEXT,
	priority             INTEGER NOT NULL DEFAULT 0,
	effort_hours         REAL NOT NULL DEFAULT 0,
	estimated_commission TEXT NOT NULL DEFAULT '0',
	probability          REAL NOT NULL DEFAULT 0,
	created_at           TEXT NOT NULL,
	updated_at           TEXT NOT NULL,
	completed_at         TEXT
);
CREATE INDEX IF NOT EXISTS idx_crm_tasks_agent_status ON crm_tasks (agent_id, status);
CREATE TABLE IF NOT EXISTS crm_commission_targets (
	agent_id   TEXT NOT NULL,
	month      TEXT NOT NULL,
	target     TEXT NOT NULL DEFAULT '0',
	earned     TEXT NOT NULL DEFAULT '0',
	updated_at TEXT NOT NULL,
	PRIMARY KEY (agent_id, month)
);`

// SQLiteStore is the single-user local store used by plannerctl.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path and ensures the schema.
func OpenSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLiteStore{path: path, db: db}, nil
}

func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := time.Parse(sqliteTimeLayout, ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func formatNullUUID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

const sqliteTaskColumns = `task_id, agent_id, client_id, title, notes, status,
	due_date, priority, effort_hours, estimated_commission, probability,
	created_at, updated_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (*Task, error) {
	t := &Task{}
	var id, status, commission, createdAt, updatedAt string
	var clientID, dueDate, completedAt sql.NullString
	err := row.Scan(
		&id, &t.AgentID, &clientID, &t.Title, &t.Notes, &status,
		&dueDate, &t.Priority, &t.EffortHours, &commission, &t.Probability,
		&createdAt, &updatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse task_id: %w", err)
	}
	if clientID.Valid {
		cid, err := uuid.Parse(clientID.String)
		if err != nil {
			return nil, fmt.Errorf("parse client_id: %w", err)
		}
		t.ClientID = &cid
	}
	t.Status = TaskStatus(status)
	if t.EstimatedCommission, err = decimal.NewFromString(commission); err != nil {
		return nil, fmt.Errorf("parse estimated_commission: %w", err)
	}
	if t.DueDate, err = parseNullTime(dueDate); err != nil {
		return nil, fmt.Errorf("parse due_date: %w", err)
	}
	if t.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, fmt.Errorf("parse completed_at: %w", err)
	}
	if t.CreatedAt, err = time.Parse(sqliteTimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) CreateTask(ctx context.Context, task *Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Status == "" {
		task.Status = StatusOpen
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crm_tasks (`+sqliteTaskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ID.String(), task.AgentID, formatNullUUID(task.ClientID), task.Title, task.Notes, string(task.Status),
		formatNullTime(task.DueDate), task.Priority, task.EffortHours, task.EstimatedCommission.String(), task.Probability,
		formatTime(now), formatTime(now), formatNullTime(task.CompletedAt),
	)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	task.CreatedAt = now
	task.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) GetTask(ctx context.Context, id uuid.UUID) (*Task, error) {
	t, err := scanSQLiteTask(s.db.QueryRowContext(ctx,
		`SELECT `+sqliteTaskColumns+` FROM crm_tasks WHERE task_id = ?`, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) UpdateTask(ctx context.Context, task *Task) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE crm_tasks SET
			client_id = ?, title = ?, notes = ?, status = ?,
			due_date = ?, priority = ?, effort_hours = ?,
			estimated_commission = ?, probability = ?,
			completed_at = ?, updated_at = ?
		WHERE task_id = ?`,
		formatNullUUID(task.ClientID), task.Title, task.Notes, string(task.Status),
		formatNullTime(task.DueDate), task.Priority, task.EffortHours,
		task.EstimatedCommission.String(), task.Probability,
		formatNullTime(task.CompletedAt), formatTime(now),
		task.ID.String(),
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	task.UpdatedAt = now
	return nil
}

func (s *SQLiteStore) ListOpenTasks(ctx context.Context, agentID string) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteTaskColumns+` FROM crm_tasks
		WHERE agent_id = ? AND status = ?
		ORDER BY created_at, task_id`, agentID, string(StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("list open tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *SQLiteStore) ListAgentsWithOpenTasks(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT agent_id FROM crm_tasks WHERE status = ? ORDER BY agent_id`, string(StatusOpen))
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

func (s *SQLiteStore) GetCommissionTarget(ctx context.Context, agentID, month string) (*CommissionTarget, error) {
	ct := &CommissionTarget{AgentID: agentID, Month: month, Target: decimal.Zero, Earned: decimal.Zero}
	var target, earned, updatedAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT target, earned, updated_at FROM crm_commission_targets
		WHERE agent_id = ? AND month = ?`, agentID, month,
	).Scan(&target, &earned, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
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
	if ct.UpdatedAt, err = time.Parse(sqliteTimeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return ct, nil
}

func (s *SQLiteStore) UpsertCommissionTarget(ctx context.Context, ct *CommissionTarget) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO crm_commission_targets (agent_id, month, target, earned, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (agent_id, month) DO UPDATE
			SET target = excluded.target, earned = excluded.earned, updated_at = excluded.updated_at`,
		ct.AgentID, ct.Month, ct.Target.String(), ct.Earned.String(), formatTime(now),
	)
	if err != nil {
		return fmt.Errorf("upsert commission target: %w", err)
	}
	ct.UpdatedAt = now
	return nil
}

// sqliteAddEarned runs inside tx. The insert comes first so the transaction
// holds the write lock before earned is read; decimals are added in Go because
// SQLite would add the text columns as floats.
func sqliteAddEarned(ctx context.Context, tx *sql.Tx, agentID, month string, amount decimal.Decimal) (*CommissionTarget, error) {
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO crm_commission_targets (agent_id, month, target, earned, updated_at)
		VALUES (?, ?, '0', '0', ?)
		ON CONFLICT (agent_id, month) DO NOTHING`,
		agentID, month, formatTime(now),
	); err != nil {
		return nil, fmt.Errorf("add earned: %w", err)
	}

	ct := &CommissionTarget{AgentID: agentID, Month: month, UpdatedAt: now}
	var target, earned string
	if err := tx.QueryRowContext(ctx, `
		SELECT target, earned FROM crm_commission_targets
		WHERE agent_id = ? AND month = ?`, agentID, month,
	).Scan(&target, &earned); err != nil {
		return nil, fmt.Errorf("add earned: %w", err)
	}
	var err error
	if ct.Target, err = decimal.NewFromString(target); err != nil {
		return nil, fmt.Errorf("parse target: %w", err)
	}
	if ct.Earned, err = decimal.NewFromString(earned); err != nil {
		return nil, fmt.Errorf("parse earned: %w", err)
	}
	ct.Earned = ct.Earned.Add(amount)

	if _, err := tx.ExecContext(ctx, `
		UPDATE crm_commission_targets SET earned = ?, updated_at = ?
		WHERE agent_id = ? AND month = ?`,
		ct.Earned.String(), formatTime(now), agentID, month,
	); err != nil {
		return nil, fmt.Errorf("add earned: %w", err)
	}
	return ct, nil
}

func (s *SQLiteStore) AddEarned(ctx context.Context, agentID, month string, amount decimal.Decimal) (*CommissionTarget, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	ct, err := sqliteAddEarned(ctx, tx, agentID, month, amount)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return ct, nil
}

func (s *SQLiteStore) CompleteTask(ctx context.Context, agentID string, id uuid.UUID, completedAt time.Time, month string, earned decimal.Decimal) (*Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	t, err := scanSQLiteTask(tx.QueryRowContext(ctx, `
		UPDATE crm_tasks SET status = ?, completed_at = ?, updated_at = ?
		WHERE task_id = ? AND agent_id = ? AND status = ?
		RETURNING `+sqliteTaskColumns,
		string(StatusCompleted), formatTime(completedAt), formatTime(now),
		id.String(), agentID, string(StatusOpen)))
	if errors.Is(err, sql.ErrNoRows) {
		var owner string
		err := tx.QueryRowContext(ctx, `SELECT agent_id FROM crm_tasks WHERE task_id = ?`, id.String()).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != agentID) {
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
		if _, err := sqliteAddEarned(ctx, tx, agentID, month, earned); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return t, nil
}
