// Package store keeps evaluation runs and their decoded records in SQLite.
package store

import "context"
import "database/sql"
import "encoding/json"
import "errors"
import "fmt"
import "time"

import "github.com/google/uuid"
import _ "modernc.org/sqlite"

import "github.com/neurlang/abstain/evaluate"
import "github.com/neurlang/abstain/record"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	loss        TEXT,
	created_at  TEXT NOT NULL,
	correct     INTEGER NOT NULL,
	confident   INTEGER NOT NULL,
	total       INTEGER NOT NULL,
	pr_auc      REAL,
	roc_auc     REAL,
	capacity    REAL,
	py_json     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
	run_id      TEXT NOT NULL,
	idx         INTEGER NOT NULL,
	example_id  TEXT,
	pred        INTEGER NOT NULL,
	gold        INTEGER NOT NULL,
	confidence  REAL NOT NULL,
	abstained   INTEGER NOT NULL,
	PRIMARY KEY (run_id, idx),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

var ErrNotFound = errors.New("run not found")

// Run is one stored evaluation. PRAUC and ROCAUC are invalid when the
// curve was undefined for the records.
type Run struct {
	ID        string
	Name      string
	Loss      string
	CreatedAt time.Time
	Summary   evaluate.Summary
	PRAUC     sql.NullFloat64
	ROCAUC    sql.NullFloat64
	Capacity  float64
	PY        evaluate.PYCurve
}

// area is NULL for a curve that has no points.
func area(c evaluate.Curve) sql.NullFloat64 {
	return sql.NullFloat64{Float64: c.Area, Valid: len(c.X) > 0}
}

// Store manages evaluation runs in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a report and its records in one transaction and returns the new run id.
func (s *Store) SaveRun(ctx context.Context, name, lossName string, rep evaluate.Report, recs []record.Record) (string, error) {
	py, err := json.Marshal(rep.PY)
	if err != nil {
		return "", fmt.Errorf("marshal py curve: %w", err)
	}
	id := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, name, loss, created_at, correct, confident, total, pr_auc, roc_auc, capacity, py_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, lossName, time.Now().UTC().Format(time.RFC3339Nano),
		rep.Summary.Correct, rep.Summary.Confident, rep.Summary.Total,
		area(rep.PR), area(rep.ROC), rep.RiskCoverage.Area, string(py),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (run_id, idx, example_id, pred, gold, confidence, abstained) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("prepare records: %w", err)
	}
	defer stmt.Close()
	for i, r := range recs {
		if _, err := stmt.ExecContext(ctx, id, i, r.ID, r.Pred, r.Gold, r.Confidence, r.Abstained); err != nil {
			return "", fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	return id, nil
}

const runColumns = `run_id, name, loss, created_at, correct, confident, total, pr_auc, roc_auc, capacity, py_json`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var lossName sql.NullString
	var created, py string
	err := row.Scan(&r.ID, &r.Name, &lossName, &created,
		&r.Summary.Correct, &r.Summary.Confident, &r.Summary.Total,
		&r.PRAUC, &r.ROCAUC, &r.Capacity, &py)
	if err != nil {
		return r, err
	}
	r.Loss = lossName.String
	if r.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return r, fmt.Errorf("parse created_at: %w", err)
	}
	if err = json.Unmarshal([]byte(py), &r.PY); err != nil {
		return r, fmt.Errorf("unmarshal py curve: %w", err)
	}
	return r, nil
}

// GetRun loads one run without its records.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// ListRuns returns every run, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created_at, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Records loads the records of a run in their original order.
func (s *Store) Records(ctx context.Context, id string) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT example_id, pred, gold, confidence, abstained FROM records WHERE run_id = ? ORDER BY idx`, id)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	var recs []record.Record
	for rows.Next() {
		var r record.Record
		var exampleID sql.NullString
		if err := rows.Scan(&exampleID, &r.Pred, &r.Gold, &r.Confidence, &r.Abstained); err != nil {
			return nil, err
		}
		r.ID = exampleID.String
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
