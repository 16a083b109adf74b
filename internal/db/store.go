package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/disputeflow/backend/internal/models"
)

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ResetData clears a previous batch. Each analysis run is a single
// synchronous batch; history beyond the last run is not kept.
func (s *Store) ResetData(ctx context.Context) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `TRUNCATE disputes, transactions, classifications, resolutions`)
		return err
	})
}

// InsertDisputes bulk-loads the batch. The ord column preserves input file
// order so result tables come back in the same order they went in.
func (s *Store) InsertDisputes(ctx context.Context, disputes []models.Dispute) (int64, error) {
	rows := make([][]any, 0, len(disputes))
	for i, d := range disputes {
		rows = append(rows, []any{d.ID, d.Description, d.TxnID, d.CreatedAt, i})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"disputes"},
		[]string{"id", "description", "txn_id", "created_at", "ord"}, pgx.CopyFromRows(rows))
}

func (s *Store) InsertTransactions(ctx context.Context, txns []models.Transaction) (int64, error) {
	rows := make([][]any, 0, len(txns))
	for _, t := range txns {
		rows = append(rows, []any{t.ID, t.CustomerID, t.Amount.String(), t.Timestamp, t.Status})
	}
	return s.Pool.CopyFrom(ctx, pgx.Identifier{"transactions"},
		[]string{"id", "customer_id", "amount", "ts", "status"}, pgx.CopyFromRows(rows))
}

func (s *Store) GetDisputesForProcessing(ctx context.Context) ([]models.Dispute, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, description, txn_id, created_at FROM disputes ORDER BY ord ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Dispute
	for rows.Next() {
		var d models.Dispute
		if err := rows.Scan(&d.ID, &d.Description, &d.TxnID, &d.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) GetTransactions(ctx context.Context) ([]models.Transaction, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, customer_id, amount::text, ts, status FROM transactions`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var amount string
		if err := rows.Scan(&t.ID, &t.CustomerID, &amount, &t.Timestamp, &t.Status); err != nil {
			return nil, err
		}
		dec, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		t.Amount = dec
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) UpsertClassification(ctx context.Context, tx pgx.Tx, c models.ClassificationResult) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO classifications (dispute_id, predicted_category, confidence, explanation, status, created_at)
		VALUES ($1,$2,$3,$4,$5,NOW())
		ON CONFLICT (dispute_id) DO UPDATE SET
			predicted_category = EXCLUDED.predicted_category,
			confidence = EXCLUDED.confidence,
			explanation = EXCLUDED.explanation,
			status = EXCLUDED.status,
			created_at = EXCLUDED.created_at
	`, c.DisputeID, c.Category, c.Confidence, c.Explanation, c.Status)
	return err
}

func (s *Store) UpsertResolution(ctx context.Context, tx pgx.Tx, r models.ResolutionResult) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO resolutions (dispute_id, suggested_action, justification)
		VALUES ($1,$2,$3)
		ON CONFLICT (dispute_id) DO UPDATE SET
			suggested_action = EXCLUDED.suggested_action,
			justification = EXCLUDED.justification
	`, r.DisputeID, r.Action, r.Justification)
	return err
}

func (s *Store) ListClassifications(ctx context.Context) ([]models.ClassificationResult, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT c.dispute_id, c.predicted_category, c.confidence, c.explanation, c.status
		FROM classifications c
		JOIN disputes d ON d.id = c.dispute_id
		ORDER BY d.ord ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ClassificationResult
	for rows.Next() {
		var c models.ClassificationResult
		if err := rows.Scan(&c.DisputeID, &c.Category, &c.Confidence, &c.Explanation, &c.Status); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) ListResolutions(ctx context.Context) ([]models.ResolutionResult, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT r.dispute_id, r.suggested_action, r.justification
		FROM resolutions r
		JOIN disputes d ON d.id = r.dispute_id
		ORDER BY d.ord ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ResolutionResult
	for rows.Next() {
		var r models.ResolutionResult
		if err := rows.Scan(&r.DisputeID, &r.Action, &r.Justification); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListJoined returns disputes joined with their classification and
// resolution rows, the unified table handed to the assistant.
func (s *Store) ListJoined(ctx context.Context) ([]map[string]any, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT d.id, d.description, d.txn_id, d.created_at,
			c.predicted_category, c.confidence, c.explanation, c.status,
			r.suggested_action, r.justification
		FROM disputes d
		LEFT JOIN classifications c ON c.dispute_id = d.id
		LEFT JOIN resolutions r ON r.dispute_id = d.id
		ORDER BY d.ord ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var (
			id          string
			description string
			txnID       string
			createdAt   time.Time
			category    *string
			confidence  *float64
			explanation *string
			status      *string
			action      *string
			just        *string
		)
		if err := rows.Scan(&id, &description, &txnID, &createdAt, &category, &confidence, &explanation, &status, &action, &just); err != nil {
			return nil, err
		}
		out = append(out, map[string]any{
			"dispute_id":         id,
			"description":        description,
			"txn_id":             txnID,
			"created_at":         createdAt,
			"predicted_category": category,
			"confidence":         confidence,
			"explanation":        explanation,
			"status":             status,
			"suggested_action":   action,
			"justification":      just,
		})
	}
	return out, rows.Err()
}

// UpdateDisputeStatus mutates the externally editable workflow status of a
// classification row. Returns pgx.ErrNoRows when the dispute is unknown.
func (s *Store) UpdateDisputeStatus(ctx context.Context, disputeID string, status string) error {
	tag, err := s.Pool.Exec(ctx, `UPDATE classifications SET status = $1 WHERE dispute_id = $2`, status, disputeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (s *Store) CreateRun(ctx context.Context, status string) (string, error) {
	var id string
	err := s.Pool.QueryRow(ctx, `INSERT INTO runs (status, started_at) VALUES ($1, NOW()) RETURNING id`, status).Scan(&id)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (map[string]any, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)
	var (
		id       string
		started  time.Time
		finished *time.Time
		status   string
		summary  []byte
	)
	if err := row.Scan(&id, &started, &finished, &status, &summary); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          id,
		"started_at":  started,
		"finished_at": finished,
		"status":      status,
		"summary":     summary,
	}, nil
}
