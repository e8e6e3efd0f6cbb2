package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// InsertPendingBets writes one drainer flush in a single transaction: either
// every buffered bet lands with status 'pending' or none do.
func (s *Store) InsertPendingBets(ctx context.Context, bets []PendingBet) error {
	if len(bets) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pending_bets (
		bet_id, user_seed, timestamp, node_id, heads,
		vrf_proof, processing_time_ms, processed_at, retry_count, status
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'pending')`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, bet := range bets {
		if _, err := stmt.ExecContext(ctx,
			bet.BetID, bet.UserSeed, int64(bet.Timestamp), bet.NodeID, bet.Heads,
			bet.VrfProof, int64(bet.ProcessingTimeMS), formatTime(bet.ProcessedAt), bet.RetryCount,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListPendingBets returns up to limit pending rows, oldest first.
func (s *Store) ListPendingBets(ctx context.Context, limit int) ([]PendingBet, error) {
	if limit <= 0 {
		return nil, nil
	}
	rows, err := s.DB.QueryContext(ctx, `SELECT bet_id, user_seed, timestamp, node_id, heads,
		vrf_proof, processing_time_ms, processed_at, retry_count, status
		FROM pending_bets WHERE status = 'pending' ORDER BY processed_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBets(rows)
}

// ListRetrySurvivors returns pending rows that already went through at least
// one failed settlement attempt, oldest first. Used for crash recovery.
func (s *Store) ListRetrySurvivors(ctx context.Context) ([]PendingBet, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT bet_id, user_seed, timestamp, node_id, heads,
		vrf_proof, processing_time_ms, processed_at, retry_count, status
		FROM pending_bets WHERE status = 'pending' AND retry_count > 0 ORDER BY processed_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBets(rows)
}

// GetBet loads a single row including terminal fields.
func (s *Store) GetBet(ctx context.Context, betID string) (*PendingBet, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT bet_id, user_seed, timestamp, node_id, heads,
		vrf_proof, processing_time_ms, processed_at, retry_count, status,
		tx_signature, settled_at, failed_at, error_message
		FROM pending_bets WHERE bet_id = ?`, betID)

	var (
		b                               PendingBet
		ts, procMS                      int64
		processedAt                     string
		txSig, settledAt, failedAt, msg sql.NullString
	)
	err := row.Scan(&b.BetID, &b.UserSeed, &ts, &b.NodeID, &b.Heads,
		&b.VrfProof, &procMS, &processedAt, &b.RetryCount, &b.Status,
		&txSig, &settledAt, &failedAt, &msg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.Timestamp = uint64(ts)
	b.ProcessingTimeMS = uint64(procMS)
	if b.ProcessedAt, err = parseTime(processedAt); err != nil {
		return nil, err
	}
	if txSig.Valid {
		b.TxSignature = &txSig.String
	}
	if msg.Valid {
		b.ErrorMessage = &msg.String
	}
	if settledAt.Valid {
		if t, err := parseTime(settledAt.String); err == nil {
			b.SettledAt = &t
		}
	}
	if failedAt.Valid {
		if t, err := parseTime(failedAt.String); err == nil {
			b.FailedAt = &t
		}
	}
	return &b, nil
}

// MarkBatchSettled flips every bet of a successful batch to 'settled' and
// records the batch row, all in one transaction: either the whole batch
// settles or none of it does.
func (s *Store) MarkBatchSettled(ctx context.Context, bets []PendingBet, result BatchResult) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	settledAt := formatTime(result.CreatedAt)
	for _, bet := range bets {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pending_bets SET status = 'settled', tx_signature = ?, settled_at = ?
			 WHERE bet_id = ? AND status = 'pending'`,
			result.TxSignature, settledAt, bet.BetID,
		); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO settlement_batches (
		batch_id, bet_count, processing_time_ms, tx_signature, success, created_at
	) VALUES (?, ?, ?, ?, ?, ?)`,
		result.BatchID, result.BetCount, int64(result.ProcessingTimeMS),
		result.TxSignature, result.Success, settledAt,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// FinalizeFailedBatch persists the aftermath of a failed settlement attempt:
// retryable bets keep status 'pending' with their incremented retry_count,
// exhausted bets become terminal 'failed' rows carrying the error text.
func (s *Store) FinalizeFailedBatch(ctx context.Context, retryable, exhausted []PendingBet, errMsg string, failedAt time.Time) error {
	if len(retryable) == 0 && len(exhausted) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, bet := range retryable {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pending_bets SET retry_count = ? WHERE bet_id = ? AND status = 'pending'`,
			bet.RetryCount, bet.BetID,
		); err != nil {
			return err
		}
	}
	failedAtText := formatTime(failedAt)
	for _, bet := range exhausted {
		if _, err := tx.ExecContext(ctx,
			`UPDATE pending_bets SET status = 'failed', retry_count = ?, error_message = ?, failed_at = ?
			 WHERE bet_id = ? AND status = 'pending'`,
			bet.RetryCount, errMsg, failedAtText, bet.BetID,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func scanBets(rows *sql.Rows) ([]PendingBet, error) {
	var out []PendingBet
	for rows.Next() {
		var (
			b           PendingBet
			ts, procMS  int64
			processedAt string
		)
		if err := rows.Scan(&b.BetID, &b.UserSeed, &ts, &b.NodeID, &b.Heads,
			&b.VrfProof, &procMS, &processedAt, &b.RetryCount, &b.Status); err != nil {
			return nil, err
		}
		b.Timestamp = uint64(ts)
		b.ProcessingTimeMS = uint64(procMS)
		var err error
		if b.ProcessedAt, err = parseTime(processedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
