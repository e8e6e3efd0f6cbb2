package store

import (
	"context"
	"database/sql"
)

// SettlementSummary aggregates both tables for the /settlement/summary
// endpoint. Averages are nil until at least one matching row exists.
func (s *Store) SettlementSummary(ctx context.Context) (*Summary, error) {
	var (
		out                       Summary
		settled, pending, failed  sql.NullInt64
		avgBetMS, avgSz, avgBatMS sql.NullFloat64
	)

	row := s.DB.QueryRowContext(ctx, `SELECT
		COUNT(*),
		SUM(CASE WHEN status = 'settled' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END),
		SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END),
		AVG(CASE WHEN status = 'settled' THEN processing_time_ms END)
		FROM pending_bets`)
	if err := row.Scan(&out.Bets.Total, &settled, &pending, &failed, &avgBetMS); err != nil {
		return nil, err
	}
	out.Bets.Settled = settled.Int64
	out.Bets.Pending = pending.Int64
	out.Bets.Failed = failed.Int64
	if avgBetMS.Valid {
		out.Bets.AvgProcessingTimeMS = &avgBetMS.Float64
	}

	row = s.DB.QueryRowContext(ctx, `SELECT
		COUNT(*),
		SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END),
		AVG(bet_count),
		AVG(processing_time_ms)
		FROM settlement_batches`)
	var successful sql.NullInt64
	if err := row.Scan(&out.Batches.Total, &successful, &avgSz, &avgBatMS); err != nil {
		return nil, err
	}
	out.Batches.Successful = successful.Int64
	if avgSz.Valid {
		out.Batches.AvgSize = &avgSz.Float64
	}
	if avgBatMS.Valid {
		out.Batches.AvgProcessingTimeMS = &avgBatMS.Float64
	}
	return &out, nil
}
