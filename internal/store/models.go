package store

import "time"

const (
	StatusPending = "pending"
	StatusSettled = "settled"
	StatusFailed  = "failed"
)

// PendingBet is one resolved wager awaiting (or past) settlement. Status
// moves along pending -> settled, pending -> pending (retry increment) or
// pending -> failed; the terminal states never change again.
type PendingBet struct {
	BetID            string    `json:"bet_id"`
	UserSeed         string    `json:"user_seed"`
	Timestamp        uint64    `json:"timestamp"`
	NodeID           string    `json:"node_id"`
	Heads            bool      `json:"heads"`
	VrfProof         string    `json:"vrf_proof"`
	ProcessingTimeMS uint64    `json:"processing_time_ms"`
	ProcessedAt      time.Time `json:"processed_at"`
	RetryCount       int       `json:"retry_count"`
	Status           string    `json:"status"`

	TxSignature  *string    `json:"tx_signature,omitempty"`
	SettledAt    *time.Time `json:"settled_at,omitempty"`
	FailedAt     *time.Time `json:"failed_at,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// BatchResult is the persisted outcome of one settlement batch.
type BatchResult struct {
	BatchID          string    `json:"batch_id"`
	BetCount         int       `json:"bet_count"`
	ProcessingTimeMS uint64    `json:"processing_time_ms"`
	TxSignature      string    `json:"tx_signature"`
	Success          bool      `json:"success"`
	CreatedAt        time.Time `json:"created_at"`
}

type BetSummary struct {
	Total               int64    `json:"total"`
	Settled             int64    `json:"settled"`
	Pending             int64    `json:"pending"`
	Failed              int64    `json:"failed"`
	AvgProcessingTimeMS *float64 `json:"avg_processing_time_ms"`
}

type BatchSummary struct {
	Total               int64    `json:"total"`
	Successful          int64    `json:"successful"`
	AvgSize             *float64 `json:"avg_size"`
	AvgProcessingTimeMS *float64 `json:"avg_processing_time_ms"`
}

// Summary aggregates both tables for operational reporting.
type Summary struct {
	Bets    BetSummary   `json:"bets"`
	Batches BatchSummary `json:"batches"`
}
