package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dispute categories form a closed set; the classifier never emits anything else.
const (
	CategoryFraud     = "FRAUD"
	CategoryDuplicate = "DUPLICATE_CHARGE"
	CategoryRefund    = "REFUND_PENDING"
	CategoryFailed    = "FAILED_TRANSACTION"
	CategoryOthers    = "OTHERS"
)

// ScoredCategories lists the categories that carry a phrase set. OTHERS is
// reachable only through the final fallback, never by winning a score.
var ScoredCategories = []string{
	CategoryFraud,
	CategoryRefund,
	CategoryFailed,
	CategoryDuplicate,
}

// Workflow statuses of a dispute case. Mutated only by the caller, never by
// the classifier.
const (
	StatusNew      = "New"
	StatusInReview = "In Review"
	StatusResolved = "Resolved"
	StatusClosed   = "Closed"
)

// Transaction statuses as they appear in the ledger.
const (
	TxnSuccess   = "SUCCESS"
	TxnFailed    = "FAILED"
	TxnCancelled = "CANCELLED"
	TxnPending   = "PENDING"
)

type Dispute struct {
	ID          string    `json:"dispute_id"`
	Description string    `json:"description"`
	TxnID       string    `json:"txn_id"`
	CreatedAt   time.Time `json:"created_at"`
}

type Transaction struct {
	ID         string          `json:"txn_id"`
	CustomerID string          `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Timestamp  time.Time       `json:"timestamp"`
	Status     string          `json:"status"`
}

type ClassificationResult struct {
	DisputeID   string  `json:"dispute_id"`
	Category    string  `json:"predicted_category"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
	Status      string  `json:"status"`
}

type ResolutionResult struct {
	DisputeID     string `json:"dispute_id"`
	Action        string `json:"suggested_action"`
	Justification string `json:"justification"`
}

type Run struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Status     string    `json:"status"`
	Summary    []byte    `json:"summary"`
}
