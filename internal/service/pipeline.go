package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/disputeflow/backend/internal/classifier"
	"github.com/disputeflow/backend/internal/models"
)

// Pipeline runs one synchronous classification batch: index the ledger,
// classify each dispute in input order, derive a resolution, assemble both
// output tables. No state is shared across disputes beyond the read-only
// indices, so rerunning the same inputs yields the same tables.
type Pipeline struct {
	Resolver *classifier.Resolver
	Advisor  *classifier.Advisor
	Logger   zerolog.Logger
}

type SkippedDispute struct {
	DisputeID string `json:"dispute_id"`
	TxnID     string `json:"txn_id"`
	Reason    string `json:"reason"`
}

type RunSummary struct {
	Events []map[string]any `json:"events"`
	Counts map[string]any   `json:"counts"`
}

type BatchResult struct {
	Classifications []models.ClassificationResult `json:"classifications"`
	Resolutions     []models.ResolutionResult     `json:"resolutions"`
	Skipped         []SkippedDispute              `json:"skipped,omitempty"`
	Summary         RunSummary                    `json:"summary"`
}

func (p *Pipeline) Run(ctx context.Context, disputes []models.Dispute, txns []models.Transaction) (BatchResult, error) {
	if err := validateBatch(disputes); err != nil {
		return BatchResult{}, err
	}

	ledger := classifier.NewLedger(txns)
	result := BatchResult{Summary: RunSummary{Counts: map[string]any{}}}
	start := time.Now()
	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":         "batch_start",
		"disputes":     len(disputes),
		"transactions": ledger.Len(),
		"time":         time.Now().UTC(),
	})

	categoryCounts := map[string]int{}

	for _, d := range disputes {
		txn, ok := ledger.Get(d.TxnID)
		if !ok {
			refErr := &UnknownTransactionRefError{DisputeID: d.ID, TxnID: d.TxnID}
			p.Logger.Warn().Str("dispute_id", d.ID).Str("txn_id", d.TxnID).Msg("unknown transaction reference, skipping dispute")
			result.Skipped = append(result.Skipped, SkippedDispute{
				DisputeID: d.ID,
				TxnID:     d.TxnID,
				Reason:    refErr.Error(),
			})
			continue
		}

		verdict := p.Resolver.Classify(ctx, d, txn, ledger)
		action, justification := p.Advisor.Advise(verdict.Category, verdict.Explanation)

		result.Classifications = append(result.Classifications, models.ClassificationResult{
			DisputeID:   d.ID,
			Category:    verdict.Category,
			Confidence:  verdict.Confidence,
			Explanation: verdict.Explanation,
			Status:      models.StatusNew,
		})
		result.Resolutions = append(result.Resolutions, models.ResolutionResult{
			DisputeID:     d.ID,
			Action:        action,
			Justification: justification,
		})
		categoryCounts[verdict.Category]++
	}

	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":       "classification",
		"classified": len(result.Classifications),
		"skipped":    len(result.Skipped),
		"categories": categoryCounts,
		"time":       time.Now().UTC(),
	})
	result.Summary.Events = append(result.Summary.Events, map[string]any{
		"type":       "batch_done",
		"elapsed_ms": time.Since(start).Milliseconds(),
		"time":       time.Now().UTC(),
	})
	result.Summary.Counts["disputes"] = len(disputes)
	result.Summary.Counts["classified"] = len(result.Classifications)
	result.Summary.Counts["skipped"] = len(result.Skipped)
	result.Summary.Counts["categories"] = categoryCounts

	return result, nil
}

func validateBatch(disputes []models.Dispute) error {
	seen := make(map[string]struct{}, len(disputes))
	var dupes []string
	for _, d := range disputes {
		if _, ok := seen[d.ID]; ok {
			dupes = append(dupes, d.ID)
			continue
		}
		seen[d.ID] = struct{}{}
	}
	if len(dupes) > 0 {
		return &MalformedInputError{Message: "duplicate dispute ids in batch", Details: dupes}
	}
	return nil
}
