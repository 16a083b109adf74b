package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/disputeflow/backend/internal/classifier"
	"github.com/disputeflow/backend/internal/config"
	"github.com/disputeflow/backend/internal/embed"
	"github.com/disputeflow/backend/internal/models"
)

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	rules := config.DefaultRules()
	resolver := classifier.NewResolver(rules, classifier.NewPhraseIndex(rules.Phrases), embed.Disabled())
	return &Pipeline{
		Resolver: resolver,
		Advisor:  classifier.NewAdvisor(rules.Resolutions),
		Logger:   zerolog.Nop(),
	}
}

func amt(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestRun_PreservesInputOrder(t *testing.T) {
	p := newTestPipeline(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		{ID: "t1", CustomerID: "c1", Amount: amt("100"), Timestamp: base, Status: models.TxnSuccess},
		{ID: "t2", CustomerID: "c2", Amount: amt("200"), Timestamp: base, Status: models.TxnFailed},
		{ID: "t3", CustomerID: "c3", Amount: amt("300"), Timestamp: base, Status: models.TxnSuccess},
	}
	disputes := []models.Dispute{
		{ID: "d3", Description: "payment failed", TxnID: "t2", CreatedAt: base},
		{ID: "d1", Description: "refund not received", TxnID: "t1", CreatedAt: base},
		{ID: "d2", Description: "the weather is nice today", TxnID: "t3", CreatedAt: base},
	}

	result, err := p.Run(context.Background(), disputes, txns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Classifications) != 3 {
		t.Fatalf("expected 3 classifications, got %d", len(result.Classifications))
	}
	want := []string{"d3", "d1", "d2"}
	for i, c := range result.Classifications {
		if c.DisputeID != want[i] {
			t.Fatalf("expected order %v, got %s at %d", want, c.DisputeID, i)
		}
		if result.Resolutions[i].DisputeID != want[i] {
			t.Fatalf("resolutions out of order at %d", i)
		}
	}
}

func TestRun_SkipsUnknownTransactionRef(t *testing.T) {
	p := newTestPipeline(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		{ID: "t1", CustomerID: "c1", Amount: amt("100"), Timestamp: base, Status: models.TxnSuccess},
	}
	disputes := []models.Dispute{
		{ID: "d1", Description: "refund not received", TxnID: "t1", CreatedAt: base},
		{ID: "d2", Description: "refund not received", TxnID: "missing", CreatedAt: base},
	}

	result, err := p.Run(context.Background(), disputes, txns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Classifications) != 1 {
		t.Fatalf("expected 1 classification, got %d", len(result.Classifications))
	}
	if len(result.Skipped) != 1 {
		t.Fatalf("expected 1 skipped dispute, got %d", len(result.Skipped))
	}
	s := result.Skipped[0]
	if s.DisputeID != "d2" || s.TxnID != "missing" {
		t.Fatalf("unexpected skip report: %+v", s)
	}
	if s.Reason == "" {
		t.Fatalf("expected a reason on the skip report")
	}
}

func TestRun_DuplicateDisputeIDsFailBatch(t *testing.T) {
	p := newTestPipeline(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	disputes := []models.Dispute{
		{ID: "d1", Description: "x", TxnID: "t1", CreatedAt: base},
		{ID: "d1", Description: "y", TxnID: "t1", CreatedAt: base},
	}

	_, err := p.Run(context.Background(), disputes, nil)
	var malformed *MalformedInputError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if len(malformed.Details) != 1 || malformed.Details[0] != "d1" {
		t.Fatalf("expected duplicate id d1 reported, got %v", malformed.Details)
	}
}

func TestRun_ResolutionsAlignWithClassifications(t *testing.T) {
	p := newTestPipeline(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		{ID: "t1", CustomerID: "c1", Amount: amt("50"), Timestamp: base, Status: models.TxnSuccess},
		{ID: "t2", CustomerID: "c1", Amount: amt("50"), Timestamp: base.Add(time.Minute), Status: models.TxnSuccess},
	}
	disputes := []models.Dispute{
		{ID: "d1", Description: "something odd here", TxnID: "t1", CreatedAt: base},
	}

	result, err := p.Run(context.Background(), disputes, txns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Classifications[0].Category != models.CategoryDuplicate {
		t.Fatalf("expected metadata duplicate, got %s", result.Classifications[0].Category)
	}
	if result.Resolutions[0].Action != "Auto-refund" {
		t.Fatalf("expected duplicate resolution action, got %q", result.Resolutions[0].Action)
	}
	if result.Classifications[0].Status != models.StatusNew {
		t.Fatalf("expected fresh classification status New, got %q", result.Classifications[0].Status)
	}
}

func TestRun_SummaryCounts(t *testing.T) {
	p := newTestPipeline(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	txns := []models.Transaction{
		{ID: "t1", CustomerID: "c1", Amount: amt("100"), Timestamp: base, Status: models.TxnSuccess},
	}
	disputes := []models.Dispute{
		{ID: "d1", Description: "refund not received", TxnID: "t1", CreatedAt: base},
		{ID: "d2", Description: "x", TxnID: "gone", CreatedAt: base},
	}

	result, err := p.Run(context.Background(), disputes, txns)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Summary.Counts["disputes"] != 2 {
		t.Fatalf("expected 2 disputes counted, got %v", result.Summary.Counts["disputes"])
	}
	if result.Summary.Counts["classified"] != 1 {
		t.Fatalf("expected 1 classified, got %v", result.Summary.Counts["classified"])
	}
	if result.Summary.Counts["skipped"] != 1 {
		t.Fatalf("expected 1 skipped, got %v", result.Summary.Counts["skipped"])
	}
	if len(result.Summary.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(result.Summary.Events))
	}
}
