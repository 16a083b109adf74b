package classifier

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/disputeflow/backend/internal/models"
)

func txnAt(id, customer, amount string, ts time.Time, status string) models.Transaction {
	amt, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}
	return models.Transaction{ID: id, CustomerID: customer, Amount: amt, Timestamp: ts, Status: status}
}

func TestHasDuplicate_WithinWindow(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger([]models.Transaction{
		txnAt("t1", "c1", "500.00", base, models.TxnSuccess),
		txnAt("t2", "c1", "500.00", base.Add(2*time.Minute), models.TxnSuccess),
	})
	if !ledger.HasDuplicate(mustGet(t, ledger, "t1"), 3*time.Minute) {
		t.Fatalf("expected duplicate within window")
	}
	if !ledger.HasDuplicate(mustGet(t, ledger, "t2"), 3*time.Minute) {
		t.Fatalf("expected duplicate to be symmetric")
	}
}

func TestHasDuplicate_WindowBoundaryInclusive(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger([]models.Transaction{
		txnAt("t1", "c1", "100", base, models.TxnSuccess),
		txnAt("t2", "c1", "100", base.Add(3*time.Minute), models.TxnSuccess),
	})
	if !ledger.HasDuplicate(mustGet(t, ledger, "t1"), 3*time.Minute) {
		t.Fatalf("expected boundary delta to count as duplicate")
	}
}

func TestHasDuplicate_OutsideWindow(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger([]models.Transaction{
		txnAt("t1", "c1", "100", base, models.TxnSuccess),
		txnAt("t2", "c1", "100", base.Add(3*time.Minute+time.Second), models.TxnSuccess),
	})
	if ledger.HasDuplicate(mustGet(t, ledger, "t1"), 3*time.Minute) {
		t.Fatalf("expected no duplicate outside window")
	}
}

func TestHasDuplicate_AmountFormattingIrrelevant(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger([]models.Transaction{
		txnAt("t1", "c1", "500", base, models.TxnSuccess),
		txnAt("t2", "c1", "500.00", base.Add(time.Minute), models.TxnSuccess),
	})
	if !ledger.HasDuplicate(mustGet(t, ledger, "t1"), 3*time.Minute) {
		t.Fatalf("expected 500 and 500.00 to compare equal")
	}
}

func TestHasDuplicate_DifferentCustomer(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger([]models.Transaction{
		txnAt("t1", "c1", "100", base, models.TxnSuccess),
		txnAt("t2", "c2", "100", base.Add(time.Minute), models.TxnSuccess),
	})
	if ledger.HasDuplicate(mustGet(t, ledger, "t1"), 3*time.Minute) {
		t.Fatalf("expected no duplicate across customers")
	}
}

func TestHasDuplicate_DifferentAmount(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger([]models.Transaction{
		txnAt("t1", "c1", "100", base, models.TxnSuccess),
		txnAt("t2", "c1", "100.01", base.Add(time.Minute), models.TxnSuccess),
	})
	if ledger.HasDuplicate(mustGet(t, ledger, "t1"), 3*time.Minute) {
		t.Fatalf("expected no duplicate for differing amounts")
	}
}

func TestHasDuplicate_SelfNeverMatches(t *testing.T) {
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ledger := NewLedger([]models.Transaction{
		txnAt("t1", "c1", "100", base, models.TxnSuccess),
	})
	if ledger.HasDuplicate(mustGet(t, ledger, "t1"), 3*time.Minute) {
		t.Fatalf("a transaction must not duplicate itself")
	}
}

func mustGet(t *testing.T, l *Ledger, id string) models.Transaction {
	t.Helper()
	txn, ok := l.Get(id)
	if !ok {
		t.Fatalf("transaction %s not in ledger", id)
	}
	return txn
}
