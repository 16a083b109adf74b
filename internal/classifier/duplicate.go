package classifier

import (
	"time"

	"github.com/disputeflow/backend/internal/models"
)

// Ledger indexes the full transaction set for lookups by id and for the
// metadata duplicate scan. Read-only after construction.
type Ledger struct {
	byID       map[string]models.Transaction
	byCustomer map[string][]models.Transaction
}

func NewLedger(txns []models.Transaction) *Ledger {
	l := &Ledger{
		byID:       make(map[string]models.Transaction, len(txns)),
		byCustomer: make(map[string][]models.Transaction),
	}
	for _, t := range txns {
		l.byID[t.ID] = t
		l.byCustomer[t.CustomerID] = append(l.byCustomer[t.CustomerID], t)
	}
	return l
}

func (l *Ledger) Get(id string) (models.Transaction, bool) {
	t, ok := l.byID[id]
	return t, ok
}

func (l *Ledger) Len() int {
	return len(l.byID)
}

// HasDuplicate reports whether another transaction of the same customer has
// the identical amount and a timestamp within the window (inclusive, past or
// future) of txn. Customer comparison is exact equality; the description text
// plays no part here.
func (l *Ledger) HasDuplicate(txn models.Transaction, window time.Duration) bool {
	for _, other := range l.byCustomer[txn.CustomerID] {
		if other.ID == txn.ID {
			continue
		}
		if !other.Amount.Equal(txn.Amount) {
			continue
		}
		delta := txn.Timestamp.Sub(other.Timestamp)
		if delta < 0 {
			delta = -delta
		}
		if delta <= window {
			return true
		}
	}
	return false
}
