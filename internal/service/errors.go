package service

import "fmt"

// MalformedInputError is fatal for the whole batch: required columns missing,
// unparseable timestamps or amounts, or a duplicated dispute id. Surfaced to
// the caller verbatim; no partial output is produced.
type MalformedInputError struct {
	Message string
	Details []string
}

func (e *MalformedInputError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Details)
}

// UnknownTransactionRefError marks a dispute whose linked transaction is
// absent from the ledger. Fatal for that dispute only: the row is skipped
// with a report, never silently classified against missing data.
type UnknownTransactionRefError struct {
	DisputeID string
	TxnID     string
}

func (e *UnknownTransactionRefError) Error() string {
	return fmt.Sprintf("dispute %s references unknown transaction %s", e.DisputeID, e.TxnID)
}
