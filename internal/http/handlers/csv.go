package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/disputeflow/backend/internal/models"
	"github.com/disputeflow/backend/internal/service"
)

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDisputesCSV reads the disputes file with a strict schema. Any missing
// column or unparseable value fails the whole batch; nothing is defaulted.
func parseDisputesCSV(file *multipart.FileHeader) ([]models.Dispute, error) {
	records, index, err := readCSV(file, "disputes", []string{"dispute_id", "description", "txn_id", "created_at"})
	if err != nil {
		return nil, err
	}

	var details []string
	seen := make(map[string]bool, len(records))
	out := make([]models.Dispute, 0, len(records))
	for i, rec := range records {
		line := i + 2 // header is line 1
		id := getField(rec, index, "dispute_id")
		if id == "" {
			details = append(details, fmt.Sprintf("disputes line %d: empty dispute_id", line))
			continue
		}
		if seen[id] {
			details = append(details, fmt.Sprintf("disputes line %d: duplicate dispute_id %q", line, id))
			continue
		}
		seen[id] = true
		createdAt, err := parseTime(getField(rec, index, "created_at"))
		if err != nil {
			details = append(details, fmt.Sprintf("disputes line %d: %v", line, err))
			continue
		}
		out = append(out, models.Dispute{
			ID:          id,
			Description: getField(rec, index, "description"),
			TxnID:       getField(rec, index, "txn_id"),
			CreatedAt:   createdAt,
		})
	}
	if len(details) > 0 {
		return nil, &service.MalformedInputError{Message: "disputes file has invalid rows", Details: details}
	}
	return out, nil
}

func parseTransactionsCSV(file *multipart.FileHeader) ([]models.Transaction, error) {
	records, index, err := readCSV(file, "transactions", []string{"txn_id", "customer_id", "amount", "timestamp", "status"})
	if err != nil {
		return nil, err
	}

	var details []string
	out := make([]models.Transaction, 0, len(records))
	for i, rec := range records {
		line := i + 2
		id := getField(rec, index, "txn_id")
		if id == "" {
			details = append(details, fmt.Sprintf("transactions line %d: empty txn_id", line))
			continue
		}
		amount, err := decimal.NewFromString(getField(rec, index, "amount"))
		if err != nil {
			details = append(details, fmt.Sprintf("transactions line %d: invalid amount %q", line, getField(rec, index, "amount")))
			continue
		}
		ts, err := parseTime(getField(rec, index, "timestamp"))
		if err != nil {
			details = append(details, fmt.Sprintf("transactions line %d: %v", line, err))
			continue
		}
		out = append(out, models.Transaction{
			ID:         id,
			CustomerID: getField(rec, index, "customer_id"),
			Amount:     amount,
			Timestamp:  ts,
			Status:     strings.ToUpper(getField(rec, index, "status")),
		})
	}
	if len(details) > 0 {
		return nil, &service.MalformedInputError{Message: "transactions file has invalid rows", Details: details}
	}
	return out, nil
}

func readCSV(file *multipart.FileHeader, name string, required []string) ([][]string, map[string]int, error) {
	f, err := file.Open()
	if err != nil {
		return nil, nil, &service.MalformedInputError{Message: fmt.Sprintf("cannot open %s file", name), Details: []string{err.Error()}}
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	headers, err := reader.Read()
	if err != nil {
		return nil, nil, &service.MalformedInputError{Message: fmt.Sprintf("cannot read %s header", name)}
	}
	index := headerIndex(headers)

	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &service.MalformedInputError{
			Message: fmt.Sprintf("%s file is missing required columns", name),
			Details: missing,
		}
	}

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, &service.MalformedInputError{Message: fmt.Sprintf("%s file is not valid CSV", name), Details: []string{err.Error()}}
		}
		records = append(records, rec)
	}
	return records, index, nil
}

func headerIndex(headers []string) map[string]int {
	idx := map[string]int{}
	for i, h := range headers {
		h = strings.ReplaceAll(h, "\ufeff", "")
		idx[strings.ToLower(strings.TrimSpace(h))] = i
	}
	return idx
}

func getField(rec []string, idx map[string]int, name string) string {
	pos, ok := idx[name]
	if !ok || pos >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[pos])
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", v)
}
