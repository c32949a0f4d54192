package store

import (
	"database/sql"
	"fmt"

	"github.com/jaystattoos/studio/internal/models"
)

// scanReceipts reads every row of a receipts query.
func scanReceipts(rows *sql.Rows) ([]models.Receipt, error) {
	receipts := []models.Receipt{}
	for rows.Next() {
		var r models.Receipt
		var intent, status string
		var messageID, lastError sql.NullString
		if err := rows.Scan(&r.EventID, &intent, &status, &messageID, &lastError, &r.Attempts, &r.Time); err != nil {
			return nil, fmt.Errorf("failed to scan receipt row: %w", err)
		}
		r.Intent = models.Intent(intent)
		r.Status = models.MessageStatus(status)
		r.MessageID = messageID.String
		r.Error = lastError.String
		receipts = append(receipts, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate receipt rows: %w", err)
	}
	return receipts, nil
}
