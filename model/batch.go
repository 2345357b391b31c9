package model

import "time"

// Continuity verdicts reported in upload summaries.
const (
	ContinuityValid   = "Valid"
	ContinuityInvalid = "Invalid"
)

// UploadBatch records one statement-file ingestion attempt. A batch whose
// continuity checks fail is still persisted for audit, with zero uploaded
// rows and both flags recording what went wrong. Screened separates files
// that failed those checks from files so broken the checks never ran.
type UploadBatch struct {
	ID                         int64     `json:"-"`
	BatchID                    string    `json:"batch_id"`
	BankAccountID              int64     `json:"bank_account_id"`
	FileName                   string    `json:"file_name"`
	UploadedBy                 string    `json:"uploaded_by"`
	UploadedCount              int       `json:"uploaded_count"`
	SkippedCount               int       `json:"skipped_count"`
	ErrorsCount                int       `json:"errors_count"`
	Screened                   bool      `json:"screened"`
	BalanceContinuityInFile    bool      `json:"balance_continuity_in_file"`
	PreviousEndingBalanceMatch bool      `json:"previous_ending_balance_match"`
	CreatedAt                  time.Time `json:"created_at"`
}

// Passed reports whether the batch ingested cleanly.
func (b UploadBatch) Passed() bool {
	return b.Screened && b.BalanceContinuityInFile && b.PreviousEndingBalanceMatch && b.ErrorsCount == 0
}

// SkippedRow describes one duplicate row left out of an upload, echoed back
// so the uploader can see exactly what was already on file.
type SkippedRow struct {
	Row             int    `json:"row"`
	Reason          string `json:"reason"`
	TransactionDate string `json:"transaction_date"`
	Narration       string `json:"narration"`
	CreditAmount    string `json:"credit_amount"`
	DebitAmount     string `json:"debit_amount"`
	BalanceAmount   string `json:"balance_amount"`
	UTRNumber       string `json:"utr_number"`
}

// UploadSummary is the outcome of one statement upload.
type UploadSummary struct {
	BatchID              string       `json:"batch_id"`
	UploadedCount        int          `json:"uploaded_count"`
	SkippedCount         int          `json:"skipped_count"`
	SkippedRows          []SkippedRow `json:"skipped_rows,omitempty"`
	ErrorsCount          int          `json:"errors_count"`
	Continuity           string       `json:"continuity"`
	OpeningBalanceInFile string       `json:"opening_balance_in_file,omitempty"`
	Errors               []string     `json:"errors,omitempty"`
}
