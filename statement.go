/*
Copyright 2025 Nivasa Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package nivasa

import (
	"bytes"
	"encoding/csv"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/nivasa/nivasa/internal/money"
)

// headerAliases maps each canonical column to the header spellings banks
// actually ship. Matching is case-insensitive after trimming.
var headerAliases = map[string][]string{
	"date": {
		"date", "transaction date", "value date", "posting date",
		"tran date", "txn date", "value dt", "val dt",
	},
	"narration": {
		"narration", "description", "details", "particulars", "remarks",
		"transaction remarks", "narration/description",
	},
	"credit": {
		"credit", "cr", "deposit", "credit amount", "cr amount",
		"deposit amt.", "deposit amt", "deposit amount", "deposit (cr)",
	},
	"debit": {
		"debit", "dr", "withdrawal", "debit amount", "dr amount",
		"withdrawal amt.", "withdrawal amt", "withdrawal amount", "withdrawal (dr)",
	},
	"balance": {
		"balance", "running balance", "closing balance", "available balance",
		"balance amt.", "balance amount", "closing bal", "available bal",
	},
	"utr": {
		"utr", "utr number", "utr no", "utr#", "reference", "transaction id",
		"ref no", "chq/ref no", "cheque/ref no", "reference no", "ref#", "rrn", "upi ref no",
	},
	// some banks give Type + Amount instead of separate debit/credit
	"type":   {"type", "txn type", "transaction type", "dr/cr", "cr/dr"},
	"amount": {"amount", "txn amount", "transaction amount", "amt."},
}

// dateLayouts uses non-padded day/month so both "6-Aug-25" and "06-Aug-25"
// parse with the same layout.
var dateLayouts = []string{
	"2-Jan-06",
	"2-Jan-2006",
	"2/1/2006",
	"2006-1-2",
	"2-1-2006",
	"2.1.2006",
}

// StatementRow is one parsed line of a bank statement file.
type StatementRow struct {
	Line            int
	TransactionDate time.Time
	Narration       string
	CreditAmount    *decimal.Decimal
	DebitAmount     *decimal.Decimal
	BalanceAmount   decimal.Decimal
	UTRNumber       string
	SignedAmount    decimal.Decimal
}

// Statement is the result of parsing one file: the rows that parsed plus a
// count of lines that did not.
type Statement struct {
	Rows   []StatementRow
	Errors int
}

func normHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MapHeaders resolves file headers to canonical column indexes. The first
// alias hit wins per canonical name.
func MapHeaders(fields []string) map[string]int {
	present := make(map[string]int, len(fields))
	for i, f := range fields {
		n := normHeader(f)
		if _, ok := present[n]; !ok {
			present[n] = i
		}
	}
	result := make(map[string]int)
	for canonical, aliases := range headerAliases {
		for _, alias := range aliases {
			if idx, ok := present[alias]; ok {
				result[canonical] = idx
				break
			}
		}
	}
	return result
}

// ParseStatementDate tries the supported bank date formats in order.
func ParseStatementDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized date format: %q", value)
}

var nullAmounts = map[string]struct{}{
	"na": {}, "n/a": {}, "null": {}, "-": {},
}

// ParseAmount cleans a statement cell into a decimal. Nil with no error
// means the cell carried no value (empty, NA, dash). Currency marks, INR
// tags, thousands separators and non-breaking spaces are stripped;
// parentheses mean negative.
func ParseAmount(val string) (*decimal.Decimal, error) {
	s := strings.TrimSpace(val)
	if s == "" {
		return nil, nil
	}
	if _, ok := nullAmounts[strings.ToLower(s)]; ok {
		return nil, nil
	}
	s = strings.NewReplacer("₹", "", "INR", "", ",", "", " ", " ").Replace(s)
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		s = "-" + s[1:len(s)-1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "bad amount %q", val)
	}
	return &d, nil
}

var utrRe = regexp.MustCompile(`(?i)(?:UTR|RRN|REF(?:ERENCE)?|CHQ/REF\s*NO|TRANSACTION\s*ID|UPI\s*(?:REF)?\s*NO)\s*[:#-]?\s*([A-Za-z0-9]{8,20})`)

// ExtractRefFromNarration pulls a payment reference out of free-text
// narration when the file has no reference column.
func ExtractRefFromNarration(narration string) string {
	m := utrRe.FindStringSubmatch(narration)
	if m == nil {
		return ""
	}
	return m[1]
}

// sniffDelimiter picks the delimiter by counting candidates in the header
// line, defaulting to comma.
func sniffDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	best, bestCount := ',', 0
	for _, cand := range []byte{',', ';', '\t', '|'} {
		if n := bytes.Count(line, []byte{cand}); n > bestCount {
			best, bestCount = rune(cand), n
		}
	}
	return best
}

// ErrMissingColumns reports which required canonical columns a file lacks.
type ErrMissingColumns struct {
	Missing         []string
	DetectedHeaders []string
}

func (e ErrMissingColumns) Error() string {
	return "missing required column(s): " + strings.Join(e.Missing, ", ")
}

// ParseStatement reads a CSV bank statement with an unknown layout. Rows
// that fail to parse are counted, not fatal; only an unreadable file or a
// header missing date, narration or balance aborts the parse.
func ParseStatement(r io.Reader) (*Statement, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "reading statement file")
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(raw))
	reader.Comma = sniffDelimiter(raw)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "reading statement header")
	}
	headerMap := MapHeaders(header)

	var missing []string
	for _, req := range []string{"date", "narration", "balance"} {
		if _, ok := headerMap[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return nil, ErrMissingColumns{Missing: missing, DetectedHeaders: header}
	}

	cell := func(record []string, canonical string) (string, bool) {
		idx, ok := headerMap[canonical]
		if !ok || idx >= len(record) {
			return "", false
		}
		return record[idx], true
	}

	st := &Statement{}
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			st.Errors++
			continue
		}

		row, err := parseRow(record, line, cell)
		if err != nil {
			st.Errors++
			continue
		}
		st.Rows = append(st.Rows, *row)
	}
	return st, nil
}

func parseRow(record []string, line int, cell func([]string, string) (string, bool)) (*StatementRow, error) {
	dateVal, _ := cell(record, "date")
	date, err := ParseStatementDate(dateVal)
	if err != nil {
		return nil, err
	}

	narration, _ := cell(record, "narration")

	balanceVal, _ := cell(record, "balance")
	balance, err := ParseAmount(balanceVal)
	if err != nil {
		return nil, err
	}
	if balance == nil {
		balance = &money.Zero
	}

	var credit, debit *decimal.Decimal
	if v, ok := cell(record, "credit"); ok {
		if credit, err = ParseAmount(v); err != nil {
			return nil, err
		}
	}
	if v, ok := cell(record, "debit"); ok {
		if debit, err = ParseAmount(v); err != nil {
			return nil, err
		}
	}

	utr := ""
	if v, ok := cell(record, "utr"); ok {
		utr = strings.TrimSpace(v)
	}

	// Type (CR/DR) + Amount layout
	if credit == nil && debit == nil {
		typeVal, hasType := cell(record, "type")
		amountVal, hasAmount := cell(record, "amount")
		if hasType && hasAmount {
			amt, err := ParseAmount(amountVal)
			if err != nil {
				return nil, err
			}
			if amt == nil {
				amt = &money.Zero
			}
			switch normHeader(typeVal) {
			case "cr", "credit":
				credit = amt
			case "dr", "debit":
				debit = amt
			}
		}
	}

	var signed decimal.Decimal
	switch {
	case credit != nil:
		signed = *credit
	case debit != nil:
		signed = debit.Neg()
	}

	return &StatementRow{
		Line:            line,
		TransactionDate: date,
		Narration:       narration,
		CreditAmount:    credit,
		DebitAmount:     debit,
		BalanceAmount:   *balance,
		UTRNumber:       utr,
		SignedAmount:    money.Quantize2(signed),
	}, nil
}
