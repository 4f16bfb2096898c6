package settlement

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/bnpl/internal/money"
)

var ErrUnknownFormat = errors.New("no matching settlement format found")

// Row is one payment reported by a partner.
type Row struct {
	Num       int // line in the file, 1-based
	LineID    uuid.UUID
	Amount    int64
	Currency  string
	Reference string
	PaidOn    time.Time // zero when the file carries no date
}

// File is a parsed settlement export.
type File struct {
	Profile  string
	Encoding string
	Rows     []Row
}

// Parser reads partner settlement exports. It detects the character
// encoding, the delimiter and the partner format from the content.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) (*File, error) {
	utf8r, encoding, err := decodeUTF8(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	content, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read settlement file: %w", err)
	}

	reader := csv.NewReader(bytes.NewReader(content))
	reader.Comma = detectDelimiter(content)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var (
		rows  [][]string
		lines []int
	)

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		line, _ := reader.FieldPos(0)
		rows = append(rows, record)
		lines = append(lines, line)
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, ErrUnknownFormat
	}

	parsed, err := parseRows(profile, cols, rows[headerIdx+1:], lines[headerIdx+1:])
	if err != nil {
		return nil, err
	}

	return &File{Profile: profile.Name, Encoding: encoding, Rows: parsed}, nil
}

// detectDelimiter picks ';' when the first non-empty line has more
// semicolons than commas.
func detectDelimiter(content []byte) rune {
	for line := range bytes.Lines(content) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
			return ';'
		}

		return ','
	}

	return ','
}

// colIndex maps column names to their index in the row.
type colIndex map[string]int

// detectProfile scans rows for a header that matches a known profile.
// Returns the matched profile, column index map, and header row index.
func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.TrimSpace(cell)
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows converts data rows; lines holds the file line of each row.
// Rows with an empty line id are footers and are skipped. Any other
// malformed row fails the whole file so that nothing is applied from a file
// that cannot be read completely.
func parseRows(p *Profile, cols colIndex, rows [][]string, lines []int) ([]Row, error) {
	var out []Row

	for i, row := range rows {
		rowNum := lines[i]

		rawID := cellValue(row, cols[p.LineCol])
		if rawID == "" {
			continue
		}

		lineID, err := uuid.Parse(rawID)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid credit line id %q", rowNum, rawID)
		}

		currency := p.Currency
		if idx, ok := cols[p.CurrencyCol]; ok && p.CurrencyCol != "" {
			if c := cellValue(row, idx); c != "" {
				currency = strings.ToUpper(c)
			}
		}

		rawAmount := cellValue(row, cols[p.AmountCol])

		major, err := parseMajorAmount(rawAmount, p.Decimal)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid amount %q", rowNum, rawAmount)
		}

		amount, err := money.FromMajor(major, currency)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowNum, err)
		}

		if amount <= 0 {
			return nil, fmt.Errorf("row %d: amount must be positive, got %q", rowNum, rawAmount)
		}

		ref := cellValue(row, cols[p.ReferenceCol])
		if ref == "" {
			return nil, fmt.Errorf("row %d: missing reference", rowNum)
		}

		var paidOn time.Time

		if idx, ok := cols[p.DateCol]; ok && p.DateCol != "" {
			if s := cellValue(row, idx); s != "" {
				paidOn, err = time.Parse(p.DateLayout, s)
				if err != nil {
					return nil, fmt.Errorf("row %d: invalid date %q", rowNum, s)
				}
			}
		}

		out = append(out, Row{
			Num:       rowNum,
			LineID:    lineID,
			Amount:    amount,
			Currency:  currency,
			Reference: ref,
			PaidOn:    paidOn,
		})
	}

	return out, nil
}

// cellValue safely gets a trimmed cell value from a row.
func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
