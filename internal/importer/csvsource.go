package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/prodcat/importer-be/internal/importer/domain"
)

// headerRowOffset converts a 0-based data index to the 1-based row number the
// uploader sees: row 1 is the header, so the first data row is 2.
const headerRowOffset = 2

// nullTokens are cell values treated as absent, matching what spreadsheet
// exports commonly emit for empty cells.
var nullTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
}

// Source is a parsed CSV upload ready for chunked row processing. Rows are
// validated lazily, one at a time, via Row.
type Source struct {
	columns []string
	rows    [][]string

	skuIdx  int
	nameIdx int
	descIdx int
}

// Row is one accepted CSV row.
type Row struct {
	Number      int
	SKU         string
	Name        string
	Description string
}

// LoadSource opens and parses the staged upload. Errors are classified so the
// coordinator can fail the job with a specific diagnostic:
// domain.ErrSourceUnavailable for a missing file, *domain.DecodeError for
// invalid UTF-8, *domain.SchemaError for missing required columns, and any
// other error for a structurally malformed file.
func LoadSource(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, path)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer f.Close()

	r := csv.NewReader(newUTF8Reader(f))
	r.FieldsPerRecord = -1

	// Records are decoded one at a time so a decode or quoting error is
	// reported as soon as the stream reaches it.
	var (
		columns []string
		rows    [][]string
	)
	for {
		rec, readErr := r.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			var decodeErr *domain.DecodeError
			if errors.As(readErr, &decodeErr) {
				return nil, decodeErr
			}
			return nil, fmt.Errorf("malformed csv: %w", readErr)
		}
		if columns == nil {
			columns = rec
			continue
		}
		rows = append(rows, rec)
	}
	if columns == nil {
		return nil, errors.New("malformed csv: missing header row")
	}

	src := &Source{
		columns: columns,
		rows:    rows,
		skuIdx:  -1,
		nameIdx: -1,
		descIdx: -1,
	}

	for i, col := range src.columns {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "sku":
			src.skuIdx = i
		case "name":
			src.nameIdx = i
		case "description":
			src.descIdx = i
		}
	}

	var missing []string
	if src.skuIdx < 0 {
		missing = append(missing, "sku")
	}
	if src.nameIdx < 0 {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return nil, &domain.SchemaError{Missing: missing, Found: src.columns}
	}

	return src, nil
}

// TotalRows returns the number of data rows, excluding the header.
func (s *Source) TotalRows() int {
	return len(s.rows)
}

// Columns returns the header as present in the file.
func (s *Source) Columns() []string {
	return s.columns
}

// Row validates the data row at index i. Each row is checked independently; a
// rejected row never affects its neighbors.
func (s *Source) Row(i int) (Row, *domain.RowError) {
	rec := s.rows[i]
	number := i + headerRowOffset

	sku := strings.TrimSpace(field(rec, s.skuIdx))
	if isNullToken(sku) {
		return Row{}, &domain.RowError{Row: number, Reason: "Empty or invalid SKU"}
	}

	name := strings.TrimSpace(field(rec, s.nameIdx))
	if isNullToken(name) {
		return Row{}, &domain.RowError{Row: number, SKU: sku, Reason: "Missing or invalid product name"}
	}

	// A missing description never rejects the row.
	description := strings.TrimSpace(field(rec, s.descIdx))

	return Row{Number: number, SKU: sku, Name: name, Description: description}, nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

func isNullToken(v string) bool {
	_, ok := nullTokens[strings.ToLower(v)]
	return ok
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// utf8Reader wraps an io.Reader, strips a leading UTF-8 BOM, and fails the
// read with *domain.DecodeError on invalid UTF-8. Multi-byte sequences split
// across reads are carried over instead of rejected.
type utf8Reader struct {
	r       io.Reader
	pending []byte
	started bool
}

func newUTF8Reader(r io.Reader) *utf8Reader {
	return &utf8Reader{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (u *utf8Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	off := copy(p, u.pending)
	u.pending = u.pending[:0]

	n, err := u.r.Read(p[off:])
	n += off
	if n == 0 {
		return 0, err
	}

	data := p[:n]
	if !u.started {
		u.started = true
		if bytes.HasPrefix(data, utf8BOM) {
			n = copy(data, data[len(utf8BOM):n])
			data = p[:n]
		}
	}

	atEOF := err == io.EOF
	valid := n
	for i := 0; i < n; {
		if data[i] < utf8.RuneSelf {
			i++
			continue
		}
		r, size := utf8.DecodeRune(data[i:])
		if r == utf8.RuneError && size == 1 {
			if !atEOF && n-i < utf8.UTFMax {
				// Possibly an incomplete sequence at the buffer edge;
				// hold it back for the next read.
				u.pending = append(u.pending, data[i:n]...)
				valid = i
				break
			}
			return 0, &domain.DecodeError{Detail: fmt.Sprintf("invalid byte 0x%02X", data[i])}
		}
		i += size
	}

	return valid, err
}
