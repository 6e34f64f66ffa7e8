package loader

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/ahrav/go-cuberank/internal/domain"
)

// maxLineBytes bounds a single export row.
const maxLineBytes = 1 << 20

// tsvReader reads a headed tab-separated export and resolves columns by
// name. Exports are unquoted, so fields are split on tabs verbatim.
type tsvReader struct {
	kind    string
	scanner *bufio.Scanner
	columns map[string]int
	line    int
	fields  []string
}

// newTSVReader reads the header row. Every entry of required is a list of
// accepted aliases for one column; at least one alias must be present.
func newTSVReader(kind string, r io.Reader, required ...[]string) (*tsvReader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	t := &tsvReader{kind: kind, scanner: sc, columns: make(map[string]int)}
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, fmt.Errorf("read %s header: %w", kind, err)
		}
		merr := domain.NewMalformedRecordError(kind + " header")
		merr.Line = 1
		merr.AddField("missing header row")
		return nil, merr
	}
	t.line = 1
	for i, name := range strings.Split(trimLine(sc.Text()), "\t") {
		t.columns[strings.TrimSpace(name)] = i
	}

	merr := domain.NewMalformedRecordError(kind + " header")
	merr.Line = 1
	for _, aliases := range required {
		if _, ok := t.column(aliases...); !ok {
			merr.AddField(fmt.Sprintf("missing column %s", strings.Join(aliases, "|")))
		}
	}
	if merr.HasFields() {
		return nil, merr
	}
	return t, nil
}

// next advances to the following non-empty row.
func (t *tsvReader) next() (bool, error) {
	for t.scanner.Scan() {
		t.line++
		text := trimLine(t.scanner.Text())
		if text == "" {
			continue
		}
		t.fields = strings.Split(text, "\t")
		return true, nil
	}
	if err := t.scanner.Err(); err != nil {
		return false, fmt.Errorf("read %s line %d: %w", t.kind, t.line+1, err)
	}
	return false, nil
}

// column returns the index of the first alias present in the header.
func (t *tsvReader) column(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if i, ok := t.columns[a]; ok {
			return i, true
		}
	}
	return 0, false
}

// get returns the trimmed value of a column in the current row, or "" when
// the column or cell is absent.
func (t *tsvReader) get(aliases ...string) string {
	i, ok := t.column(aliases...)
	if !ok || i >= len(t.fields) {
		return ""
	}
	return strings.TrimSpace(t.fields[i])
}

func trimLine(s string) string {
	return strings.TrimSuffix(strings.TrimPrefix(s, "\ufeff"), "\r")
}
