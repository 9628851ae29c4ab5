// This file provides JSONL read/write helpers with atomic persistence.
package sqlite

import (
	"bufio"
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/mesh-intelligence/typedsql/pkg/types"
)

// maxLine bounds a single JSONL record.
const maxLine = 16 << 20

// Record is one JSONL object. Numbers are kept as json.Number so that the
// declared column kind decides how they convert.
type Record struct {
	Line   int
	Fields map[string]any
}

// ReadJSONL reads one JSON object per line. Blank lines, malformed lines and
// lines holding anything but an object are skipped.
func ReadJSONL(r io.Reader) ([]Record, error) {
	var records []Record
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 || !json.Valid(raw) {
			continue
		}
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err != nil || obj == nil {
			continue
		}
		records = append(records, Record{Line: line, Fields: obj})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning jsonl: %w", err)
	}
	return records, nil
}

// WriteJSONLFile atomically replaces path with the output of write, using
// the temp-file, fsync, rename pattern. A failed write leaves path as it was.
func WriteJSONLFile(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	if err := write(w); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// FromJSON converts a decoded JSON field to a parameter for a column of the
// given kind. Blobs are read from base64 text, the form Value marshals them
// to. Objects and arrays are stored as their JSON text.
func FromJSON(v any, kind types.Kind) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case json.Number:
		return numberFromJSON(x, kind)
	case string:
		return stringFromJSON(x, kind)
	case bool:
		switch kind {
		case types.KindBool, types.KindInteger, types.KindNumeric, types.KindAny:
			return x, nil
		}
	case map[string]any, []any:
		if kind == types.KindText || kind == types.KindAny {
			b, err := json.Marshal(x)
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}
	}
	return nil, fmt.Errorf("%w: json %T into %s column", types.ErrKindMismatch, v, kind)
}

func numberFromJSON(n json.Number, kind types.Kind) (any, error) {
	switch kind {
	case types.KindInteger, types.KindBool:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		if v, ok := parseInteger(n.String()); ok {
			return v, nil
		}
	case types.KindReal:
		if f, err := n.Float64(); err == nil {
			return f, nil
		}
	case types.KindNumeric, types.KindAny:
		if v, ok := parseNumeric(n.String()); ok {
			return v, nil
		}
	case types.KindText:
		return n.String(), nil
	}
	return nil, fmt.Errorf("%w: json number %s into %s column", types.ErrKindMismatch, n, kind)
}

func stringFromJSON(s string, kind types.Kind) (any, error) {
	switch kind {
	case types.KindText, types.KindAny:
		return s, nil
	case types.KindBlob:
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("%w: blob is not base64: %v", types.ErrKindMismatch, err)
		}
		return b, nil
	case types.KindInteger:
		if v, ok := parseInteger(s); ok {
			return v, nil
		}
	case types.KindReal:
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	case types.KindNumeric:
		if v, ok := parseNumeric(s); ok {
			return v, nil
		}
	case types.KindBool:
		if b, err := strconv.ParseBool(s); err == nil {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: json string %q into %s column", types.ErrKindMismatch, s, kind)
}
