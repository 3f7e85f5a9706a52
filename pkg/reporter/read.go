package reporter

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// ScanRecords calls fn for every parsable record in r, in order. Blank
// lines, malformed JSON and lines without a type are skipped and counted.
// Lines of any length are accepted.
func ScanRecords(r io.Reader, fn func(Record) error) (skipped int, err error) {
	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			var rec Record
			if json.Unmarshal(line, &rec) != nil || rec.Type == "" {
				skipped++
			} else if err := fn(rec); err != nil {
				return skipped, err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				return skipped, nil
			}
			return skipped, readErr
		}
	}
}

// ReadRecords returns every parsable record in r.
func ReadRecords(r io.Reader) ([]Record, error) {
	var out []Record
	_, err := ScanRecords(r, func(rec Record) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}
