// Package catalog reads and writes template catalogs: a JSON array of
// TemplateRecord values, written one record per line.
package catalog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/menta2k/template-synth/pkg/types"
)

// FileName is the catalog file name inside a template directory.
const FileName = "data.json"

// Path returns the catalog path inside dir.
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Load parses the catalog at path.
func Load(path string) ([]types.TemplateRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	var records []types.TemplateRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}
	for i, r := range records {
		if strings.TrimSpace(r.Filename) == "" || strings.TrimSpace(r.Type) == "" {
			return nil, fmt.Errorf("catalog %s: record %d needs a filename and a type", path, i)
		}
	}
	return records, nil
}

// Store writes records to path, replacing any existing file. The layout is
// "[\n", one record per line separated by ",\n", a newline after the last
// record and a closing "]".
func Store(path string, records []types.TemplateRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create catalog: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := write(w, records); err != nil {
		f.Close()
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	return f.Close()
}

func write(w *bufio.Writer, records []types.TemplateRecord) error {
	if _, err := w.WriteString("[\n"); err != nil {
		return err
	}
	for i, r := range records {
		line, err := encodeRecord(r)
		if err != nil {
			return err
		}
		sep := ",\n"
		if i == len(records)-1 {
			sep = "\n"
		}
		if _, err := w.Write(line); err != nil {
			return err
		}
		if _, err := w.WriteString(sep); err != nil {
			return err
		}
	}
	_, err := w.WriteString("]")
	return err
}

func encodeRecord(r types.TemplateRecord) ([]byte, error) {
	if r.Points == nil {
		r.Points = []types.Point{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
