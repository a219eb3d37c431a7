package output

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/probe-agent/internal/bus"
	"github.com/probe-agent/internal/digest"
)

// FileOutput appends results to one flat file per metric key under BaseDir.
// Each line is "<unix-epoch-seconds> <value>".
type FileOutput struct {
	BaseDir        string
	AlwaysWriteRaw bool
}

func (o *FileOutput) Name() string { return "file" }

// Prepare ensures the base directory exists.
func (o *FileOutput) Prepare() error {
	return os.MkdirAll(o.BaseDir, 0o755)
}

func (o *FileOutput) Run(sub *bus.Subscriber) {
	consume(sub, o.Name(), o.persist)
}

// persist writes the raw text under "<key>.raw" when there are no samples
// or raw archival is forced, and every sample under its own key.
func (o *FileOutput) persist(res digest.Result) error {
	var errs []error
	if len(res.Values) == 0 || o.AlwaysWriteRaw {
		errs = append(errs, o.appendLine(res.Key+".raw", res.Raw, res.Time))
	}
	for key, value := range res.Values {
		errs = append(errs, o.appendLine(key, formatValue(value), res.Time))
	}
	return errors.Join(errs...)
}

func (o *FileOutput) appendLine(key, value string, t time.Time) error {
	path := filepath.Join(o.BaseDir, keyToFilename(key))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d %s\n", t.Unix(), value); err != nil {
		return fmt.Errorf("append to %s: %w", path, err)
	}
	return nil
}

// keyToFilename flattens path separators out of metric keys so every key
// maps to a single file under the base directory.
func keyToFilename(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

// formatValue renders floats with the shortest representation that parses
// back to the same value.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
