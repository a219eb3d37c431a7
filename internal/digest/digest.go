// Package digest turns the raw text captured from a data source into a set
// of named float64 samples. Digestion is best-effort: output that cannot be
// parsed produces an empty sample set and a log line, never an error.
package digest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/probe-agent/pkg/logger"
)

// Result is one fully-formed observation: the raw text of a single source
// execution, the samples digested from it, and the collection time. It is
// immutable once published and shared read-only by every sink.
type Result struct {
	Time   time.Time
	Key    string
	Raw    string
	Values map[string]float64
}

// Mode selects how raw output is digested.
type Mode int

const (
	// ModeRaw parses the whole trimmed output as a single float64.
	ModeRaw Mode = iota
	// ModeRegex extracts values via named capture groups.
	ModeRegex
	// ModeMonitoringPlugin parses the single-line performance-data format
	// emitted by monitoring-plugins style health checks, see
	// https://www.monitoring-plugins.org/doc/guidelines.html#AEN201
	ModeMonitoringPlugin
)

func (m Mode) String() string {
	switch m {
	case ModeRaw:
		return "raw"
	case ModeRegex:
		return "regex"
	case ModeMonitoringPlugin:
		return "monitoring-plugin"
	default:
		return "unknown"
	}
}

// Digester holds one item's digest configuration.
type Digester struct {
	mode Mode
	re   *regexp.Regexp // ModeRegex only
}

// Raw returns a Digester that treats the whole output as one value.
func Raw() Digester {
	return Digester{mode: ModeRaw}
}

// Regex returns a Digester extracting samples through the pattern's named
// capture groups.
func Regex(re *regexp.Regexp) Digester {
	return Digester{mode: ModeRegex, re: re}
}

// MonitoringPlugin returns a Digester for monitoring-plugin output.
func MonitoringPlugin() Digester {
	return Digester{mode: ModeMonitoringPlugin}
}

func (d Digester) Mode() Mode { return d.mode }

// Status line: optional human-readable message with a status token, a pipe,
// then the performance data segment. Only single-line output is supported.
var pluginOutputRe = regexp.MustCompile(
	`((?P<status>OK|WARNING|CRITICAL|UNKNOWN)[^\|]*)?\|(?P<performance>.*)$`)

// One performance entry: label=value[unit][;warn][;crit][;min][;max];
// The warn/crit fields are proper ranges in the standard; they are only used
// here when they parse as plain float64s.
var pluginPerfRe = regexp.MustCompile(
	`(?P<label>[^\s=][^=]*)=(?P<value>[-.\d]+)(?P<unit>s|ms|ns|us|B|KB|MB|GB|TB|%|c)?(;(?P<warn>[@-~.\d]+))?(;(?P<crit>[@-~.\d]+))?(;(?P<min>[-.\d]+))?(;(?P<max>[-.\d]+))?;?`)

// Digest parses raw output according to the digester's mode and builds the
// Result for the given item key. Leading and trailing whitespace is trimmed
// before parsing. The raw text is retained on the Result either way so sinks
// can fall back to archiving it verbatim.
func (d Digester) Digest(raw, itemKey string) Result {
	trimmed := strings.TrimSpace(raw)
	values := make(map[string]float64)

	switch d.mode {
	case ModeRaw:
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			values[itemKey+".parsed"] = f
		} else {
			logger.Info("output is not a parsable float64",
				zap.String("item", itemKey), zap.String("raw", trimmed))
		}

	case ModeRegex:
		d.digestRegex(trimmed, itemKey, values)

	case ModeMonitoringPlugin:
		digestPlugin(trimmed, itemKey, values)
	}

	return Result{
		Time:   time.Now(),
		Key:    itemKey,
		Raw:    trimmed,
		Values: values,
	}
}

func (d Digester) digestRegex(trimmed, itemKey string, values map[string]float64) {
	m := d.re.FindStringSubmatch(trimmed)
	if m == nil {
		logger.Warn("regex did not match output",
			zap.String("item", itemKey),
			zap.String("regex", d.re.String()),
			zap.String("raw", trimmed))
		return
	}
	for i, name := range d.re.SubexpNames() {
		if name == "" {
			continue
		}
		// An unparsable capture becomes NaN rather than disappearing, so a
		// broken pattern is visible in the stored series.
		f, err := strconv.ParseFloat(m[i], 64)
		if err != nil {
			f = math.NaN()
		}
		values[itemKey+"."+name] = f
	}
}

var pluginStatusCodes = map[string]float64{
	"OK":       0,
	"WARNING":  1,
	"CRITICAL": 2,
	"UNKNOWN":  3,
}

func digestPlugin(trimmed, itemKey string, values map[string]float64) {
	m := pluginOutputRe.FindStringSubmatch(trimmed)
	if m == nil {
		logger.Warn("output does not look like monitoring-plugin output",
			zap.String("item", itemKey), zap.String("raw", trimmed))
		return
	}
	groups := submatchMap(pluginOutputRe, m)
	if code, ok := pluginStatusCodes[groups["status"]]; ok {
		values[itemKey+".status"] = code
	}

	for _, pm := range pluginPerfRe.FindAllStringSubmatch(groups["performance"], -1) {
		entry := submatchMap(pluginPerfRe, pm)
		label := entry["label"]
		if label == "" {
			continue
		}
		value, err := strconv.ParseFloat(entry["value"], 64)
		if err != nil {
			logger.Warn("skipping performance entry with unparsable value",
				zap.String("item", itemKey), zap.String("label", label))
			continue
		}
		factor := unitFactor(entry["unit"])
		values[itemKey+"."+label] = value * factor
		for _, extra := range []string{"warn", "crit", "min", "max"} {
			if f, err := strconv.ParseFloat(entry[extra], 64); err == nil {
				values[itemKey+"."+label+"."+extra] = f * factor
			}
		}
	}
}

// unitFactor scales size units into bytes; time, percent and count units are
// stored as reported.
func unitFactor(unit string) float64 {
	switch unit {
	case "KB":
		return 1 << 10
	case "MB":
		return 1 << 20
	case "GB":
		return 1 << 30
	case "TB":
		return 1 << 40
	default:
		return 1
	}
}

func submatchMap(re *regexp.Regexp, match []string) map[string]string {
	out := make(map[string]string, re.NumSubexp())
	for i, name := range re.SubexpNames() {
		if name != "" && i < len(match) {
			out[name] = match[i]
		}
	}
	return out
}
