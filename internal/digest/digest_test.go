package digest_test

import (
	"math"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probe-agent/internal/digest"
)

func TestRawParsesFloat(t *testing.T) {
	res := digest.Raw().Digest("42.5\n", "os.load")

	assert.Equal(t, "os.load", res.Key)
	assert.Equal(t, "42.5", res.Raw)
	assert.Equal(t, map[string]float64{"os.load.parsed": 42.5}, res.Values)
}

func TestRawKeepsUnparsableOutput(t *testing.T) {
	res := digest.Raw().Digest("not-a-number", "os.load")

	assert.Empty(t, res.Values)
	assert.Equal(t, "not-a-number", res.Raw, "raw text must survive for fallback archival")
}

func TestRegexNamedGroups(t *testing.T) {
	d := digest.Regex(regexp.MustCompile(`(?P<val>\d+)`))
	res := d.Digest("cpu=73", "host.cpu")

	assert.Equal(t, map[string]float64{"host.cpu.val": 73.0}, res.Values)
}

func TestRegexMultipleGroups(t *testing.T) {
	d := digest.Regex(regexp.MustCompile(`(?P<used>\d+)/(?P<total>\d+)`))
	res := d.Digest("memory: 512/2048 MB", "host.mem")

	assert.Equal(t, map[string]float64{
		"host.mem.used":  512.0,
		"host.mem.total": 2048.0,
	}, res.Values)
}

func TestRegexNoMatchEmitsNothing(t *testing.T) {
	d := digest.Regex(regexp.MustCompile(`(?P<val>\d+)`))
	res := d.Digest("no digits here", "k")

	assert.Empty(t, res.Values)
}

func TestRegexUnparsableCaptureBecomesNaN(t *testing.T) {
	d := digest.Regex(regexp.MustCompile(`(?P<val>\w+)`))
	res := d.Digest("abc", "k")

	require.Contains(t, res.Values, "k.val")
	assert.True(t, math.IsNaN(res.Values["k.val"]), "unparsable capture is NaN, never dropped")
}

func TestMonitoringPluginStatusAndPerfdata(t *testing.T) {
	d := digest.MonitoringPlugin()
	res := d.Digest("LOAD OK - x|load1=0.31;10;15;0;", "srv")

	assert.Equal(t, 0.0, res.Values["srv.status"])
	assert.Equal(t, 0.31, res.Values["srv.load1"])
	assert.Equal(t, 10.0, res.Values["srv.load1.warn"])
	assert.Equal(t, 15.0, res.Values["srv.load1.crit"])
	assert.Equal(t, 0.0, res.Values["srv.load1.min"])
	assert.NotContains(t, res.Values, "srv.load1.max")
}

func TestMonitoringPluginStatusCodes(t *testing.T) {
	for _, tc := range []struct {
		status string
		code   float64
	}{
		{"OK", 0},
		{"WARNING", 1},
		{"CRITICAL", 2},
		{"UNKNOWN", 3},
	} {
		t.Run(tc.status, func(t *testing.T) {
			res := digest.MonitoringPlugin().Digest(tc.status+" something|x=1", "k")
			assert.Equal(t, tc.code, res.Values["k.status"])
			assert.Equal(t, 1.0, res.Values["k.x"])
		})
	}
}

func TestMonitoringPluginMultipleEntries(t *testing.T) {
	check := "LOAD OK - load average: 0.31, 0.37, 0.29|load1=0.310;10.000;15.000;0; load5=0.370;5.000;6.000;0; load15=0.290;3.000;4.000;0;"
	res := digest.MonitoringPlugin().Digest(check, "srv")

	assert.Equal(t, 0.0, res.Values["srv.status"])
	assert.Equal(t, 0.31, res.Values["srv.load1"])
	assert.Equal(t, 0.37, res.Values["srv.load5"])
	assert.Equal(t, 0.29, res.Values["srv.load15"])
	assert.Equal(t, 5.0, res.Values["srv.load5.warn"])
	assert.Equal(t, 4.0, res.Values["srv.load15.crit"])
	assert.NotContains(t, res.Values, "srv.load1.max")
}

func TestMonitoringPluginUnitScaling(t *testing.T) {
	for _, tc := range []struct {
		name  string
		line  string
		key   string
		value float64
	}{
		{"megabytes", "MEM OK|mem=2MB", "k.mem", 2 * 1024 * 1024},
		{"kilobytes", "MEM OK|mem=3KB", "k.mem", 3 * 1024},
		{"gigabytes", "MEM OK|mem=1GB", "k.mem", 1024 * 1024 * 1024},
		{"seconds unscaled", "PING OK|rta=12.5s", "k.rta", 12.5},
		{"percent unscaled", "DISK OK|usage=81%", "k.usage", 81},
		{"no unit", "X OK|v=7", "k.v", 7},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res := digest.MonitoringPlugin().Digest(tc.line, "k")
			assert.Equal(t, tc.value, res.Values[tc.key])
		})
	}
}

func TestMonitoringPluginScalesThresholdsToo(t *testing.T) {
	res := digest.MonitoringPlugin().Digest("MEM WARNING|mem=2MB;3;4", "k")

	assert.Equal(t, 1.0, res.Values["k.status"])
	assert.Equal(t, float64(2*1024*1024), res.Values["k.mem"])
	assert.Equal(t, float64(3*1024*1024), res.Values["k.mem.warn"])
	assert.Equal(t, float64(4*1024*1024), res.Values["k.mem.crit"])
}

func TestMonitoringPluginWithoutSeparator(t *testing.T) {
	res := digest.MonitoringPlugin().Digest("OK everything fine", "k")

	assert.Empty(t, res.Values, "no pipe separator means no perfdata parsing")
}

func TestMonitoringPluginWithoutStatusToken(t *testing.T) {
	res := digest.MonitoringPlugin().Digest("something|x=1", "k")

	assert.NotContains(t, res.Values, "k.status")
	assert.Equal(t, 1.0, res.Values["k.x"])
}

func TestDigestTrimsWhitespace(t *testing.T) {
	res := digest.Raw().Digest("  \t 7.25 \n\n", "k")

	assert.Equal(t, "7.25", res.Raw)
	assert.Equal(t, 7.25, res.Values["k.parsed"])
}

func TestDigestIsIdempotent(t *testing.T) {
	d := digest.MonitoringPlugin()
	in := "LOAD OK - x|load1=0.31;10;15;0;"

	first := d.Digest(in, "srv")
	second := d.Digest(in, "srv")
	assert.Equal(t, first.Values, second.Values)
	assert.Equal(t, first.Raw, second.Raw)
}
