package errmodel

import (
	"fmt"
	"strconv"
	"strings"
)

// Opts configures a Model.
type Opts struct {
	// QualityTables lists quality table files, each optionally suffixed with
	// "@offset" to shift its cycles, e.g. "index.qtable@151". When both
	// QualityTables and FlatQualityTable are empty, every cycle gets
	// FixedQuality.
	QualityTables []string
	// FlatQualityModel selects the single-array quality chain.
	FlatQualityModel bool
	// FlatQualityTable is a flattened cumulative-count quality table, read
	// straight into the single-array chain. It cannot be combined with
	// QualityTables.
	FlatQualityTable string
	// FixedQuality is used when QualityTables is empty.
	FixedQuality int

	// QQTable maps quality to error probability. Phred when empty.
	QQTable string
	// MismatchTable gives substitution weights. Uniform when empty.
	MismatchTable string
	// HomopolymerIndelTable gives indel probabilities by run length. No
	// homopolymer indels when empty.
	HomopolymerIndelTable string
	// MotifQualityDropTable lists repeated motifs that lower quality.
	MotifQualityDropTable string

	// RandomDropProbability is the per-cycle probability of starting a
	// random quality drop of RandomDropLength cycles at RandomDropQuality.
	RandomDropProbability float64
	RandomDropLength      int
	RandomDropQuality     int

	// GlitchProbability is the per-cycle probability of capping the quality
	// at GlitchQuality.
	GlitchProbability float64
	GlitchQuality     int

	// PhasingRate is the per-cycle probability of losing one more quality
	// point to phasing, up to MaxPhasingDrop.
	PhasingRate    float64
	MaxPhasingDrop int

	// PluginOptions enables and configures optional plugins. Each entry is
	// "pluginId:key=value[:key=value...]".
	PluginOptions []string
}

// DefaultOpts sets the default values to Opts.
var DefaultOpts = Opts{
	FixedQuality:          30,
	RandomDropProbability: 0.0001,
	RandomDropLength:      5,
	RandomDropQuality:     2,
	GlitchProbability:     0.0001,
	GlitchQuality:         12,
	PhasingRate:           0.002,
	MaxPhasingDrop:        10,
}

// ParseQualityTableSpec splits "path@offset" into its parts. The offset is
// zero when absent. A suffix after the last '@' that is not an integer is
// part of the path, so "s3://b/q@x/t.tsv" names a file.
func ParseQualityTableSpec(spec string) (path string, offset int, err error) {
	i := strings.LastIndexByte(spec, '@')
	if i < 0 {
		return spec, 0, nil
	}
	suffix := spec[i+1:]
	if !isInteger(suffix) {
		return spec, 0, nil
	}
	if offset, err = strconv.Atoi(suffix); err != nil {
		return "", 0, fmt.Errorf("quality table '%s': bad cycle offset: %v", spec, err)
	}
	if offset < 0 {
		return "", 0, fmt.Errorf("quality table '%s': negative cycle offset %d", spec, offset)
	}
	return spec[:i], offset, nil
}

func isInteger(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
