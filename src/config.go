package mpx

import (
	"math"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

/*------------------------------------------------------------------
 *
 * Purpose:	Hot-reloadable configuration snapshot.
 *
 * Description:	The config file is a UTF-8 JSON object, but the parser
 *		is deliberately tolerant rather than a strict
 *		encoding/json.Unmarshal: it scans for each recognized key
 *		literally, skips whitespace/colon, and parses the
 *		longest valid numeric prefix that follows, silently
 *		keeping the previous value for anything it can't parse.
 *		This matches the original tool's get_json_float/
 *		get_json_int (see DESIGN.md) and tolerates partial
 *		writes, trailing commas, and stray whitespace.
 *
 *---------------------------------------------------------------*/

// Config is the snapshot of all hot-reloadable parameters. It is
// replaced wholesale on each successful reload; never mutated in
// place while in use by the DSP chain.
type Config struct {
	MeterInputCalibrationDB    float64
	SpectrumInputCalibrationDB float64
	MeterGain                  float64
	SpectrumGain               float64

	MeterPilotScale float64
	MeterMPXScale   float64
	MeterRDSScale   float64

	SpectrumAttack         float64
	SpectrumDecay          float64
	SpectrumSendIntervalMs int

	TruePeakFactor int
	EnableMpxLpf   bool
}

// DefaultConfig returns the built-in defaults from spec §6.
func DefaultConfig() Config {
	return Config{
		MeterGain:              1.0,
		SpectrumGain:           1.0,
		MeterPilotScale:        1.0,
		MeterMPXScale:          100.0,
		MeterRDSScale:          1.0,
		SpectrumAttack:         0.25,
		SpectrumDecay:          0.15,
		SpectrumSendIntervalMs: 30,
		TruePeakFactor:         8,
		EnableMpxLpf:           true,
	}
}

// ConfigReloader owns the config file path and the current snapshot,
// and performs the stat-then-retry-read reload cycle from spec §4.13.
type ConfigReloader struct {
	path      string
	hasStatOk bool
	lastMod   time.Time
	current   Config
	logger    *log.Logger
}

// NewConfigReloader builds a reloader starting from DefaultConfig. An
// empty path disables reloading entirely.
func NewConfigReloader(path string, logger *log.Logger) *ConfigReloader {
	return &ConfigReloader{path: path, current: DefaultConfig(), logger: logger}
}

// Current returns the active configuration snapshot.
func (r *ConfigReloader) Current() Config {
	return r.current
}

// MaybeReload stats the config file and, if its mtime changed (or this
// is the first check), re-reads and re-parses it with retries. Returns
// the (possibly unchanged) current snapshot and whether it changed.
func (r *ConfigReloader) MaybeReload() (Config, bool) {
	if r.path == "" {
		return r.current, false
	}

	var info, statErr = os.Stat(r.path)
	if statErr != nil {
		return r.current, false
	}

	if r.hasStatOk && info.ModTime().Equal(r.lastMod) {
		return r.current, false
	}
	r.hasStatOk = true
	r.lastMod = info.ModTime()

	var content, ok = readConfigWithRetries(r.path)
	if !ok {
		if r.logger != nil {
			r.logger.Warnf("config reload: %s unusable after retries, keeping previous snapshot", r.path)
		}
		return r.current, false
	}

	var next = r.current
	applyConfig(content, &next)
	r.current = next

	if r.logger != nil {
		r.logger.Infof("config update (%s): gain=%.2fdB(x%.6f) scales p=%.6f m=%.6f r=%.6f",
			r.path, next.MeterInputCalibrationDB, next.MeterGain,
			next.MeterPilotScale, next.MeterMPXScale, next.MeterRDSScale)
		r.logger.Infof("config update: spectrum attack=%.3f decay=%.3f interval=%dms truepeak=%d lpf100k=%v",
			next.SpectrumAttack, next.SpectrumDecay, next.SpectrumSendIntervalMs,
			next.TruePeakFactor, next.EnableMpxLpf)
	}

	return r.current, true
}

// readConfigWithRetries tolerates an in-progress atomic-rename write:
// retry up to 5 times, 50ms apart, rejecting content that's empty,
// shorter than 10 bytes, or has no '{'.
func readConfigWithRetries(path string) (string, bool) {
	for attempt := 0; attempt < 5; attempt++ {
		var b, err = os.ReadFile(path)
		if err == nil && len(b) >= 10 && strings.Contains(string(b), "{") {
			return string(b), true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return "", false
}

var floatPattern = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// findJSONFloat scans raw for the literal quoted key, skips whitespace
// and a colon, and parses the longest valid numeric prefix. Returns
// false (leaving currentVal untouched by the caller) if the key isn't
// present or isn't followed by a number.
func findJSONFloat(raw, key string) (float64, bool) {
	var searchKey = `"` + key + `"`
	var idx = strings.Index(raw, searchKey)
	if idx < 0 {
		return 0, false
	}
	var pos = idx + len(searchKey)
	for pos < len(raw) {
		switch raw[pos] {
		case ' ', '\t', '\n', '\r', ':':
			pos++
			continue
		}
		break
	}
	if pos >= len(raw) {
		return 0, false
	}
	var match = floatPattern.FindString(raw[pos:])
	if match == "" {
		return 0, false
	}
	var v, err = strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// applyConfig parses every recognized key (spec §6) out of raw into
// cfg, leaving any key that's missing or non-numeric at its previous
// value, then clamps spectrum smoothing coefficients.
func applyConfig(raw string, cfg *Config) {
	if v, ok := findJSONFloat(raw, "MeterInputCalibration"); ok {
		cfg.MeterInputCalibrationDB = v
		cfg.MeterGain = math.Pow(10.0, v/20.0)
	}
	if v, ok := findJSONFloat(raw, "SpectrumInputCalibration"); ok {
		cfg.SpectrumInputCalibrationDB = v
		cfg.SpectrumGain = math.Pow(10.0, v/20.0)
	}
	if v, ok := findJSONFloat(raw, "MeterPilotScale"); ok {
		cfg.MeterPilotScale = v
	}
	if v, ok := findJSONFloat(raw, "MeterMPXScale"); ok {
		cfg.MeterMPXScale = v
	}
	if v, ok := findJSONFloat(raw, "MeterRDSScale"); ok {
		cfg.MeterRDSScale = v
	}
	if v, ok := findJSONFloat(raw, "SpectrumAttackLevel"); ok {
		cfg.SpectrumAttack = clampf(v*0.1, 0.01, 1.0)
	}
	if v, ok := findJSONFloat(raw, "SpectrumDecayLevel"); ok {
		cfg.SpectrumDecay = clampf(v*0.01, 0.01, 1.0)
	}
	if v, ok := findJSONFloat(raw, "SpectrumSendInterval"); ok && v > 0 {
		cfg.SpectrumSendIntervalMs = int(v)
	}
	if v, ok := findJSONFloat(raw, "TruePeakFactor"); ok {
		var tpf = int(math.Round(v))
		if tpf == 4 || tpf == 8 {
			cfg.TruePeakFactor = tpf
		}
	}
	if v, ok := findJSONFloat(raw, "MPX_LPF_100kHz"); ok {
		cfg.EnableMpxLpf = v != 0
	}
}
