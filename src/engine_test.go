package mpx

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Scenario: silence in, silence out -- all meters stay at or near
// zero and no NaN/Inf leaks into the record (spec §8 scenario 1).
func Test_Engine_SilenceInSilenceOut(t *testing.T) {
	var e = NewEngine(48000, 512, "", nil)

	var lastRec Record
	var gotOne bool
	for i := 0; i < 60000; i++ {
		if rec, ok := e.ProcessSample(0, 0); ok {
			lastRec, gotOne = rec, true
		}
	}

	require.True(t, gotOne)
	assert.Equal(t, 0.0, lastRec.Pilot)
	assert.Equal(t, 0.0, lastRec.RDS)
	assert.Equal(t, 0.0, lastRec.MPXPeak)
	for _, v := range lastRec.Spectrum {
		assert.Equal(t, 0.0, v)
	}
}

// Scenario: a config file edit changes engine behavior within one
// reload cycle, bounded to the next ReloadConfig call (spec §8
// scenario 5, invariant 5).
func Test_Engine_ConfigHotReloadChangesOutput(t *testing.T) {
	var dir = t.TempDir()
	var path = filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"MeterMPXScale": 100.0}`), 0644))

	var e = NewEngine(48000, 512, path, nil)

	var thresholdBefore = e.outputThreshold

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"MeterMPXScale": 100.0, "SpectrumSendInterval": 5}`), 0644))
	e.ReloadConfig()

	assert.NotEqual(t, thresholdBefore, e.outputThreshold)
	assert.Equal(t, 5, e.cfg.SpectrumSendIntervalMs)
}

func Test_Engine_ReloadConfigIsNoopWithoutConfigPath(t *testing.T) {
	var e = NewEngine(48000, 512, "", nil)
	e.ReloadConfig()
	assert.Equal(t, DefaultConfig().MeterGain, e.cfg.MeterGain)
}
