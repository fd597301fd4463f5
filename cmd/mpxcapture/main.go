package main

/*------------------------------------------------------------------
 *
 * Purpose:	Read a raw interleaved-stereo float32 MPX stream from
 *		stdin, run it through the DSP chain, and write one JSON
 *		measurement record per output interval to stdout.
 *
 * Usage:	mpxcapture [sample-rate] [device-name] [fft-size] [config-file]
 *
 *----------------------------------------------------------------*/

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"
	"os"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/n5dsp/mpxcapture/src"
)

const (
	framesPerBlock     = 2048
	bytesPerFloat      = 4
	channelsPerFrame   = 2
	blockBytes         = framesPerBlock * channelsPerFrame * bytesPerFloat
	configCheckEvery   = 50
	defaultSampleRate  = 192000
	defaultFFTSize     = 4096
	minFFTSize         = 512
)

func main() {
	var verbose = pflag.BoolP("verbose", "v", false, "Verbose diagnostic logging.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		os.Stderr.WriteString("usage: mpxcapture [sample-rate] [device-name] [fft-size] [config-file]\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if *help {
		pflag.Usage()
		return
	}

	var logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true})
	if *verbose {
		logger.SetLevel(log.DebugLevel)
	}

	var sampleRate = float64(defaultSampleRate)
	var device = "Default"
	var fftSize = defaultFFTSize
	var configPath = ""

	var args = pflag.Args()
	if len(args) >= 1 {
		if v, err := strconv.Atoi(args[0]); err == nil && v > 0 {
			sampleRate = float64(v)
		}
	}
	if len(args) >= 2 && args[1] != "" {
		device = args[1]
	}
	if len(args) >= 3 {
		if v, err := strconv.Atoi(args[2]); err == nil {
			fftSize = v
		}
	}
	if !isPowerOfTwoAtLeast(fftSize, minFFTSize) {
		fftSize = defaultFFTSize
	}
	if len(args) >= 4 {
		configPath = args[3]
	}

	logger.Infof("init sample-rate=%d fft=%d device=%q config=%q", int(sampleRate), fftSize, device, configPath)

	var engine = mpx.NewEngine(sampleRate, fftSize, configPath, logger)

	var reader = bufio.NewReaderSize(os.Stdin, blockBytes*4)
	var buf = make([]byte, blockBytes)

	// Standard output is written to directly, with no buffering layer,
	// so a downstream UI sees each record promptly (spec §5).
	var out io.Writer = os.Stdout

	var configCheckCounter = 0

	for {
		if _, err := io.ReadFull(reader, buf); err != nil {
			// EOF or short read: terminate cleanly (spec §7).
			break
		}

		configCheckCounter++
		if configCheckCounter >= configCheckEvery {
			engine.ReloadConfig()
			configCheckCounter = 0
		}

		for i := 0; i < framesPerBlock; i++ {
			var base = i * channelsPerFrame * bytesPerFloat
			var l = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[base:])))
			var r = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[base+bytesPerFloat:])))

			if rec, ok := engine.ProcessSample(l, r); ok {
				_ = rec.Write(out)
			}
		}
	}
}

func isPowerOfTwoAtLeast(x, min int) bool {
	return x >= min && x > 0 && x&(x-1) == 0
}
