// Package audiocap wires a malgo capture device into the pipeline's PCM
// ring, applying the downmix/AGC/noise-gate chain spec.md §4.A describes.
// The device setup mirrors the teacher's cmd/agent/main.go malgo wiring
// (capture-only here; the teacher's agent was duplex because it also played
// TTS audio back, which this pipeline has no leg for).
package audiocap

import (
	"sync/atomic"

	"github.com/gen2brain/malgo"
	"github.com/synapse-ai/cognition-pipeline/pkg/config"
	"github.com/synapse-ai/cognition-pipeline/pkg/logging"
	"github.com/synapse-ai/cognition-pipeline/pkg/pipeline"
)

// LevelObserver receives the post-downmix peak for each frame, the
// non-blocking audio-level callback spec.md §4.A calls for.
type LevelObserver func(peak float64)

type Capture struct {
	ctx     *malgo.AllocatedContext
	device  *malgo.Device
	ring    *pipeline.PCMRing
	cfgSnap *config.Snapshot
	log     logging.Logger
	onLevel LevelObserver

	silenceRun   atomic.Uint64
	warnedOnce   atomic.Bool
	lowPeakCount atomic.Uint64

	// scratch is reused across callbacks so onSamples performs no allocation
	// beyond the single copy into frame.Samples.
	scratch []float32
}

// New builds a Capture bound to ring and reading its AGC/gate parameters
// from cfgSnap at every frame, so config edits apply without restarting the
// device.
func New(cfgSnap *config.Snapshot, ring *pipeline.PCMRing, log logging.Logger, onLevel LevelObserver) (*Capture, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, err
	}

	c := &Capture{
		ctx: mctx, ring: ring, cfgSnap: cfgSnap, log: log, onLevel: onLevel,
		scratch: make([]float32, pipeline.FrameSamples*2),
	}

	cfg := cfgSnap.Load()
	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 2 // request stereo so downmix has real work; device may ignore and deliver mono
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(mctx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: c.onSamples,
	})
	if err != nil {
		_ = mctx.Uninit()
		return nil, err
	}
	c.device = device
	return c, nil
}

func (c *Capture) Start() error {
	return c.device.Start()
}

func (c *Capture) Close() {
	c.device.Uninit()
	_ = c.ctx.Uninit()
}

// onSamples is malgo's capture callback. pInput holds interleaved float32
// samples; frameCount frames, deviceConfig.Capture.Channels channels.
func (c *Capture) onSamples(_, pInput []byte, frameCount uint32) {
	if len(pInput) == 0 {
		return
	}
	cfg := c.cfgSnap.Load()

	channels := len(pInput) / int(frameCount) / 4
	if channels < 1 {
		channels = 1
	}

	frame := pipeline.PcmFrame{}
	n := int(frameCount)
	if n > pipeline.FrameSamples {
		n = pipeline.FrameSamples
	}

	need := n * channels
	if cap(c.scratch) < need {
		c.scratch = make([]float32, need)
	}
	interleaved := c.scratch[:need]
	for i := range interleaved {
		off := i * 4
		if off+4 > len(pInput) {
			break
		}
		interleaved[i] = decodeF32LE(pInput[off : off+4])
	}
	downmix(interleaved, channels, frame.Samples[:n])

	if c.onLevel != nil {
		c.onLevel(peakOf(frame.Samples[:n]))
	}

	prePeak := applyAGC(frame.Samples[:n], cfg.AGCTarget, cfg.AGCMaxGain)
	if prePeak < 0.05 {
		c.lowPeakCount.Add(1)
		if c.lowPeakCount.Load() > 50 && c.warnedOnce.CompareAndSwap(false, true) {
			c.log.Warn("sustained low input level", "peak", prePeak)
		}
	} else {
		c.lowPeakCount.Store(0)
	}

	postPeak := peakOf(frame.Samples[:n])
	if postPeak < cfg.GateThreshold {
		run := c.silenceRun.Add(1)
		if run%100 == 0 {
			c.log.Debug("noise gate discarding frame", "consecutive_silences", run)
		}
		return
	}
	c.silenceRun.Store(0)

	c.ring.Push(&frame)
}
