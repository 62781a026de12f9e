// Package monitor detects speech on surfaces bound to audio streams.
package monitor

import (
	"math"
	"time"
)

const (
	FFTSize              = 2048
	Smoothing            = 0.8
	DefaultThreshold     = 0.022
	DefaultHold          = 1000 * time.Millisecond
	DefaultFrameInterval = 16 * time.Millisecond
)

// RMS returns the normalized root mean square of unsigned 8-bit samples centred at 128.
func RMS(samples []byte) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		v := (float64(s) - 128) / 128
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Detector is a hysteresis over per-frame volume. It turns on immediately
// above the threshold and off only after hold has elapsed without activity.
type Detector struct {
	threshold float64
	hold      time.Duration

	speaking   bool
	lastActive time.Time
}

func NewDetector(threshold float64, hold time.Duration) *Detector {
	return &Detector{threshold: threshold, hold: hold}
}

func (d *Detector) Observe(volume float64, now time.Time) bool {
	if volume > d.threshold {
		d.speaking = true
		d.lastActive = now
		return true
	}
	if d.speaking && now.Sub(d.lastActive) > d.hold {
		d.speaking = false
	}
	return d.speaking
}

func (d *Detector) Speaking() bool { return d.speaking }
