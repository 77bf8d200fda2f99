package terminal

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/speaker"
	"go.uber.org/zap"
)

// Cue names a game moment that has a sound.
type Cue int

const (
	CuePickup Cue = iota
	CueBlocked
	CueLevel
	CueConsole
)

func (c Cue) String() string {
	switch c {
	case CuePickup:
		return "pickup"
	case CueBlocked:
		return "blocked"
	case CueLevel:
		return "level"
	case CueConsole:
		return "console"
	default:
		return "unknown"
	}
}

// Sound plays cues. Implementations must not block the caller.
type Sound interface {
	Play(Cue)
}

// Silent is a Sound that plays nothing.
type Silent struct{}

func (Silent) Play(Cue) {}

const sampleRate = beep.SampleRate(44100)

// Chimes synthesizes short tones through the system speaker.
type Chimes struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	volume      float64
	initialized bool
}

// NewChimes opens the speaker. Without an audio device it logs a warning
// and returns Silent so the game still runs.
func NewChimes(volume float64, logger *zap.Logger) Sound {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Chimes{mixer: &beep.Mixer{}, volume: volume}
	if err := c.init(); err != nil {
		logger.Warn("audio disabled", zap.Error(err))
		return Silent{}
	}
	return c
}

func (c *Chimes) init() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(c.mixer)
	c.initialized = true
	return nil
}

// Play queues the cue on the mixer.
func (c *Chimes) Play(cue Cue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized || c.volume <= 0 {
		return
	}

	s := cueStreamer(cue)
	if s == nil {
		return
	}
	vol := &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(c.volume)}

	speaker.Lock()
	c.mixer.Add(vol)
	speaker.Unlock()
}

// Close silences anything still playing.
func (c *Chimes) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.initialized {
		return
	}
	speaker.Lock()
	c.mixer.Clear()
	speaker.Unlock()
	c.initialized = false
}

func cueStreamer(cue Cue) beep.Streamer {
	switch cue {
	case CuePickup:
		return beep.Seq(tone(880, 60*time.Millisecond), tone(1320, 90*time.Millisecond))
	case CueBlocked:
		return tone(110, 80*time.Millisecond)
	case CueLevel:
		return beep.Seq(
			tone(523, 80*time.Millisecond),
			tone(659, 80*time.Millisecond),
			tone(784, 140*time.Millisecond),
		)
	case CueConsole:
		return beep.Seq(tone(440, 50*time.Millisecond), tone(440, 50*time.Millisecond))
	}
	return nil
}

// sine is a fixed-length sine oscillator with a linear release.
type sine struct {
	freq  float64
	phase float64
	pos   int
	total int
}

func tone(freq float64, d time.Duration) beep.Streamer {
	return &sine{freq: freq, total: sampleRate.N(d)}
}

func (s *sine) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if s.pos >= s.total {
			return i, i > 0
		}
		vol := 1.0
		if rel := s.total / 4; rel > 0 && s.pos > s.total-rel {
			vol = float64(s.total-s.pos) / float64(rel)
		}
		v := math.Sin(2*math.Pi*s.phase) * vol
		samples[i][0] = v
		samples[i][1] = v

		s.phase += s.freq / float64(sampleRate)
		s.phase -= math.Floor(s.phase)
		s.pos++
	}
	return len(samples), true
}

func (s *sine) Err() error { return nil }
