package audio

import (
	"math"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"
)

const sampleRate = beep.SampleRate(48000)

// Speaker synthesizes cues on the host audio device through a shared
// mixer, so overlapping cues mix instead of cutting each other off.
type Speaker struct {
	mu          sync.Mutex
	mixer       *beep.Mixer
	initialized bool
}

// NewSpeaker creates an uninitialized speaker provider.
func NewSpeaker() *Speaker {
	return &Speaker{mixer: &beep.Mixer{}}
}

// Init opens the audio device. Safe to call more than once.
func (s *Speaker) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if err := speaker.Init(sampleRate, sampleRate.N(100*time.Millisecond)); err != nil {
		return err
	}
	speaker.Play(s.mixer)
	s.initialized = true
	return nil
}

// Play queues the cue's streamer onto the mixer. A cue on an
// uninitialized speaker is dropped.
func (s *Speaker) Play(c Cue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	speaker.Lock()
	s.mixer.Add(cueStreamer(c))
	speaker.Unlock()
}

// Close silences the mixer. beep has no speaker teardown; clearing the
// mixer is what stops output.
func (s *Speaker) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	speaker.Lock()
	s.mixer.Clear()
	speaker.Unlock()
	s.initialized = false
}

func cueStreamer(c Cue) beep.Streamer {
	switch c {
	case CueKey:
		return envelope(tone(880, 40*time.Millisecond, waveSine), 40*time.Millisecond, 2*time.Millisecond, 15*time.Millisecond)
	case CueError:
		return envelope(tone(180, 120*time.Millisecond, waveSquare), 120*time.Millisecond, 2*time.Millisecond, 40*time.Millisecond)
	case CueNotify:
		return beep.Seq(
			envelope(tone(660, 70*time.Millisecond, waveSine), 70*time.Millisecond, 3*time.Millisecond, 20*time.Millisecond),
			envelope(tone(990, 90*time.Millisecond, waveSine), 90*time.Millisecond, 3*time.Millisecond, 40*time.Millisecond),
		)
	}
	return beep.Silence(0)
}

type waveType int

const (
	waveSine waveType = iota
	waveSquare
)

// oscillator generates a fixed-length raw wave.
type oscillator struct {
	freq     float64
	phase    float64
	duration int
	position int
	wave     waveType
}

func tone(freq float64, d time.Duration, wave waveType) beep.Streamer {
	return &oscillator{freq: freq, duration: sampleRate.N(d), wave: wave}
}

func (o *oscillator) Stream(samples [][2]float64) (int, bool) {
	for i := range samples {
		if o.position >= o.duration {
			return i, false
		}
		var val float64
		switch o.wave {
		case waveSine:
			val = math.Sin(2 * math.Pi * o.phase)
		case waveSquare:
			if o.phase < 0.5 {
				val = 1.0
			} else {
				val = -1.0
			}
		}
		samples[i][0] = val
		samples[i][1] = val

		o.phase += o.freq / float64(sampleRate)
		o.phase = o.phase - math.Floor(o.phase) // Keep in [0, 1)
		o.position++
	}
	return len(samples), true
}

func (o *oscillator) Err() error { return nil }

// shaped applies linear attack and release ramps so cues start and end
// without clicks.
type shaped struct {
	streamer beep.Streamer
	position int
	attack   int
	release  int
	total    int
}

func envelope(s beep.Streamer, duration, attack, release time.Duration) beep.Streamer {
	return &shaped{
		streamer: s,
		attack:   sampleRate.N(attack),
		release:  sampleRate.N(release),
		total:    sampleRate.N(duration),
	}
}

func (e *shaped) Stream(samples [][2]float64) (int, bool) {
	n, ok := e.streamer.Stream(samples)
	for i := 0; i < n; i++ {
		gain := 1.0
		switch {
		case e.position < e.attack:
			gain = float64(e.position) / float64(e.attack)
		case e.position >= e.total-e.release:
			remain := e.total - e.position
			if remain < 0 {
				remain = 0
			}
			gain = float64(remain) / float64(e.release)
		}
		samples[i][0] *= gain
		samples[i][1] *= gain
		e.position++
	}
	return n, ok
}

func (e *shaped) Err() error { return e.streamer.Err() }
