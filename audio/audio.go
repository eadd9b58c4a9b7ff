// Package audio plays short synthesized cues for application feedback.
package audio

// Cue identifies a feedback sound.
type Cue int

const (
	CueKey    Cue = iota // Keystroke acknowledgement
	CueError             // Rejected input buzz
	CueNotify            // Attention chime
	cueCount
)

// Provider plays cues. Implementations must tolerate being called before
// initialization and after cleanup.
type Provider interface {
	Init() error
	Play(c Cue)
	Close()
}

// NoOp discards every cue. Used when audio is disabled or unavailable.
type NoOp struct{}

func (NoOp) Init() error { return nil }
func (NoOp) Play(Cue)    {}
func (NoOp) Close()      {}
