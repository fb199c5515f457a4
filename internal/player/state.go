// ABOUTME: Playback state machine states for the generative music player
// ABOUTME: Stopped, loading, playing, and paused with string labels
package player

// State is the player's playback state
type State int

const (
	// Stopped means no session and no scheduled audio
	Stopped State = iota

	// Loading means a session exists but not enough audio is buffered yet
	Loading

	// Playing means audio is audible and the clock is running
	Playing

	// Paused means the session is held open with audio suspended
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}
