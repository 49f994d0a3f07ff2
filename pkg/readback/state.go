package readback

// State is a readback cycle phase.
type State int

const (
	StateIdle State = iota
	StateScheduling
	StateAwaiting
	StateDownloading
	StateRendering
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScheduling:
		return "scheduling"
	case StateAwaiting:
		return "awaiting"
	case StateDownloading:
		return "downloading"
	case StateRendering:
		return "rendering"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}
