package interview

// EventKind discriminates UI-facing updates from the orchestrator.
type EventKind int

const (
	// KindState announces a state transition.
	KindState EventKind = iota
	// KindIntro carries the spoken greeting text.
	KindIntro
	// KindQuestion presents a question to the candidate.
	KindQuestion
	// KindTranscript carries the current draft response text.
	KindTranscript
	// KindTick carries the remaining session seconds.
	KindTick
	// KindNotice reports a degraded-mode condition the UI should surface.
	KindNotice
)

// Event is a UI-facing update. Index and Total are set whenever the session
// has questions loaded.
type Event struct {
	Kind      EventKind
	State     State
	Index     int
	Total     int
	Question  *Question
	Text      string
	Remaining int
}
