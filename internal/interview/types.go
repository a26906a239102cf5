// Package interview implements the session state machine that drives a
// candidate through a scripted interview: question playback, answer capture,
// transcription, review, and durable persistence under a wall-clock budget.
package interview

import (
	"context"
	"errors"
	"time"

	"github.com/instasitebuilder/code-mentor-platform/internal/capture"
)

// Status is the durable lifecycle state of a session.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusTimedOut   Status = "timed_out"
	StatusCompleted  Status = "completed"
)

// State identifies the orchestrator's current phase.
type State int

const (
	StateLoading State = iota
	StateIntro
	StatePlaying
	StateCapturing
	StateTranscribing
	StateReviewing
	StateAdvancing
	StateCompleted
	StateTimedOut
	StateLoadFailed
)

var stateNames = map[State]string{
	StateLoading:      "loading",
	StateIntro:        "intro",
	StatePlaying:      "playing",
	StateCapturing:    "capturing",
	StateTranscribing: "transcribing",
	StateReviewing:    "reviewing",
	StateAdvancing:    "advancing",
	StateCompleted:    "completed",
	StateTimedOut:     "timed_out",
	StateLoadFailed:   "load_failed",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Terminal reports whether no further transitions can occur.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateTimedOut || s == StateLoadFailed
}

// Question is one scripted prompt. Placeholders are resolved before the
// orchestrator ever sees the text.
type Question struct {
	ID      string
	Text    string
	Ordinal int
}

// Details describe the interview an attempt belongs to.
type Details struct {
	Company  string
	Position string
}

// Script is what a QuestionBank returns for one interview: the interview
// details plus its ordered questions.
type Script struct {
	Details   Details
	Questions []Question
}

// Response is the candidate's answer to one question. Persisted flips to
// true only after a confirmed store write; the entry stays in the ledger
// afterwards so a later sweep can resubmit it.
type Response struct {
	QuestionID string
	Text       string
	RecordedAt time.Time
	Persisted  bool
}

// Session is one interview attempt. Fields are mutated only by the
// orchestrator loop.
type Session struct {
	ID           string
	InterviewID  string
	Questions    []Question
	CurrentIndex int
	Elapsed      int // seconds
	Status       Status
}

// Sentinel errors for the session core. Component-level failures
// (capture.ErrDeviceUnavailable, playback.ErrConcurrentPlayback,
// transcription.ErrTranscriptionFailed) live with their components.
var (
	ErrLoadFailed  = errors.New("interview: question load failed")
	ErrFlushFailed = errors.New("interview: response flush failed")
)

// QuestionBank returns the ordered script for an interview. An error or an
// empty script is a failed load.
type QuestionBank interface {
	Fetch(ctx context.Context, interviewID string) (*Script, error)
}

// ResponseStore durably persists responses and session status. Both methods
// must tolerate repeated calls with the same arguments.
type ResponseStore interface {
	Save(ctx context.Context, sessionID, questionID, text string) error
	MarkStatus(ctx context.Context, sessionID string, status Status) error
}

// Player reads question text aloud, returning once playback has finished.
type Player interface {
	Play(ctx context.Context, text string) error
}

// Recording is one active capture.
type Recording interface {
	Stop() (*capture.Clip, error)
}

// Recorder owns the capture device for a session.
type Recorder interface {
	Start(ctx context.Context) (Recording, error)
	Release()
}

// Transcriber turns a finished recording into text.
type Transcriber interface {
	Transcribe(ctx context.Context, clip *capture.Clip) (string, error)
}
