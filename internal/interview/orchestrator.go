package interview

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/instasitebuilder/code-mentor-platform/internal/capture"
	"github.com/instasitebuilder/code-mentor-platform/internal/playback"
	"github.com/instasitebuilder/code-mentor-platform/internal/trace"
)

// Deps are the orchestrator's collaborators. All of them are injected; the
// orchestrator has no ambient dependencies.
type Deps struct {
	Bank        QuestionBank
	Store       ResponseStore
	Player      Player
	Recorder    Recorder
	Transcriber Transcriber
}

// Config holds per-session settings.
type Config struct {
	BudgetSeconds int
}

type commandKind int

const (
	cmdIntroAck commandKind = iota
	cmdStopRecording
	cmdSetResponse
	cmdConfirmResponse
)

type command struct {
	kind commandKind
	text string
}

type resultKind int

const (
	resLoaded resultKind = iota
	resPlaybackDone
	resCaptureStarted
	resTranscriptDone
	resFlushDone
)

// asyncResult is the settlement of one external operation, tagged with the
// question index it was issued for so late arrivals can be dropped.
type asyncResult struct {
	kind      resultKind
	index     int
	script    *Script
	recording Recording
	text      string
	err       error
}

// Orchestrator sequences one interview session end to end. It runs as a
// single goroutine; every suspension point is an external async operation
// whose settlement re-enters the loop through resultCh, so session fields
// need no locking.
type Orchestrator struct {
	cfg  Config
	deps Deps

	session *Session
	details Details
	state   State
	timer   *Timer
	ledger  *Ledger

	recording  Recording
	draft      string
	playCancel context.CancelFunc

	cmdCh    chan command
	resultCh chan asyncResult
	eventCh  chan Event
	done     chan struct{}

	runCtx context.Context
}

// New creates an orchestrator for one interview attempt.
func New(interviewID string, deps Deps, cfg Config) *Orchestrator {
	if cfg.BudgetSeconds <= 0 {
		cfg.BudgetSeconds = DefaultBudgetSeconds
	}
	session := &Session{
		ID:          uuid.NewString(),
		InterviewID: interviewID,
		Status:      StatusNotStarted,
	}
	return &Orchestrator{
		cfg:      cfg,
		deps:     deps,
		session:  session,
		state:    StateLoading,
		timer:    NewTimer(cfg.BudgetSeconds),
		ledger:   NewLedger(session.ID, deps.Store),
		cmdCh:    make(chan command, CommandBuffer),
		resultCh: make(chan asyncResult, ResultBuffer),
		eventCh:  make(chan Event, EventBuffer),
		done:     make(chan struct{}),
	}
}

// Events returns the UI event stream. It is closed when Run returns.
func (o *Orchestrator) Events() <-chan Event { return o.eventCh }

// SessionID returns the attempt identifier.
func (o *Orchestrator) SessionID() string { return o.session.ID }

// AcknowledgeIntro cuts the greeting audio short and advances to the first
// question.
func (o *Orchestrator) AcknowledgeIntro() { o.post(command{kind: cmdIntroAck}) }

// StopRecording ends the current answer capture and starts transcription.
func (o *Orchestrator) StopRecording() { o.post(command{kind: cmdStopRecording}) }

// SetResponse overwrites the draft response text during review.
func (o *Orchestrator) SetResponse(text string) {
	o.post(command{kind: cmdSetResponse, text: text})
}

// ConfirmResponse accepts the draft, flushes it, and advances.
func (o *Orchestrator) ConfirmResponse() { o.post(command{kind: cmdConfirmResponse}) }

func (o *Orchestrator) post(cmd command) {
	select {
	case o.cmdCh <- cmd:
	case <-o.done:
	}
}

func (o *Orchestrator) send(res asyncResult) {
	select {
	case o.resultCh <- res:
	case <-o.done:
	}
}

// Run drives the session to a terminal state. It returns when the session
// completes, times out, fails to load, or ctx is cancelled. Cancellation
// abandons in-flight work without flushing; only confirmed or
// timed-out-but-captured answers are durable.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.runCtx = ctx
	defer close(o.eventCh)
	defer o.cleanup()
	defer close(o.done)

	log := trace.Logger(ctx)
	log.Info("session starting",
		"session_id", o.session.ID, "interview_id", o.session.InterviewID,
		"budget_seconds", o.cfg.BudgetSeconds)

	o.emitState()
	go o.load(ctx)

	timerCh := o.timer.Events()
	for !o.state.Terminal() {
		select {
		case <-ctx.Done():
			log.Info("session abandoned", "session_id", o.session.ID, "state", o.state.String())
			return ctx.Err()
		case cmd := <-o.cmdCh:
			o.applyCommand(ctx, cmd)
		case res := <-o.resultCh:
			o.applyResult(ctx, res)
		case tev, ok := <-timerCh:
			if !ok {
				timerCh = nil
				continue
			}
			o.applyTimer(ctx, tev)
		}
	}

	log.Info("session finished",
		"session_id", o.session.ID, "status", string(o.session.Status),
		"answered", len(o.ledger.Responses()), "elapsed_seconds", o.session.Elapsed)
	return nil
}

func (o *Orchestrator) cleanup() {
	o.timer.Cancel()
	o.cancelPlayback()
	if rec := o.recording; rec != nil {
		o.recording = nil
		_, _ = rec.Stop()
	}
	if o.deps.Recorder != nil {
		o.deps.Recorder.Release()
	}
}

func (o *Orchestrator) load(ctx context.Context) {
	ctx, span := trace.StartSpan(ctx, "load_questions")
	defer span.End()

	script, err := o.deps.Bank.Fetch(ctx, o.session.InterviewID)
	if err == nil && (script == nil || len(script.Questions) == 0) {
		err = fmt.Errorf("%w: empty script", ErrLoadFailed)
	}
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	o.send(asyncResult{kind: resLoaded, script: script, err: err})
}

func (o *Orchestrator) applyCommand(ctx context.Context, cmd command) {
	log := trace.Logger(ctx)
	switch cmd.kind {
	case cmdIntroAck:
		if o.state != StateIntro {
			return
		}
		// Cut the greeting short; its settlement advances to the first
		// question once the voice slot is free again.
		o.cancelPlayback()

	case cmdStopRecording:
		if o.state != StateCapturing {
			return
		}
		rec := o.recording
		o.recording = nil
		o.state = StateTranscribing
		o.emitState()
		go o.stopAndTranscribe(ctx, o.session.CurrentIndex, rec)

	case cmdSetResponse:
		if o.state != StateReviewing {
			return
		}
		o.draft = cmd.text
		o.ledger.Record(o.currentQuestion().ID, cmd.text)
		o.emit(Event{Kind: KindTranscript, State: o.state, Index: o.session.CurrentIndex,
			Total: len(o.session.Questions), Text: cmd.text})

	case cmdConfirmResponse:
		if o.state != StateReviewing {
			return
		}
		log.Info("response confirmed",
			"session_id", o.session.ID, "question", o.currentQuestion().ID,
			"chars", len(o.draft))
		o.advance(ctx)
	}
}

func (o *Orchestrator) applyResult(ctx context.Context, res asyncResult) {
	log := trace.Logger(ctx)
	switch res.kind {
	case resLoaded:
		if o.state != StateLoading {
			return
		}
		if res.err != nil {
			log.Error("question load failed", "session_id", o.session.ID, "error", res.err)
			o.state = StateLoadFailed
			o.emitState()
			return
		}
		o.session.Questions = res.script.Questions
		o.session.Status = StatusInProgress
		o.details = res.script.Details
		o.state = StateIntro
		o.timer.Start(ctx)
		log.Info("questions loaded", "session_id", o.session.ID, "count", len(o.session.Questions))
		greeting := o.greeting()
		o.emit(Event{Kind: KindIntro, State: o.state, Total: len(o.session.Questions), Text: greeting})
		o.emitState()
		o.startPlayback(ctx, introIndex, greeting)

	case resPlaybackDone:
		if res.index == introIndex {
			// The candidate may have acknowledged the intro already.
			if o.state != StateIntro {
				return
			}
			if res.err != nil && !errors.Is(res.err, playback.ErrConcurrentPlayback) &&
				!errors.Is(res.err, context.Canceled) {
				log.Warn("intro playback failed", "session_id", o.session.ID, "error", res.err)
			}
			o.beginQuestion(ctx, 0)
			return
		}
		if o.state != StatePlaying || res.index != o.session.CurrentIndex {
			return
		}
		if res.err != nil {
			// Voice is an enhancement: the question stays readable on screen.
			if errors.Is(res.err, playback.ErrConcurrentPlayback) {
				log.Error("concurrent playback rejected", "session_id", o.session.ID, "index", res.index)
			} else {
				log.Warn("playback failed", "session_id", o.session.ID, "index", res.index, "error", res.err)
				o.notice("Voice is unavailable. Read the question and answer when ready.")
			}
		}
		o.beginCapture(ctx)

	case resCaptureStarted:
		if o.state != StateCapturing || res.index != o.session.CurrentIndex {
			if res.recording != nil {
				go func(rec Recording) { _, _ = rec.Stop() }(res.recording)
			}
			return
		}
		if res.err != nil {
			switch {
			case errors.Is(res.err, capture.ErrConcurrentCapture):
				log.Error("concurrent capture rejected", "session_id", o.session.ID, "index", res.index)
			case errors.Is(res.err, capture.ErrDeviceUnavailable):
				log.Warn("capture device unavailable", "session_id", o.session.ID, "error", res.err)
				o.notice("Microphone is unavailable. Please type your answer.")
			default:
				log.Warn("capture start failed", "session_id", o.session.ID, "error", res.err)
				o.notice("Recording could not start. Please type your answer.")
			}
			o.enterReview(ctx, "")
			return
		}
		o.recording = res.recording

	case resTranscriptDone:
		if o.state != StateTranscribing || res.index != o.session.CurrentIndex {
			return
		}
		text := res.text
		if res.err != nil {
			log.Warn("transcription failed", "session_id", o.session.ID, "index", res.index, "error", res.err)
			o.notice("Transcription failed. Please type your answer.")
			text = ""
		}
		o.enterReview(ctx, text)

	case resFlushDone:
		if res.err != nil {
			log.Warn("response flush failed; will retry on sweep",
				"session_id", o.session.ID, "index", res.index, "error", res.err)
			o.notice("Saving your answer failed; it will be retried.")
		}
	}
}

func (o *Orchestrator) applyTimer(ctx context.Context, tev TimerEvent) {
	if tev.Expired {
		switch o.state {
		case StateIntro, StatePlaying, StateCapturing, StateTranscribing, StateReviewing:
			o.enterTimedOut(ctx)
		}
		return
	}
	o.session.Elapsed = o.cfg.BudgetSeconds - tev.Remaining
	o.tryEmit(Event{Kind: KindTick, State: o.state, Index: o.session.CurrentIndex,
		Total: len(o.session.Questions), Remaining: tev.Remaining})
}

func (o *Orchestrator) currentQuestion() Question {
	return o.session.Questions[o.session.CurrentIndex]
}

func (o *Orchestrator) greeting() string {
	if o.details.Company == "" {
		return "Welcome to your practice interview. I will read each question aloud; " +
			"start your answer when the question finishes."
	}
	return fmt.Sprintf("Welcome to your interview with %s for the %s position. "+
		"I will read each question aloud; start your answer when the question finishes.",
		o.details.Company, o.details.Position)
}

func (o *Orchestrator) beginQuestion(ctx context.Context, index int) {
	o.session.CurrentIndex = index
	o.draft = ""
	q := o.currentQuestion()
	o.state = StatePlaying
	o.emit(Event{Kind: KindQuestion, State: o.state, Index: index,
		Total: len(o.session.Questions), Question: &q})
	o.startPlayback(ctx, index, q.Text)
}

// startPlayback launches one voice playback that the loop can cut short.
func (o *Orchestrator) startPlayback(ctx context.Context, index int, text string) {
	o.cancelPlayback()
	pctx, cancel := context.WithCancel(ctx)
	o.playCancel = cancel
	go o.play(pctx, index, text)
}

func (o *Orchestrator) cancelPlayback() {
	if o.playCancel != nil {
		o.playCancel()
		o.playCancel = nil
	}
}

func (o *Orchestrator) play(ctx context.Context, index int, text string) {
	ctx, span := trace.StartSpan(ctx, "play_question")
	defer span.End()
	span.SetAttr("index", index)

	err := o.deps.Player.Play(ctx, text)
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	o.send(asyncResult{kind: resPlaybackDone, index: index, err: err})
}

func (o *Orchestrator) beginCapture(ctx context.Context) {
	o.state = StateCapturing
	o.emitState()
	index := o.session.CurrentIndex
	go func() {
		rec, err := o.deps.Recorder.Start(ctx)
		o.send(asyncResult{kind: resCaptureStarted, index: index, recording: rec, err: err})
	}()
}

func (o *Orchestrator) stopAndTranscribe(ctx context.Context, index int, rec Recording) {
	ctx, span := trace.StartSpan(ctx, "transcribe_answer")
	defer span.End()
	span.SetAttr("index", index)

	if rec == nil {
		// Capture never opened; there is nothing to transcribe.
		o.send(asyncResult{kind: resTranscriptDone, index: index})
		return
	}
	clip, err := rec.Stop()
	if err != nil {
		span.SetAttr("error", err.Error())
		o.send(asyncResult{kind: resTranscriptDone, index: index, err: err})
		return
	}
	span.SetAttr("duration", clip.Duration().String())

	text, err := o.deps.Transcriber.Transcribe(ctx, clip)
	if err != nil {
		span.SetAttr("error", err.Error())
	}
	o.send(asyncResult{kind: resTranscriptDone, index: index, text: text, err: err})
}

// enterReview records the draft immediately, even when empty, so a timeout
// sweep persists whatever text exists for the current question.
func (o *Orchestrator) enterReview(ctx context.Context, text string) {
	o.draft = text
	o.ledger.Record(o.currentQuestion().ID, text)
	o.state = StateReviewing
	o.emit(Event{Kind: KindTranscript, State: o.state, Index: o.session.CurrentIndex,
		Total: len(o.session.Questions), Text: text})
	o.emitState()
}

// advance flushes the confirmed response and moves on. The flush is
// initiated before the next question's playback starts, never after.
func (o *Orchestrator) advance(ctx context.Context) {
	index := o.session.CurrentIndex
	q := o.currentQuestion()
	o.state = StateAdvancing
	o.emitState()

	go func() {
		err := o.ledger.Flush(ctx, q.ID)
		o.send(asyncResult{kind: resFlushDone, index: index, err: err})
	}()

	if index+1 < len(o.session.Questions) {
		o.beginQuestion(ctx, index+1)
		return
	}
	o.complete(ctx)
}

func (o *Orchestrator) complete(ctx context.Context) {
	o.session.CurrentIndex = len(o.session.Questions)
	o.session.Status = StatusCompleted
	o.state = StateCompleted
	o.timer.Cancel()
	o.finalize(ctx)
	o.emitState()
}

func (o *Orchestrator) enterTimedOut(ctx context.Context) {
	log := trace.Logger(ctx)
	log.Info("session budget expired",
		"session_id", o.session.ID, "state", o.state.String(), "index", o.session.CurrentIndex)

	if rec := o.recording; rec != nil {
		o.recording = nil
		go func() { _, _ = rec.Stop() }()
	}
	// A candidate caught mid-answer keeps whatever text exists, even empty.
	if i := o.session.CurrentIndex; i < len(o.session.Questions) {
		o.ledger.Record(o.session.Questions[i].ID, o.draft)
	}
	o.session.Elapsed = o.cfg.BudgetSeconds
	o.session.Status = StatusTimedOut
	o.state = StateTimedOut
	o.finalize(ctx)
	o.emitState()
}

// finalize sweep-flushes unpersisted responses and records the terminal
// status. It runs on a detached context so the caller disconnecting right
// at the end does not lose confirmed answers.
func (o *Orchestrator) finalize(ctx context.Context) {
	log := trace.Logger(ctx)
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SweepTimeout)
	defer cancel()

	if err := o.ledger.FlushAll(sctx); err != nil {
		log.Warn("sweep flush incomplete", "session_id", o.session.ID, "error", err)
	}
	if err := o.deps.Store.MarkStatus(sctx, o.session.ID, o.session.Status); err != nil {
		log.Warn("status write failed", "session_id", o.session.ID,
			"status", string(o.session.Status), "error", err)
	}
}

func (o *Orchestrator) notice(message string) {
	o.emit(Event{Kind: KindNotice, State: o.state, Index: o.session.CurrentIndex,
		Total: len(o.session.Questions), Text: message})
}

func (o *Orchestrator) emitState() {
	o.emit(Event{Kind: KindState, State: o.state, Index: o.session.CurrentIndex,
		Total: len(o.session.Questions)})
}

func (o *Orchestrator) emit(ev Event) {
	select {
	case o.eventCh <- ev:
	case <-o.runCtx.Done():
	}
}

// tryEmit drops the event when the consumer is behind; used for ticks only.
func (o *Orchestrator) tryEmit(ev Event) {
	select {
	case o.eventCh <- ev:
	default:
	}
}
