// Package server provides HTTP and WebSocket handlers
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/instasitebuilder/code-mentor-platform/internal/capture"
	"github.com/instasitebuilder/code-mentor-platform/internal/interview"
	"github.com/instasitebuilder/code-mentor-platform/internal/playback"
	"github.com/instasitebuilder/code-mentor-platform/internal/trace"
)

// Client message types.
type clientMessage struct {
	Type    string `json:"type"`
	Text    string `json:"text,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}

// Server message types.
type SessionMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
}

type StateMessage struct {
	Type  string `json:"type"`
	State string `json:"state"`
	Index int    `json:"index"`
	Total int    `json:"total"`
}

type IntroMessage struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Total int    `json:"total"`
}

type QuestionMessage struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Total int    `json:"total"`
	ID    string `json:"id"`
	Text  string `json:"text"`
}

type TranscriptMessage struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

type TickMessage struct {
	Type      string `json:"type"`
	Remaining int    `json:"remaining"`
}

type NoticeMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// rateLimiter tracks message timestamps using a sliding window.
type rateLimiter struct {
	timestamps []time.Time
	mu         sync.Mutex
}

// allow checks if a message is allowed and records the timestamp if so.
func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-RateLimitWindow)

	// Prune old timestamps
	valid := r.timestamps[:0]
	for _, t := range r.timestamps {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	r.timestamps = valid

	if len(r.timestamps) >= RateLimitMessages {
		return false
	}

	r.timestamps = append(r.timestamps, now)
	return true
}

// Options wire a Server to its session collaborators. NewSource is called
// once per connection so each session owns its capture device.
type Options struct {
	Bank          interview.QuestionBank
	Store         interview.ResponseStore
	Transcriber   interview.Transcriber
	Synthesizer   playback.Synthesizer
	NewSource     func() capture.Source
	BudgetSeconds int
}

// Server handles HTTP and WebSocket connections. Each WebSocket connection
// runs one interview session; the connection closing abandons the session.
type Server struct {
	opts Options
}

// New creates a new server.
func New(opts Options) *Server {
	return &Server{opts: opts}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("/ws/interview/{id}", s.handleInterview)

	// Apply middleware: trace -> CORS
	return corsMiddleware(trace.Middleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleInterview(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("websocket accept error", "error", err)
		return
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "") }()

	interviewID := r.PathValue("id")
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	log := trace.Logger(ctx)
	log.Info("interview connected", "interview_id", interviewID, "remote", r.RemoteAddr)

	sink := newWSSink(conn)
	orch := interview.New(interviewID, interview.Deps{
		Bank:        s.opts.Bank,
		Store:       s.opts.Store,
		Player:      playback.NewController(s.opts.Synthesizer, sink),
		Recorder:    &sessionRecorder{mgr: capture.NewManager(s.opts.NewSource())},
		Transcriber: s.opts.Transcriber,
	}, interview.Config{BudgetSeconds: s.opts.BudgetSeconds})

	if err := wsjson.Write(ctx, conn, SessionMessage{Type: "session", SessionID: orch.SessionID()}); err != nil {
		log.Debug("session write failed", "error", err)
		return
	}

	runDone := make(chan error, 1)
	go func() { runDone <- orch.Run(ctx) }()
	go s.readLoop(ctx, cancel, conn, orch, sink, r.RemoteAddr)

	for ev := range orch.Events() {
		if err := writeEvent(ctx, conn, ev); err != nil {
			log.Debug("event write failed", "error", err)
			cancel()
			// Keep draining so the orchestrator is never blocked on emit.
		}
	}
	err = <-runDone
	log.Info("interview disconnected",
		"interview_id", interviewID, "session_id", orch.SessionID(), "error", err)
}

// readLoop parses candidate commands until the connection drops, which
// abandons the session via cancel.
func (s *Server) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, orch *interview.Orchestrator, sink *wsSink, remote string) {
	defer cancel()

	log := trace.Logger(ctx)
	rl := &rateLimiter{}

	for {
		var raw json.RawMessage
		if err := wsjson.Read(ctx, conn, &raw); err != nil {
			log.Debug("websocket read error", "error", err)
			return
		}

		if !rl.allow() {
			log.Warn("rate limit exceeded", "remote", remote)
			_ = wsjson.Write(ctx, conn, ErrorMessage{
				Type:    "error",
				Message: "rate limit exceeded",
			})
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		mctx := ctx
		if tc, ok := trace.ExtractFromJSON(raw); ok {
			mctx = trace.WithContext(ctx, tc)
		}

		switch msg.Type {
		case "intro_ack":
			orch.AcknowledgeIntro()
		case "stop_recording":
			orch.StopRecording()
		case "set_response":
			orch.SetResponse(msg.Text)
		case "confirm_response":
			orch.ConfirmResponse()
		case "playback_done":
			sink.playbackDone()
		default:
			trace.Logger(mctx).Debug("unknown message type", "type", msg.Type)
		}
	}
}

// writeEvent maps an orchestrator event to its wire message.
func writeEvent(ctx context.Context, conn *websocket.Conn, ev interview.Event) error {
	switch ev.Kind {
	case interview.KindState:
		return wsjson.Write(ctx, conn, StateMessage{
			Type: "state", State: ev.State.String(), Index: ev.Index, Total: ev.Total,
		})
	case interview.KindIntro:
		return wsjson.Write(ctx, conn, IntroMessage{Type: "intro", Text: ev.Text, Total: ev.Total})
	case interview.KindQuestion:
		return wsjson.Write(ctx, conn, QuestionMessage{
			Type: "question", Index: ev.Index, Total: ev.Total,
			ID: ev.Question.ID, Text: ev.Question.Text,
		})
	case interview.KindTranscript:
		return wsjson.Write(ctx, conn, TranscriptMessage{Type: "transcript", Index: ev.Index, Text: ev.Text})
	case interview.KindTick:
		return wsjson.Write(ctx, conn, TickMessage{Type: "tick", Remaining: ev.Remaining})
	case interview.KindNotice:
		return wsjson.Write(ctx, conn, NoticeMessage{Type: "notice", Message: ev.Text})
	}
	return nil
}

// sessionRecorder adapts a capture.Manager to the interview.Recorder
// interface.
type sessionRecorder struct {
	mgr *capture.Manager
}

func (r *sessionRecorder) Start(ctx context.Context) (interview.Recording, error) {
	h, err := r.mgr.Start(ctx)
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (r *sessionRecorder) Release() { r.mgr.Release() }
