package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCORSMiddleware(t *testing.T) {
	handler := corsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Test OPTIONS request
	req := httptest.NewRequest("OPTIONS", "/test", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("OPTIONS status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin = %q, want %q", v, "*")
	}
	if v := rec.Header().Get("Access-Control-Allow-Methods"); v != "GET, POST, OPTIONS" {
		t.Errorf("CORS methods = %q, want %q", v, "GET, POST, OPTIONS")
	}

	// Test regular request
	req = httptest.NewRequest("GET", "/test", http.NoBody)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET status = %d, want %d", rec.Code, http.StatusOK)
	}
	if v := rec.Header().Get("Access-Control-Allow-Origin"); v != "*" {
		t.Errorf("CORS origin on GET = %q, want %q", v, "*")
	}
}

func TestHealthz(t *testing.T) {
	s := New(Options{})
	req := httptest.NewRequest("GET", "/healthz", http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("json.Unmarshal error: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := &rateLimiter{}

	for i := 0; i < RateLimitMessages; i++ {
		if !rl.allow() {
			t.Fatalf("message %d should be allowed", i)
		}
	}
	if rl.allow() {
		t.Error("message past the limit should be rejected")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := &rateLimiter{}

	// Backdate a full window of timestamps; they should all be pruned.
	old := time.Now().Add(-2 * RateLimitWindow)
	for i := 0; i < RateLimitMessages; i++ {
		rl.timestamps = append(rl.timestamps, old)
	}

	if !rl.allow() {
		t.Error("message should be allowed after window slides")
	}
}

func TestClientMessageParsing(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantType string
		wantText string
	}{
		{"intro ack", `{"type": "intro_ack"}`, "intro_ack", ""},
		{"stop recording", `{"type": "stop_recording"}`, "stop_recording", ""},
		{"set response", `{"type": "set_response", "text": "my answer"}`, "set_response", "my answer"},
		{"confirm", `{"type": "confirm_response"}`, "confirm_response", ""},
		{"playback done", `{"type": "playback_done"}`, "playback_done", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg clientMessage
			if err := json.Unmarshal([]byte(tt.input), &msg); err != nil {
				t.Fatalf("json.Unmarshal error: %v", err)
			}
			if msg.Type != tt.wantType {
				t.Errorf("type = %q, want %q", msg.Type, tt.wantType)
			}
			if msg.Text != tt.wantText {
				t.Errorf("text = %q, want %q", msg.Text, tt.wantText)
			}
		})
	}
}

func TestMessageTypes(t *testing.T) {
	tests := []struct {
		name    string
		msg     interface{}
		typeVal string
	}{
		{
			"state",
			StateMessage{Type: "state", State: "playing", Index: 1, Total: 3},
			"state",
		},
		{
			"question",
			QuestionMessage{Type: "question", Index: 0, Total: 3, ID: "q1", Text: "Tell me about yourself."},
			"question",
		},
		{
			"transcript",
			TranscriptMessage{Type: "transcript", Index: 0, Text: "I am a developer."},
			"transcript",
		},
		{
			"tick",
			TickMessage{Type: "tick", Remaining: 480},
			"tick",
		},
		{
			"notice",
			NoticeMessage{Type: "notice", Message: "Microphone is unavailable."},
			"notice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.msg)
			if err != nil {
				t.Fatalf("json.Marshal error: %v", err)
			}

			var base struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(data, &base); err != nil {
				t.Fatalf("json.Unmarshal error: %v", err)
			}
			if base.Type != tt.typeVal {
				t.Errorf("type = %q, want %q", base.Type, tt.typeVal)
			}
		})
	}
}

func TestSinkPlaybackDoneWithoutWaiter(t *testing.T) {
	s := newWSSink(nil)
	// Should not panic when no play is outstanding.
	s.playbackDone()
	s.playbackDone()
}
