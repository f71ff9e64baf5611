// Package voice turns a stream of speech-to-text events into assistant
// turns. Interim transcripts are echoed back, a final transcript runs one
// turn, and a cancel discards whatever is pending or in flight.
package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
)

// Inbound event types.
const (
	EventTranscript = "transcript"
	EventCancel     = "cancel"
	EventError      = "error"
)

// Outbound frame types.
const (
	FrameInterim   = "interim"
	FrameThinking  = "thinking"
	FrameReply     = "reply"
	FrameCancelled = "cancelled"
	FrameBusy      = "busy"
	FrameError     = "error"
)

const emptyFinal = "I didn't catch that. Could you say it again?"

// Event is one message from the capture side.
type Event struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript,omitempty"`
	IsFinal    bool   `json:"is_final,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Frame is one message back to the capture side.
type Frame struct {
	Type       string `json:"type"`
	Transcript string `json:"transcript,omitempty"`
	Reply      string `json:"reply,omitempty"`
	Result     any    `json:"result,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TurnFunc runs one utterance and returns the spoken reply plus a payload
// for the client.
type TurnFunc func(ctx context.Context, utterance string) (reply string, result any, err error)

// EmitFunc delivers a frame. Calls are serialized by the Session.
type EmitFunc func(Frame) error

// Session is the state of one capture stream. At most one turn runs at a
// time; a final transcript that arrives while a turn is running is
// answered with a busy frame.
type Session struct {
	turn   TurnFunc
	logger *slog.Logger

	emitMu sync.Mutex
	emit   EmitFunc

	mu       sync.Mutex
	pending  string
	inflight *inflightTurn
	wg       sync.WaitGroup
}

type inflightTurn struct {
	cancel context.CancelFunc
}

// NewSession builds a Session. A nil logger uses slog.Default.
func NewSession(turn TurnFunc, emit EmitFunc, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{turn: turn, emit: emit, logger: logger}
}

// Handle applies one event. Turns run on their own goroutine derived from
// ctx so a later cancel can stop them; Handle itself does not block on
// the model.
func (s *Session) Handle(ctx context.Context, ev Event) error {
	switch ev.Type {
	case EventTranscript, "":
		if !ev.IsFinal {
			s.mu.Lock()
			s.pending = ev.Transcript
			s.mu.Unlock()
			return s.send(Frame{Type: FrameInterim, Transcript: ev.Transcript})
		}
		return s.final(ctx, ev.Transcript)

	case EventCancel:
		s.mu.Lock()
		s.pending = ""
		s.stopLocked()
		s.mu.Unlock()
		return s.send(Frame{Type: FrameCancelled})

	case EventError:
		s.mu.Lock()
		s.pending = ""
		s.mu.Unlock()
		s.logger.Warn("voice capture error", "error", ev.Error)
		return s.send(Frame{Type: FrameError, Error: ev.Error})

	default:
		return s.send(Frame{Type: FrameError, Error: "unknown event type " + ev.Type})
	}
}

func (s *Session) final(ctx context.Context, transcript string) error {
	text := strings.TrimSpace(transcript)
	s.mu.Lock()
	if s.inflight != nil {
		s.mu.Unlock()
		return s.send(Frame{Type: FrameBusy, Transcript: text})
	}
	s.pending = ""
	if text == "" {
		s.mu.Unlock()
		return s.send(Frame{Type: FrameReply, Reply: emptyFinal})
	}
	turnCtx, cancel := context.WithCancel(ctx)
	t := &inflightTurn{cancel: cancel}
	s.inflight = t
	s.wg.Add(1)
	s.mu.Unlock()

	if err := s.send(Frame{Type: FrameThinking, Transcript: text}); err != nil {
		cancel()
		s.finish(turnCtx, t)
		s.wg.Done()
		return err
	}

	go func() {
		defer s.wg.Done()
		reply, result, err := s.turn(turnCtx, text)
		if !s.finish(turnCtx, t) {
			return
		}
		if err != nil {
			s.logger.Error("voice turn failed", "error", err)
			_ = s.send(Frame{Type: FrameError, Transcript: text, Error: "Sorry, something went wrong. Please try again."})
			return
		}
		_ = s.send(Frame{Type: FrameReply, Transcript: text, Reply: reply, Result: result})
	}()
	return nil
}

// finish clears t as the in-flight turn and reports whether its result
// should still be delivered.
func (s *Session) finish(turnCtx context.Context, t *inflightTurn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight == t {
		s.inflight = nil
	}
	cancelled := errors.Is(turnCtx.Err(), context.Canceled)
	t.cancel()
	return !cancelled
}

func (s *Session) stopLocked() {
	if s.inflight != nil {
		s.inflight.cancel()
		s.inflight = nil
	}
}

// Pending returns the latest interim transcript not yet finalized.
func (s *Session) Pending() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Close cancels any running turn and waits for it to return.
func (s *Session) Close() {
	s.mu.Lock()
	s.stopLocked()
	s.pending = ""
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) send(f Frame) error {
	s.emitMu.Lock()
	defer s.emitMu.Unlock()
	return s.emit(f)
}
