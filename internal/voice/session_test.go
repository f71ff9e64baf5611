package voice

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// --- recorder ---

type recorder struct {
	mu     sync.Mutex
	frames []Frame
	got    chan Frame
}

func newRecorder() *recorder {
	return &recorder{got: make(chan Frame, 32)}
}

func (r *recorder) emit(f Frame) error {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
	r.got <- f
	return nil
}

func (r *recorder) next(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-r.got:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
		return Frame{}
	}
}

func (r *recorder) none(t *testing.T) {
	t.Helper()
	select {
	case f := <-r.got:
		t.Fatalf("unexpected frame %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func echoTurn(_ context.Context, utterance string) (string, any, error) {
	return "You said " + utterance, map[string]string{"utterance": utterance}, nil
}

// --- tests ---

func TestHandle_InterimEchoed(t *testing.T) {
	rec := newRecorder()
	s := NewSession(echoTurn, rec.emit, nil)
	defer s.Close()

	if err := s.Handle(context.Background(), Event{Type: EventTranscript, Transcript: "add a gal"}); err != nil {
		t.Fatal(err)
	}
	f := rec.next(t)
	if f.Type != FrameInterim || f.Transcript != "add a gal" {
		t.Errorf("frame = %+v, want interim", f)
	}
	if s.Pending() != "add a gal" {
		t.Errorf("Pending = %q", s.Pending())
	}
}

func TestHandle_FinalRunsTurn(t *testing.T) {
	rec := newRecorder()
	s := NewSession(echoTurn, rec.emit, nil)
	defer s.Close()

	s.Handle(context.Background(), Event{Transcript: "add a gal"})
	rec.next(t)
	if err := s.Handle(context.Background(), Event{Type: EventTranscript, Transcript: " add a gallon of milk ", IsFinal: true}); err != nil {
		t.Fatal(err)
	}

	if f := rec.next(t); f.Type != FrameThinking || f.Transcript != "add a gallon of milk" {
		t.Errorf("frame = %+v, want thinking", f)
	}
	f := rec.next(t)
	if f.Type != FrameReply || f.Reply != "You said add a gallon of milk" {
		t.Errorf("frame = %+v, want reply", f)
	}
	if s.Pending() != "" {
		t.Errorf("Pending = %q after final", s.Pending())
	}
}

func TestHandle_EmptyFinal(t *testing.T) {
	called := false
	rec := newRecorder()
	s := NewSession(func(context.Context, string) (string, any, error) {
		called = true
		return "", nil, nil
	}, rec.emit, nil)
	defer s.Close()

	s.Handle(context.Background(), Event{Transcript: "   ", IsFinal: true})
	if f := rec.next(t); f.Type != FrameReply || f.Reply != emptyFinal {
		t.Errorf("frame = %+v", f)
	}
	if called {
		t.Error("turn ran for an empty transcript")
	}
}

func TestHandle_CancelDiscardsPending(t *testing.T) {
	rec := newRecorder()
	s := NewSession(echoTurn, rec.emit, nil)
	defer s.Close()

	s.Handle(context.Background(), Event{Transcript: "clear my"})
	rec.next(t)
	s.Handle(context.Background(), Event{Type: EventCancel})
	if f := rec.next(t); f.Type != FrameCancelled {
		t.Errorf("frame = %+v, want cancelled", f)
	}
	if s.Pending() != "" {
		t.Errorf("Pending = %q after cancel", s.Pending())
	}
}

func TestHandle_CancelStopsInFlightTurn(t *testing.T) {
	started := make(chan struct{})
	stopped := make(chan struct{})
	rec := newRecorder()
	s := NewSession(func(ctx context.Context, _ string) (string, any, error) {
		close(started)
		<-ctx.Done()
		close(stopped)
		return "too late", nil, ctx.Err()
	}, rec.emit, nil)
	defer s.Close()

	s.Handle(context.Background(), Event{Transcript: "plan my week", IsFinal: true})
	rec.next(t) // thinking
	<-started

	s.Handle(context.Background(), Event{Type: EventCancel})
	if f := rec.next(t); f.Type != FrameCancelled {
		t.Errorf("frame = %+v, want cancelled", f)
	}
	<-stopped
	rec.none(t)

	// The session accepts a new turn afterwards.
	s.turn = echoTurn
	s.Handle(context.Background(), Event{Transcript: "hello", IsFinal: true})
	rec.next(t)
	if f := rec.next(t); f.Type != FrameReply {
		t.Errorf("frame = %+v, want reply", f)
	}
}

func TestHandle_BusyWhileTurnRuns(t *testing.T) {
	release := make(chan struct{})
	rec := newRecorder()
	s := NewSession(func(context.Context, string) (string, any, error) {
		<-release
		return "done", nil, nil
	}, rec.emit, nil)
	defer s.Close()

	s.Handle(context.Background(), Event{Transcript: "first", IsFinal: true})
	rec.next(t) // thinking
	s.Handle(context.Background(), Event{Transcript: "second", IsFinal: true})
	if f := rec.next(t); f.Type != FrameBusy || f.Transcript != "second" {
		t.Errorf("frame = %+v, want busy", f)
	}
	close(release)
	if f := rec.next(t); f.Type != FrameReply || f.Transcript != "first" {
		t.Errorf("frame = %+v, want reply to first", f)
	}
}

func TestHandle_TurnError(t *testing.T) {
	rec := newRecorder()
	s := NewSession(func(context.Context, string) (string, any, error) {
		return "", nil, errors.New("model unreachable")
	}, rec.emit, nil)
	defer s.Close()

	s.Handle(context.Background(), Event{Transcript: "hi", IsFinal: true})
	rec.next(t)
	if f := rec.next(t); f.Type != FrameError || f.Error == "" {
		t.Errorf("frame = %+v, want error", f)
	}
}

func TestHandle_CaptureError(t *testing.T) {
	rec := newRecorder()
	s := NewSession(echoTurn, rec.emit, nil)
	defer s.Close()

	s.Handle(context.Background(), Event{Transcript: "add"})
	rec.next(t)
	s.Handle(context.Background(), Event{Type: EventError, Error: "microphone disconnected"})
	if f := rec.next(t); f.Type != FrameError || f.Error != "microphone disconnected" {
		t.Errorf("frame = %+v", f)
	}
	if s.Pending() != "" {
		t.Error("pending transcript kept after capture error")
	}
}

func TestHandle_UnknownEvent(t *testing.T) {
	rec := newRecorder()
	s := NewSession(echoTurn, rec.emit, nil)
	defer s.Close()

	s.Handle(context.Background(), Event{Type: "shout"})
	if f := rec.next(t); f.Type != FrameError {
		t.Errorf("frame = %+v, want error", f)
	}
}

func TestClose_WaitsForTurn(t *testing.T) {
	rec := newRecorder()
	finished := false
	s := NewSession(func(ctx context.Context, _ string) (string, any, error) {
		<-ctx.Done()
		finished = true
		return "", nil, ctx.Err()
	}, rec.emit, nil)

	s.Handle(context.Background(), Event{Transcript: "hi", IsFinal: true})
	rec.next(t)
	s.Close()
	if !finished {
		t.Error("Close returned before the turn finished")
	}
	rec.none(t)
}
