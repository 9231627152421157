package service

import (
	"context"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/guiperry/KNIRVCONTROLLER/internal/cognitive"
	"github.com/guiperry/KNIRVCONTROLLER/internal/gateway"
	"github.com/guiperry/KNIRVCONTROLLER/internal/host"
)

type captureSink struct {
	mu     sync.Mutex
	events []*gateway.Event
}

func (c *captureSink) Name() string { return "capture" }

func (c *captureSink) Connect(ctx context.Context) error { return nil }

func (c *captureSink) Close() error { return nil }

func (c *captureSink) Publish(ctx context.Context, ev *gateway.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureSink) kinds() []gateway.EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]gateway.EventKind, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Kind
	}
	return out
}

func newTestProcessor(t *testing.T, opts Options) *Processor {
	t.Helper()
	engine := cognitive.NewEngine("test-owner", zap.NewNop())
	engine.InitializeModules(4, 2)
	return New(engine, "test-owner", opts, zap.NewNop())
}

func TestProcessPublishesCycleEvent(t *testing.T) {
	sink := &captureSink{}
	hub := gateway.NewHub(zap.NewNop())
	hub.Register(sink)

	p := newTestProcessor(t, Options{Hub: hub})

	result := p.Process(context.Background(), cognitive.Input{
		SensoryData: []float64{0.2, 0.4, 0.6},
		Context:     "unit",
		TaskType:    "analysis",
	})
	if result.ReasoningResult == "" {
		t.Fatal("expected a populated result")
	}

	kinds := sink.kinds()
	if len(kinds) == 0 || kinds[0] != gateway.EventCycleComplete {
		t.Fatalf("expected cycle_complete event first, got %v", kinds)
	}
}

func TestProcessMalformedInputSkipsFanout(t *testing.T) {
	sink := &captureSink{}
	hub := gateway.NewHub(zap.NewNop())
	hub.Register(sink)

	p := newTestProcessor(t, Options{Hub: hub})

	nan := 0.0
	result := p.Process(context.Background(), cognitive.Input{
		SensoryData: []float64{nan / nan},
		TaskType:    "broken",
	})
	if result.ReasoningResult != "" {
		t.Fatalf("expected empty result, got %q", result.ReasoningResult)
	}
	if got := sink.kinds(); len(got) != 0 {
		t.Fatalf("expected no events for malformed input, got %v", got)
	}
}

func TestProcessWithoutCollaborators(t *testing.T) {
	p := newTestProcessor(t, Options{})

	result := p.Process(context.Background(), cognitive.Input{
		SensoryData: []float64{0.5, 0.5},
		TaskType:    "solo",
	})
	if result.ReasoningResult == "" {
		t.Fatal("pipeline should run with every collaborator absent")
	}
}

func TestProfileSnapshotIsIsolated(t *testing.T) {
	p := newTestProcessor(t, Options{})
	p.SetMetric(context.Background(), "creativity", 0.9)

	snap := p.ProfileSnapshot()
	snap.Metrics["creativity"] = 0.0

	again := p.ProfileSnapshot()
	if again.Metrics["creativity"] != 0.9 {
		t.Fatalf("snapshot mutation leaked into profile: %v", again.Metrics["creativity"])
	}
}

func TestFeedbackEventPublished(t *testing.T) {
	sink := &captureSink{}
	hub := gateway.NewHub(zap.NewNop())
	hub.Register(sink)

	p := newTestProcessor(t, Options{Hub: hub})
	p.Process(context.Background(), cognitive.Input{
		SensoryData: []float64{0.3},
		TaskType:    "creative",
	})
	p.ApplyFeedback(context.Background(), 0.8)

	var sawFeedback bool
	for _, k := range sink.kinds() {
		if k == gateway.EventFeedback {
			sawFeedback = true
		}
	}
	if !sawFeedback {
		t.Fatal("expected a feedback_applied event")
	}
}

func TestCyclesWithoutStore(t *testing.T) {
	p := newTestProcessor(t, Options{})
	if _, err := p.Cycles(context.Background(), 10); err != ErrNoStore {
		t.Fatalf("expected ErrNoStore, got %v", err)
	}
}

func TestSimilarCyclesWithoutVectors(t *testing.T) {
	p := newTestProcessor(t, Options{})
	if _, err := p.SimilarCycles(context.Background(), 5); err != ErrNoVectors {
		t.Fatalf("expected ErrNoVectors, got %v", err)
	}
}

func TestHostLifecycleThroughProcessor(t *testing.T) {
	link := host.NewLink(zap.NewNop())
	p := newTestProcessor(t, Options{Link: link})

	msg, err := p.ConnectHost(context.Background(), "desktop-9")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if msg.Type != "capabilities" {
		t.Fatalf("first message type = %q", msg.Type)
	}

	if _, err := p.EnqueueHostMessage(context.Background(), "status", `{"ok":true}`); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	drained := p.DrainHostMessages()
	if len(drained) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(drained))
	}
	if len(p.DrainHostMessages()) != 0 {
		t.Fatal("queue should be empty after drain")
	}

	status, desktop := p.HostStatus()
	if status != host.StatusConnected || desktop != "desktop-9" {
		t.Fatalf("status = %s desktop = %s", status, desktop)
	}
}

func TestHostOperationsWithoutLink(t *testing.T) {
	p := newTestProcessor(t, Options{})

	if _, err := p.ConnectHost(context.Background(), "x"); err == nil {
		t.Fatal("expected error without a link")
	}
	if msgs := p.DrainHostMessages(); len(msgs) != 0 {
		t.Fatalf("expected empty drain, got %d", len(msgs))
	}
	status, _ := p.HostStatus()
	if status != host.StatusDisconnected {
		t.Fatalf("status = %s", status)
	}
}
