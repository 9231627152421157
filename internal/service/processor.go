package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/guiperry/KNIRVCONTROLLER/internal/cognitive"
	"github.com/guiperry/KNIRVCONTROLLER/internal/gateway"
	"github.com/guiperry/KNIRVCONTROLLER/internal/host"
	"github.com/guiperry/KNIRVCONTROLLER/internal/recall"
	"github.com/guiperry/KNIRVCONTROLLER/internal/store"
	"github.com/guiperry/KNIRVCONTROLLER/internal/vectorstore"
)

// ErrNoStore is returned for history queries when PostgreSQL is not configured.
var ErrNoStore = fmt.Errorf("cycle store not configured")

// ErrNoVectors is returned for similarity queries when Qdrant is not configured.
var ErrNoVectors = fmt.Errorf("trace archive not configured")

// Processor owns one cognitive engine behind a mutex and fans results
// out to the optional collaborators. Every collaborator is best-effort:
// a failure is logged and never blocks or alters the pipeline result.
type Processor struct {
	engine *cognitive.Engine
	mu     sync.Mutex

	ownerID string
	cycles  *store.Store
	graph   *recall.Graph
	vectors *vectorstore.Client
	link    *host.Link
	bus     *host.Bus
	hub     *gateway.Hub
	logger  *zap.Logger
}

// Options carries the optional collaborators. Nil fields disable the
// corresponding fan-out.
type Options struct {
	Cycles  *store.Store
	Graph   *recall.Graph
	Vectors *vectorstore.Client
	Link    *host.Link
	Bus     *host.Bus
	Hub     *gateway.Hub
}

// New wraps an engine with its collaborators.
func New(engine *cognitive.Engine, ownerID string, opts Options, logger *zap.Logger) *Processor {
	return &Processor{
		engine:  engine,
		ownerID: ownerID,
		cycles:  opts.Cycles,
		graph:   opts.Graph,
		vectors: opts.Vectors,
		link:    opts.Link,
		bus:     opts.Bus,
		hub:     opts.Hub,
		logger:  logger,
	}
}

// Process runs one pipeline cycle and fans the result out.
func (p *Processor) Process(ctx context.Context, input cognitive.Input) cognitive.Result {
	p.mu.Lock()
	result, admitted := p.engine.Process(input)
	var attention []float64
	if result.ReasoningResult != "" {
		attention = append(attention, p.engine.State().AttentionFocus...)
	}
	p.mu.Unlock()

	if result.ReasoningResult == "" {
		// Malformed input: the defined empty result, nothing to persist.
		return result
	}

	p.persistCycle(ctx, input, result)
	p.mirrorMemory(ctx, admitted)
	p.archiveAttention(ctx, input, attention)

	if p.hub != nil {
		p.hub.Publish(ctx, &gateway.Event{
			Kind:   gateway.EventCycleComplete,
			Title:  input.TaskType,
			Detail: result.ReasoningResult,
		})
		if admitted != nil {
			p.hub.Publish(ctx, &gateway.Event{
				Kind:     gateway.EventMemoryAdmitted,
				Title:    admitted.Content,
				Detail:   fmt.Sprintf("importance %.3f", admitted.Importance),
				Priority: 1,
			})
		}
	}
	return result
}

func (p *Processor) persistCycle(ctx context.Context, input cognitive.Input, result cognitive.Result) {
	if p.cycles == nil {
		return
	}
	rec := &store.CycleRecord{
		OwnerID:         p.ownerID,
		TaskType:        input.TaskType,
		Context:         input.Context,
		Reasoning:       result.ReasoningResult,
		Confidence:      result.Confidence,
		Influence:       result.PersonalityInfluence,
		AdaptationScore: result.AdaptationScore,
		ProcessingMS:    result.ProcessingTime,
		FastActivations: result.FastActivations,
		DeepActivations: result.DeepActivations,
	}
	if err := p.cycles.SaveCycle(ctx, rec); err != nil {
		p.logger.Warn("cycle persistence failed", zap.Error(err))
	}
}

func (p *Processor) mirrorMemory(ctx context.Context, admitted *cognitive.MemoryItem) {
	if p.graph == nil || admitted == nil {
		return
	}
	if err := p.graph.Record(ctx, p.ownerID, admitted); err != nil {
		p.logger.Warn("memory graph mirror failed",
			zap.String("memory", admitted.ID), zap.Error(err))
	}
}

func (p *Processor) archiveAttention(ctx context.Context, input cognitive.Input, attention []float64) {
	if p.vectors == nil || len(attention) == 0 {
		return
	}
	vec := make([]float32, len(attention))
	for i, v := range attention {
		vec[i] = float32(v)
	}
	payload := map[string]string{
		"task_type": input.TaskType,
		"context":   input.Context,
	}
	id := uuid.New().String()
	if err := p.vectors.RecordTrace(ctx, vectorstore.TraceCollection, id, vec, payload); err != nil {
		p.logger.Warn("attention trace archive failed", zap.Error(err))
	}
}

// InitializeModules replaces the engine's unit pools.
func (p *Processor) InitializeModules(fastCount, deepCount int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.InitializeModules(fastCount, deepCount)
}

// ModelInfo reports pool sizes and parameter slots.
func (p *Processor) ModelInfo() cognitive.ModelInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.ModelInfo()
}

// SetMetric stores a personality metric and snapshots the profile to
// PostgreSQL when configured.
func (p *Processor) SetMetric(ctx context.Context, name string, value float64) {
	p.mu.Lock()
	p.engine.SetMetric(name, value)
	profile := p.profileCopyLocked()
	p.mu.Unlock()

	if p.cycles != nil {
		if err := p.cycles.SaveProfile(ctx, &profile); err != nil {
			p.logger.Warn("profile snapshot failed", zap.Error(err))
		}
	}
}

// ProfileSnapshot returns a copy of the personality profile.
func (p *Processor) ProfileSnapshot() cognitive.PersonalityProfile {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.profileCopyLocked()
}

// profileCopyLocked deep-copies the profile. Caller holds p.mu.
func (p *Processor) profileCopyLocked() cognitive.PersonalityProfile {
	src := p.engine.Profile()
	snap := *src
	snap.Metrics = make(map[string]float64, len(src.Metrics))
	for k, v := range src.Metrics {
		snap.Metrics[k] = v
	}
	snap.History = append([]cognitive.AdaptationEvent(nil), src.History...)
	return snap
}

// ApplyFeedback records user feedback, persists the updated event and
// notifies the telemetry sinks.
func (p *Processor) ApplyFeedback(ctx context.Context, feedback float64) {
	p.mu.Lock()
	p.engine.ApplyFeedback(feedback)
	var last *cognitive.AdaptationEvent
	if history := p.engine.Profile().History; len(history) > 0 {
		ev := history[len(history)-1]
		last = &ev
	}
	profile := p.profileCopyLocked()
	p.mu.Unlock()

	if p.cycles != nil && last != nil {
		if err := p.cycles.SaveAdaptationEvent(ctx, p.ownerID, *last); err != nil {
			p.logger.Warn("adaptation event persistence failed", zap.Error(err))
		}
		if err := p.cycles.SaveProfile(ctx, &profile); err != nil {
			p.logger.Warn("profile snapshot failed", zap.Error(err))
		}
	}
	if p.hub != nil {
		p.hub.Publish(ctx, &gateway.Event{
			Kind:   gateway.EventFeedback,
			Title:  "user feedback applied",
			Detail: fmt.Sprintf("feedback %.2f", feedback),
		})
	}
}

// SetMode stores a processing mode, defaulting unknown names.
func (p *Processor) SetMode(name string) cognitive.ProcessingMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.SetMode(name)
}

// StateSnapshot returns a copy of the cognitive state with the retained
// memory items inlined.
func (p *Processor) StateSnapshot() StateSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := p.engine.State()
	return StateSnapshot{
		CurrentTask:    st.CurrentTask,
		AttentionFocus: append([]float64(nil), st.AttentionFocus...),
		MemoryBuffer:   st.Memory.Items(),
		EmotionalState: st.Emotional,
		ProcessingMode: st.Mode,
	}
}

// StateSnapshot is a point-in-time view of the engine's session state.
type StateSnapshot struct {
	CurrentTask    string                   `json:"current_task"`
	AttentionFocus []float64                `json:"attention_focus"`
	MemoryBuffer   []cognitive.MemoryItem   `json:"memory_buffer"`
	EmotionalState cognitive.EmotionalState `json:"emotional_state"`
	ProcessingMode cognitive.ProcessingMode `json:"processing_mode"`
}

// ClearMemory empties the retention buffer.
func (p *Processor) ClearMemory() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.engine.ClearMemory()
}

// MemorySummary reports the retention buffer and current affect.
func (p *Processor) MemorySummary() cognitive.MemorySummary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.MemorySummary()
}

// LoadWeights loads a raw parameter buffer into the weight bank.
func (p *Processor) LoadWeights(data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Weights().LoadFrom(data)
}

// WeightsInfo reports the weight bank contents.
func (p *Processor) WeightsInfo() cognitive.WeightsInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.engine.Weights().Info()
}

// SimilarCycles searches the trace archive for past cycles whose
// attention focus is nearest the current one.
func (p *Processor) SimilarCycles(ctx context.Context, limit int) ([]vectorstore.Trace, error) {
	if p.vectors == nil {
		return nil, ErrNoVectors
	}
	if limit <= 0 {
		limit = 5
	}

	p.mu.Lock()
	focus := p.engine.State().AttentionFocus
	vec := make([]float32, len(focus))
	for i, v := range focus {
		vec[i] = float32(v)
	}
	p.mu.Unlock()

	return p.vectors.SimilarTraces(ctx, vectorstore.TraceCollection, vec, uint64(limit))
}

// Cycles returns persisted cycle history, newest first.
func (p *Processor) Cycles(ctx context.Context, limit int) ([]*store.CycleRecord, error) {
	if p.cycles == nil {
		return nil, ErrNoStore
	}
	return p.cycles.ListCycles(ctx, p.ownerID, limit)
}

// ConnectHost binds the host link to a desktop and announces it.
func (p *Processor) ConnectHost(ctx context.Context, desktopID string) (host.Message, error) {
	if p.link == nil {
		return host.Message{}, fmt.Errorf("host link not configured")
	}
	msg := p.link.Connect(desktopID)

	if p.bus != nil {
		if err := p.bus.Publish(ctx, desktopID, msg); err != nil {
			p.logger.Warn("host bus publish failed", zap.Error(err))
		}
	}
	if p.hub != nil {
		p.hub.Publish(ctx, &gateway.Event{
			Kind:   gateway.EventHostConnected,
			Title:  "desktop connected",
			Detail: desktopID,
		})
	}
	return msg, nil
}

// EnqueueHostMessage queues a host message and mirrors it to the bus.
func (p *Processor) EnqueueHostMessage(ctx context.Context, msgType, payload string) (string, error) {
	if p.link == nil {
		return "", fmt.Errorf("host link not configured")
	}
	id := p.link.Enqueue(msgType, payload)

	if p.bus != nil && p.link.DesktopID() != "" {
		msg := host.Message{ID: id, Type: msgType, Payload: payload}
		if err := p.bus.Publish(ctx, p.link.DesktopID(), msg); err != nil {
			p.logger.Warn("host bus publish failed", zap.Error(err))
		}
	}
	return id, nil
}

// DrainHostMessages returns and clears the pending host queue.
func (p *Processor) DrainHostMessages() []host.Message {
	if p.link == nil {
		return []host.Message{}
	}
	return p.link.Drain()
}

// HostStatus reports the link state for health endpoints.
func (p *Processor) HostStatus() (host.ConnectionStatus, string) {
	if p.link == nil {
		return host.StatusDisconnected, ""
	}
	return p.link.Status(), p.link.DesktopID()
}
