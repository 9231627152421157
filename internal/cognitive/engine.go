package cognitive

import (
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// ProcessingMode is a stored configuration flag. It does not alter the
// pipeline arithmetic; it is an extension point recorded per session.
type ProcessingMode string

const (
	ModeAnalytical    ProcessingMode = "analytical"
	ModeCreative      ProcessingMode = "creative"
	ModeReactive      ProcessingMode = "reactive"
	ModeContemplative ProcessingMode = "contemplative"
)

// ParseMode maps a mode name to its enumerated value. Unrecognized names
// default to analytical without error.
func ParseMode(name string) ProcessingMode {
	switch ProcessingMode(name) {
	case ModeCreative, ModeReactive, ModeContemplative:
		return ProcessingMode(name)
	default:
		return ModeAnalytical
	}
}

// attentionSize is the fixed length of the attention focus vector.
const attentionSize = 10

// CognitiveState aggregates the engine's per-session mutable state.
type CognitiveState struct {
	CurrentTask    string         `json:"current_task"`
	AttentionFocus []float64      `json:"attention_focus"`
	Memory         *MemoryBuffer  `json:"-"`
	Emotional      EmotionalState `json:"emotional_state"`
	Mode           ProcessingMode `json:"processing_mode"`
}

// Input is one sensory request into the pipeline.
type Input struct {
	SensoryData []float64 `json:"sensory_data"`
	Context     string    `json:"context"`
	TaskType    string    `json:"task_type"`
}

// valid rejects structurally broken input: non-finite sensory values
// cannot flow through the activation arithmetic.
func (in Input) valid() bool {
	for _, v := range in.SensoryData {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Result is the per-cycle reasoning summary.
type Result struct {
	ReasoningResult      string    `json:"reasoning_result"`
	Confidence           float64   `json:"confidence"`
	ProcessingTime       float64   `json:"processing_time"`
	FastActivations      []float64 `json:"fast_activations"`
	DeepActivations      []float64 `json:"deep_activations"`
	PersonalityInfluence float64   `json:"personality_influence"`
	AdaptationScore      float64   `json:"adaptation_score"`
}

// MemorySummary snapshots the retention buffer alongside the affect
// fields the original summary carried.
type MemorySummary struct {
	Count          int     `json:"memory_count"`
	MeanImportance float64 `json:"average_importance"`
	Valence        float64 `json:"emotional_valence"`
	CurrentTask    string  `json:"current_task"`
}

// ModelInfo describes the configured module pools.
type ModelInfo struct {
	TotalParameterSlots int `json:"total_parameter_slots"`
	FastModuleCount     int `json:"fast_module_count"`
	DeepModuleCount     int `json:"deep_module_count"`
}

// Engine orchestrates the cognitive pipeline. One engine exclusively
// owns one state aggregate, one profile and one module pool; it is not
// safe for concurrent use. Callers serialize access.
type Engine struct {
	pool    *ModulePool
	profile *PersonalityProfile
	state   *CognitiveState
	weights *WeightBank
	logger  *zap.Logger
}

// NewEngine constructs a fully-initialized engine: empty pools, default
// affect baseline and an empty retention buffer. No lazy field population.
func NewEngine(ownerID string, logger *zap.Logger) *Engine {
	return &Engine{
		pool:    NewModulePool(),
		profile: NewPersonalityProfile(ownerID),
		weights: NewWeightBank(),
		state: &CognitiveState{
			AttentionFocus: make([]float64, attentionSize),
			Memory:         NewMemoryBuffer(),
			Emotional: EmotionalState{
				Valence:   0.0,
				Arousal:   0.5,
				Dominance: 0.5,
				Stability: 0.8,
			},
			Mode: ModeAnalytical,
		},
		logger: logger,
	}
}

// InitializeModules replaces the unit pools. Callable repeatedly.
func (e *Engine) InitializeModules(fastCount, deepCount int) {
	e.pool.Initialize(fastCount, deepCount)
	e.logger.Info("modules initialized",
		zap.Int("fast", fastCount),
		zap.Int("deep", deepCount))
}

// Process runs the full cognitive pipeline for one input. Malformed
// input yields the zero Result; the engine never faults.
func (e *Engine) Process(input Input) (Result, *MemoryItem) {
	if !input.valid() {
		e.logger.Warn("rejected malformed cognitive input",
			zap.String("task", input.TaskType))
		return Result{}, nil
	}

	start := time.Now()

	e.state.CurrentTask = input.TaskType
	e.updateAttention(input.SensoryData)

	influence := e.profile.Influence(input.TaskType, input.Context)

	fast := e.pool.FastActivations(input.SensoryData, influence)

	emotionalModifier := e.state.Emotional.Valence*0.1 + 1.0
	deep := e.pool.DeepActivations(fast, emotionalModifier)

	e.state.Emotional.Update(fast, deep)

	admitted := e.state.Memory.Consider(input.TaskType, input.Context, fast, deep)

	confidence := Confidence(fast, deep, e.state.Emotional.Stability)
	adaptation := AdaptationScore(e.profile.History)

	result := Result{
		ReasoningResult:      e.reasoning(input.TaskType, fast, deep),
		Confidence:           confidence,
		ProcessingTime:       float64(time.Since(start).Microseconds()) / 1000.0,
		FastActivations:      fast,
		DeepActivations:      deep,
		PersonalityInfluence: influence,
		AdaptationScore:      adaptation,
	}
	return result, admitted
}

// updateAttention applies the EMA focus update for indices covered by
// the sensory input; the remainder of the vector is left unchanged.
func (e *Engine) updateAttention(sensory []float64) {
	for i := range e.state.AttentionFocus {
		if i < len(sensory) {
			e.state.AttentionFocus[i] = e.state.AttentionFocus[i]*0.8 + sensory[i]*0.2
		}
	}
}

// reasoning synthesizes the human-readable cycle summary.
func (e *Engine) reasoning(taskType string, fast, deep []float64) string {
	return fmt.Sprintf(
		"processed '%s' with %.1f%% sensory activation, %.1f%% planning depth, emotional valence: %.2f",
		taskType,
		mean(fast)*100.0,
		mean(deep)*100.0,
		e.state.Emotional.Valence,
	)
}

// SetMode stores a processing mode, silently defaulting unknown names.
func (e *Engine) SetMode(name string) ProcessingMode {
	e.state.Mode = ParseMode(name)
	return e.state.Mode
}

// SetMetric stores a clamped personality metric.
func (e *Engine) SetMetric(name string, value float64) {
	e.profile.SetMetric(name, value)
}

// ApplyFeedback records user feedback against the most recent cycle.
func (e *Engine) ApplyFeedback(feedback float64) {
	e.profile.ApplyFeedback(feedback)
}

// Profile returns the personality profile for snapshotting.
func (e *Engine) Profile() *PersonalityProfile { return e.profile }

// State returns the cognitive state aggregate.
func (e *Engine) State() *CognitiveState { return e.state }

// Weights returns the opaque parameter bank.
func (e *Engine) Weights() *WeightBank { return e.weights }

// ClearMemory empties the retention buffer.
func (e *Engine) ClearMemory() {
	e.state.Memory.Clear()
}

// MemorySummary reports buffer size, mean importance and current affect.
func (e *Engine) MemorySummary() MemorySummary {
	return MemorySummary{
		Count:          e.state.Memory.Len(),
		MeanImportance: e.state.Memory.MeanImportance(),
		Valence:        e.state.Emotional.Valence,
		CurrentTask:    e.state.CurrentTask,
	}
}

// ModelInfo reports the configured pool sizes and parameter slots.
func (e *Engine) ModelInfo() ModelInfo {
	return ModelInfo{
		TotalParameterSlots: e.weights.Slots(),
		FastModuleCount:     e.pool.FastCount(),
		DeepModuleCount:     e.pool.DeepCount(),
	}
}
