package cognitive

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// memoryCapacity bounds the retained-observation buffer. Eviction is
// strict FIFO once the capacity is exceeded.
const memoryCapacity = 100

// admissionThreshold gates memory retention on cycle significance.
const admissionThreshold = 0.5

// MemoryItem is one retained observation.
type MemoryItem struct {
	ID           string    `json:"id"`
	Content      string    `json:"content"`
	Importance   float64   `json:"importance"`
	Timestamp    time.Time `json:"timestamp"`
	Associations []string  `json:"associations"`
}

// MemoryBuffer is a bounded, insertion-ordered buffer of retained
// observations, admission-gated by significance.
type MemoryBuffer struct {
	items    []MemoryItem
	capacity int
}

// NewMemoryBuffer creates a buffer with the standard capacity.
func NewMemoryBuffer() *MemoryBuffer {
	return &MemoryBuffer{capacity: memoryCapacity}
}

// Consider admits a memory item when the cycle's significance, the mean
// of all activations, exceeds the threshold. Returns the admitted item,
// or nil when the cycle was not significant enough.
func (b *MemoryBuffer) Consider(taskCategory, context string, fastActivations, deepActivations []float64) *MemoryItem {
	var total float64
	for _, a := range fastActivations {
		total += a
	}
	for _, a := range deepActivations {
		total += a
	}
	count := len(fastActivations) + len(deepActivations)
	if count == 0 {
		return nil
	}

	significance := total / float64(count)
	if significance <= admissionThreshold {
		return nil
	}

	item := MemoryItem{
		ID:           uuid.New().String(),
		Content:      fmt.Sprintf("%s: %s", taskCategory, context),
		Importance:   significance,
		Timestamp:    time.Now(),
		Associations: []string{taskCategory},
	}
	b.items = append(b.items, item)
	if len(b.items) > b.capacity {
		b.items = b.items[1:]
	}
	return &item
}

// Clear empties the buffer unconditionally.
func (b *MemoryBuffer) Clear() {
	b.items = nil
}

// Len returns the number of retained items.
func (b *MemoryBuffer) Len() int { return len(b.items) }

// Items returns a copy of the retained items in insertion order.
func (b *MemoryBuffer) Items() []MemoryItem {
	out := make([]MemoryItem, len(b.items))
	copy(out, b.items)
	return out
}

// MeanImportance returns the average importance of retained items,
// 0 when the buffer is empty.
func (b *MemoryBuffer) MeanImportance() float64 {
	if len(b.items) == 0 {
		return 0
	}
	var total float64
	for _, item := range b.items {
		total += item.Importance
	}
	return total / float64(len(b.items))
}
