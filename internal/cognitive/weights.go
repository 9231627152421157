package cognitive

import (
	"encoding/binary"
	"fmt"
	"math"
)

// nominalParameterSlots is the advertised parameter count of the model
// the bank is sized for. Storage is only allocated when a buffer is
// actually loaded.
const nominalParameterSlots = 562_741_762

// minWeightsBytes is the smallest byte buffer accepted by LoadFrom.
const minWeightsBytes = 1024

// WeightBank is opaque parameter storage. The pipeline never consumes
// the values; the bank only loads, sizes and reports them.
type WeightBank struct {
	slots int
	data  []float32
}

// NewWeightBank creates an unloaded bank advertising the nominal slot count.
func NewWeightBank() *WeightBank {
	return &WeightBank{slots: nominalParameterSlots}
}

// LoadFrom decodes a raw little-endian float32 buffer into the bank.
// Buffers below the size floor are rejected.
func (b *WeightBank) LoadFrom(data []byte) error {
	if len(data) < minWeightsBytes {
		return fmt.Errorf("weights buffer too small: %d bytes (minimum %d)", len(data), minWeightsBytes)
	}

	count := len(data) / 4
	b.data = make([]float32, count)
	for i := 0; i < count; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4:])
		b.data[i] = math.Float32frombits(bits)
	}
	if count > b.slots {
		b.slots = count
	}
	return nil
}

// Loaded reports whether a parameter buffer has been loaded.
func (b *WeightBank) Loaded() bool { return len(b.data) > 0 }

// Slots returns the advertised parameter slot count.
func (b *WeightBank) Slots() int { return b.slots }

// WeightsInfo describes the bank's current contents.
type WeightsInfo struct {
	TotalParameters int     `json:"total_parameters"`
	MemoryUsageMB   float64 `json:"memory_usage_mb"`
	Loaded          bool    `json:"loaded"`
}

// Info reports the loaded parameter count and resident memory usage.
func (b *WeightBank) Info() WeightsInfo {
	return WeightsInfo{
		TotalParameters: len(b.data),
		MemoryUsageMB:   float64(len(b.data)*4) / (1024.0 * 1024.0),
		Loaded:          b.Loaded(),
	}
}
