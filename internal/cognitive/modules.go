package cognitive

// Weight buffer sizes per module tier. The buffers are opaque storage;
// the pipeline arithmetic never reads them.
const (
	fastWeightSlots = 1000
	deepWeightSlots = 2000

	defaultPlanningDepth = 5
)

// FastUnit is a sensory-tier processing unit.
type FastUnit struct {
	ID         int       `json:"id"`
	Weights    []float64 `json:"-"`
	Activation float64   `json:"activation"`
}

// DeepUnit is a planning-tier processing unit. PlanningDepth divides the
// aggregated fast-tier output and must stay positive.
type DeepUnit struct {
	ID            int       `json:"id"`
	Weights       []float64 `json:"-"`
	PlanningDepth int       `json:"planning_depth"`
	Activation    float64   `json:"activation"`
}

// ModulePool holds the two ordered unit tiers and computes per-cycle
// activations from sensory input and contextual modifiers.
type ModulePool struct {
	fast []FastUnit
	deep []DeepUnit
}

// NewModulePool creates an empty pool. Call Initialize to populate it.
func NewModulePool() *ModulePool {
	return &ModulePool{}
}

// Initialize replaces both unit collections. Safe to call repeatedly;
// every call yields fresh zero-activation units.
func (p *ModulePool) Initialize(fastCount, deepCount int) {
	p.fast = make([]FastUnit, 0, fastCount)
	for i := 0; i < fastCount; i++ {
		p.fast = append(p.fast, FastUnit{
			ID:      i,
			Weights: make([]float64, fastWeightSlots),
		})
	}

	p.deep = make([]DeepUnit, 0, deepCount)
	for i := 0; i < deepCount; i++ {
		p.deep = append(p.deep, DeepUnit{
			ID:            i,
			Weights:       make([]float64, deepWeightSlots),
			PlanningDepth: defaultPlanningDepth,
		})
	}
}

// FastActivations recomputes the fast tier from sensory input. An empty
// sensory sequence contributes a mean of 0 rather than faulting.
func (p *ModulePool) FastActivations(sensory []float64, personalityInfluence float64) []float64 {
	base := mean(sensory)
	out := make([]float64, len(p.fast))
	for i := range p.fast {
		activation := base * float64(i+1) / 10.0 * (1.0 + personalityInfluence*0.2)
		p.fast[i].Activation = activation
		out[i] = activation
	}
	return out
}

// DeepActivations recomputes the planning tier from fast-tier output
// scaled by the emotional modifier.
func (p *ModulePool) DeepActivations(fastActivations []float64, emotionalModifier float64) []float64 {
	var total float64
	for _, a := range fastActivations {
		total += a
	}

	out := make([]float64, len(p.deep))
	for i := range p.deep {
		activation := total / float64(p.deep[i].PlanningDepth) * float64(i+1) / 5.0 * emotionalModifier
		p.deep[i].Activation = activation
		out[i] = activation
	}
	return out
}

// FastCount returns the number of fast-tier units.
func (p *ModulePool) FastCount() int { return len(p.fast) }

// DeepCount returns the number of deep-tier units.
func (p *ModulePool) DeepCount() int { return len(p.deep) }

// mean returns the arithmetic mean, defined as 0 for an empty sequence.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}
