package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/guiperry/KNIRVCONTROLLER/internal/cognitive"
)

// CycleRecord is one persisted processing cycle.
type CycleRecord struct {
	ID              string    `json:"id"`
	OwnerID         string    `json:"owner_id"`
	TaskType        string    `json:"task_type"`
	Context         string    `json:"context"`
	Reasoning       string    `json:"reasoning"`
	Confidence      float64   `json:"confidence"`
	Influence       float64   `json:"influence"`
	AdaptationScore float64   `json:"adaptation_score"`
	ProcessingMS    float64   `json:"processing_ms"`
	FastActivations []float64 `json:"fast_activations"`
	DeepActivations []float64 `json:"deep_activations"`
	CreatedAt       time.Time `json:"created_at"`
}

// SaveCycle inserts a cycle record and fills its generated ID/timestamp.
func (s *Store) SaveCycle(ctx context.Context, rec *CycleRecord) error {
	fast, _ := json.Marshal(rec.FastActivations)
	deep, _ := json.Marshal(rec.DeepActivations)
	return s.db.QueryRow(ctx,
		`INSERT INTO cognitive_cycles
		   (owner_id, task_type, context, reasoning, confidence, influence,
		    adaptation_score, processing_ms, fast_activations, deep_activations)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		 RETURNING id, created_at`,
		rec.OwnerID, rec.TaskType, rec.Context, rec.Reasoning, rec.Confidence,
		rec.Influence, rec.AdaptationScore, rec.ProcessingMS, fast, deep,
	).Scan(&rec.ID, &rec.CreatedAt)
}

// ListCycles returns the most recent cycles for an owner, newest first.
func (s *Store) ListCycles(ctx context.Context, ownerID string, limit int) ([]*CycleRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, owner_id, task_type, context, reasoning, confidence, influence,
		        adaptation_score, processing_ms, fast_activations, deep_activations, created_at
		 FROM cognitive_cycles WHERE owner_id=$1
		 ORDER BY created_at DESC LIMIT $2`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*CycleRecord
	for rows.Next() {
		rec := &CycleRecord{}
		var fast, deep []byte
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &rec.TaskType, &rec.Context,
			&rec.Reasoning, &rec.Confidence, &rec.Influence, &rec.AdaptationScore,
			&rec.ProcessingMS, &fast, &deep, &rec.CreatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal(fast, &rec.FastActivations)
		_ = json.Unmarshal(deep, &rec.DeepActivations)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// SaveAdaptationEvent persists one adaptation event from the profile history.
func (s *Store) SaveAdaptationEvent(ctx context.Context, ownerID string, ev cognitive.AdaptationEvent) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO adaptation_events (owner_id, category, feedback, context, occurred_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		ownerID, ev.Category, ev.Feedback, ev.Context, ev.Timestamp)
	return err
}

// SaveProfile upserts a personality profile snapshot.
func (s *Store) SaveProfile(ctx context.Context, p *cognitive.PersonalityProfile) error {
	metrics, _ := json.Marshal(p.Metrics)
	_, err := s.db.Exec(ctx,
		`INSERT INTO personality_profiles (owner_id, metrics, learning_rate, updated_at)
		 VALUES ($1,$2,$3,NOW())
		 ON CONFLICT (owner_id)
		 DO UPDATE SET metrics=$2, learning_rate=$3, updated_at=NOW()`,
		p.OwnerID, metrics, p.LearningRate)
	return err
}

// LoadProfileMetrics returns the persisted metrics for an owner, nil when
// no snapshot exists.
func (s *Store) LoadProfileMetrics(ctx context.Context, ownerID string) (map[string]float64, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT metrics FROM personality_profiles WHERE owner_id=$1`, ownerID,
	).Scan(&raw)
	if err != nil {
		return nil, err
	}
	metrics := make(map[string]float64)
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return nil, err
	}
	return metrics, nil
}
