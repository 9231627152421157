package recall

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"github.com/guiperry/KNIRVCONTROLLER/internal/cognitive"
)

// Graph mirrors admitted memory items into a Neo4j association graph:
// (:Memory)-[:ASSOCIATED_WITH]->(:Category). The in-process buffer stays
// the source of truth for the pipeline; the graph serves recall queries.
type Graph struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// New connects to Neo4j.
func New(uri, user, password string, logger *zap.Logger) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	return &Graph{driver: driver, logger: logger}, nil
}

// Ping verifies connectivity.
func (g *Graph) Ping(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}

// Close shuts down the driver.
func (g *Graph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

// Record stores one admitted memory item and links it to its
// association categories.
func (g *Graph) Record(ctx context.Context, ownerID string, item *cognitive.MemoryItem) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`CREATE (m:Memory {
			id: $id, owner_id: $ownerId, content: $content,
			importance: $importance, retained_at: $retainedAt
		 })
		 WITH m
		 UNWIND $associations AS assoc
		 MERGE (c:Category {name: assoc, owner_id: $ownerId})
		 MERGE (m)-[:ASSOCIATED_WITH]->(c)`,
		map[string]interface{}{
			"id":           item.ID,
			"ownerId":      ownerID,
			"content":      item.Content,
			"importance":   item.Importance,
			"retainedAt":   item.Timestamp.Format(time.RFC3339Nano),
			"associations": item.Associations,
		})
	if err != nil {
		return fmt.Errorf("record memory %s: %w", item.ID, err)
	}

	g.logger.Debug("memory recorded in association graph",
		zap.String("id", item.ID),
		zap.Float64("importance", item.Importance))
	return nil
}

// Recalled is one memory returned by a recall query.
type Recalled struct {
	ID         string  `json:"id"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"`
	Category   string  `json:"category,omitempty"`
}

// ByAssociation returns memories linked to a category, strongest first.
func (g *Graph) ByAssociation(ctx context.Context, ownerID, category string, limit int) ([]Recalled, error) {
	if limit <= 0 {
		limit = 20
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (m:Memory {owner_id: $ownerId})-[:ASSOCIATED_WITH]->(c:Category {name: $category})
		 RETURN m.id AS id, m.content AS content, m.importance AS importance, c.name AS category
		 ORDER BY m.importance DESC LIMIT $limit`,
		map[string]interface{}{
			"ownerId":  ownerID,
			"category": category,
			"limit":    limit,
		})
	if err != nil {
		return nil, err
	}
	return collect(ctx, result)
}

// Recent returns the most recently retained memories for an owner.
func (g *Graph) Recent(ctx context.Context, ownerID string, limit int) ([]Recalled, error) {
	if limit <= 0 {
		limit = 20
	}

	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx,
		`MATCH (m:Memory {owner_id: $ownerId})
		 RETURN m.id AS id, m.content AS content, m.importance AS importance, '' AS category
		 ORDER BY m.retained_at DESC LIMIT $limit`,
		map[string]interface{}{"ownerId": ownerID, "limit": limit})
	if err != nil {
		return nil, err
	}
	return collect(ctx, result)
}

// Forget removes a memory node and any orphaned category nodes.
func (g *Graph) Forget(ctx context.Context, ownerID, memoryID string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.Run(ctx,
		`MATCH (m:Memory {id: $id, owner_id: $ownerId})
		 OPTIONAL MATCH (m)-[:ASSOCIATED_WITH]->(c:Category)
		 DETACH DELETE m
		 WITH c
		 WHERE c IS NOT NULL AND NOT (c)<-[:ASSOCIATED_WITH]-()
		 DELETE c`,
		map[string]interface{}{"id": memoryID, "ownerId": ownerID})
	return err
}

func collect(ctx context.Context, result neo4j.ResultWithContext) ([]Recalled, error) {
	var out []Recalled
	for result.Next(ctx) {
		rec := result.Record()
		r := Recalled{}
		if v, ok := rec.Get("id"); ok && v != nil {
			r.ID = v.(string)
		}
		if v, ok := rec.Get("content"); ok && v != nil {
			r.Content = v.(string)
		}
		if v, ok := rec.Get("importance"); ok && v != nil {
			r.Importance = v.(float64)
		}
		if v, ok := rec.Get("category"); ok && v != nil {
			r.Category = v.(string)
		}
		out = append(out, r)
	}
	return out, result.Err()
}
