// Package vecstore implements cortex.VectorBackend on top of sqlite-vec,
// storing one 384-dimension embedding per fact in a vec0 virtual table
// alongside the engine's own SQLite database.
package vecstore

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"
	"math"

	sqlitevec "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"

	"github.com/kittclouds/cortexpool/pkg/cortex"
)

const dimensions = 384

// Store is a sqlite-vec backed vector index. It embeds text with a
// deterministic hashing scheme rather than calling out to a model
// server, since CortexPool's engine only requires embed to be stable
// and content-sensitive, never semantically trained.
type Store struct {
	db *sql.DB
}

// Open creates (or attaches to, for a shared DSN) a vec0 virtual table
// sized for 384-dimension embeddings.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("vecstore: open: %w", err)
	}
	schema := fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_facts USING vec0(embedding float[%d])`, dimensions)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("vecstore: create vec0 table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Embed deterministically hashes text into a unit-length 384-float
// vector. Every dimension hashes the whole text, so identical strings
// map to identical vectors and any change to the text yields an
// unrelated vector; textual similarity is not reflected in distance.
// That is enough for the nearest-neighbor path to be exercised in
// tests without a real embedding model in the loop.
func (s *Store) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, dimensions)
	h := fnv.New64a()
	for i := 0; i < dimensions; i++ {
		h.Reset()
		h.Write([]byte(text))
		h.Write([]byte{byte(i), byte(i >> 8)})
		sum := h.Sum64()
		vec[i] = float32(int64(sum%2000)-1000) / 1000.0
	}
	normalize(vec)
	return vec, nil
}

func normalize(v []float32) {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return
	}
	norm := float32(math.Sqrt(sumSq))
	for i := range v {
		v[i] /= norm
	}
}

// Upsert stores factID's embedding of content, replacing any prior row.
func (s *Store) Upsert(ctx context.Context, factID int64, content string) error {
	vec, err := s.Embed(ctx, content)
	if err != nil {
		return fmt.Errorf("vecstore: embed: %w", err)
	}
	blob, err := sqlitevec.SerializeFloat32(vec)
	if err != nil {
		return fmt.Errorf("vecstore: serialize: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vec_facts WHERE rowid = ?", factID); err != nil {
		return fmt.Errorf("vecstore: clear prior row: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO vec_facts(rowid, embedding) VALUES (?, ?)", factID, blob); err != nil {
		return fmt.Errorf("vecstore: insert: %w", err)
	}
	return nil
}

// Delete removes factID's embedding, if present.
func (s *Store) Delete(ctx context.Context, factID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM vec_facts WHERE rowid = ?", factID); err != nil {
		return fmt.Errorf("vecstore: delete: %w", err)
	}
	return nil
}

// SearchByVector embeds queryText and returns the limit nearest facts
// by cosine distance (sqlite-vec reports L2 distance over normalized
// vectors, which ranks identically to cosine).
func (s *Store) SearchByVector(ctx context.Context, queryText string, limit int) ([]cortex.VectorHit, error) {
	if limit <= 0 {
		limit = 15
	}
	vec, err := s.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("vecstore: embed query: %w", err)
	}
	blob, err := sqlitevec.SerializeFloat32(vec)
	if err != nil {
		return nil, fmt.Errorf("vecstore: serialize query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT rowid, distance FROM vec_facts
		WHERE embedding MATCH ? AND k = ?
		ORDER BY distance
	`, blob, limit)
	if err != nil {
		return nil, fmt.Errorf("vecstore: search: %w", err)
	}
	defer rows.Close()

	var hits []cortex.VectorHit
	for rows.Next() {
		var factID int64
		var distance float64
		if err := rows.Scan(&factID, &distance); err != nil {
			return nil, fmt.Errorf("vecstore: scan hit: %w", err)
		}
		// L2 distance over unit vectors ranges [0,2]; fold to a [0,1]
		// similarity score so it composes with the graph score's scale.
		score := 1 - distance/2
		if score < 0 {
			score = 0
		}
		hits = append(hits, cortex.VectorHit{FactID: factID, Score: score})
	}
	return hits, rows.Err()
}

var _ cortex.VectorBackend = (*Store)(nil)
