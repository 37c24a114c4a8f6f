// Package store provides SQLite-backed persistence for CortexPool.
// Uses ncruces/go-sqlite3/driver which provides a database/sql interface.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "github.com/asg017/sqlite-vec-go-bindings/ncruces"
	_ "github.com/ncruces/go-sqlite3/driver"
)

// SQLiteStore is the SQLite-backed data store. Each method is guarded by
// an RWMutex, so individual calls are safe from concurrent goroutines;
// a sequence of calls is not atomic.
type SQLiteStore struct {
	mu sync.RWMutex
	db *sql.DB
}

// schema defines all tables backing the memory graph.
const schema = `
CREATE TABLE IF NOT EXISTS entities (
    id INTEGER PRIMARY KEY,
    name TEXT NOT NULL,
    canonical_name TEXT NOT NULL,
    type TEXT NOT NULL,
    aliases TEXT NOT NULL,
    confidence REAL NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_entities_canonical ON entities(canonical_name);

CREATE TABLE IF NOT EXISTS facts (
    id INTEGER PRIMARY KEY,
    subject_id INTEGER NOT NULL,
    predicate TEXT NOT NULL,
    object_id INTEGER,
    content TEXT NOT NULL,
    tier TEXT NOT NULL,
    importance REAL NOT NULL,
    confidence REAL NOT NULL,
    source TEXT NOT NULL,
    last_used INTEGER NOT NULL,
    use_count INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL,
    ttl INTEGER
);

CREATE INDEX IF NOT EXISTS idx_facts_subject ON facts(subject_id);
CREATE INDEX IF NOT EXISTS idx_facts_object ON facts(object_id);
CREATE INDEX IF NOT EXISTS idx_facts_tier ON facts(tier);
CREATE INDEX IF NOT EXISTS idx_facts_importance ON facts(importance DESC);
CREATE INDEX IF NOT EXISTS idx_facts_tier_ttl ON facts(tier, ttl);

CREATE TABLE IF NOT EXISTS pool (
    fact_id INTEGER NOT NULL,
    score REAL NOT NULL,
    added_at INTEGER NOT NULL,
    rank INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS topics (
    topic TEXT PRIMARY KEY,
    weight REAL NOT NULL,
    last_seen INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS contradictions (
    id INTEGER PRIMARY KEY,
    fact1_id INTEGER NOT NULL,
    fact2_id INTEGER NOT NULL,
    detected_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS co_references (
    pronoun TEXT PRIMARY KEY,
    entity_id INTEGER NOT NULL,
    context TEXT NOT NULL,
    last_seen INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS activation_history (
    entity_id INTEGER NOT NULL,
    activation REAL NOT NULL,
    source TEXT NOT NULL,
    timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_activation_history_entity ON activation_history(entity_id);

CREATE TABLE IF NOT EXISTS reflections (
    id INTEGER PRIMARY KEY,
    contradictions INTEGER NOT NULL,
    entities_merged INTEGER NOT NULL,
    compressed INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
`

// NewSQLiteStore creates a new in-memory SQLite store.
func NewSQLiteStore() (*SQLiteStore, error) {
	return NewSQLiteStoreWithDSN(":memory:")
}

// NewSQLiteStoreWithDSN creates a store with a specific data source name.
// Use ":memory:" for in-memory or a file path for persistent storage.
func NewSQLiteStoreWithDSN(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func aliasesToJSON(aliases []string) (string, error) {
	if aliases == nil {
		aliases = []string{}
	}
	b, err := json.Marshal(aliases)
	if err != nil {
		return "", fmt.Errorf("store: marshal aliases: %w", err)
	}
	return string(b), nil
}

func aliasesFromJSON(raw string) []string {
	var aliases []string
	if raw == "" {
		return []string{}
	}
	if err := json.Unmarshal([]byte(raw), &aliases); err != nil {
		return []string{}
	}
	return aliases
}

// =============================================================================
// Entity CRUD
// =============================================================================

func (s *SQLiteStore) CreateEntity(e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	aliasesJSON, err := aliasesToJSON(e.Aliases)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO entities (id, name, canonical_name, type, aliases, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Name, e.CanonicalName, e.Type.String(), aliasesJSON, e.Confidence, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: create entity: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateEntity(e *Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	aliasesJSON, err := aliasesToJSON(e.Aliases)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		UPDATE entities SET name = ?, canonical_name = ?, type = ?, aliases = ?, confidence = ?
		WHERE id = ?
	`, e.Name, e.CanonicalName, e.Type.String(), aliasesJSON, e.Confidence, e.ID)
	if err != nil {
		return fmt.Errorf("store: update entity: %w", err)
	}
	return nil
}

func scanEntity(row interface{ Scan(...any) error }) (*Entity, error) {
	var e Entity
	var typeStr, aliasesJSON string
	err := row.Scan(&e.ID, &e.Name, &e.CanonicalName, &typeStr, &aliasesJSON, &e.Confidence, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Type = ParseEntityType(typeStr)
	e.Aliases = aliasesFromJSON(aliasesJSON)
	return &e, nil
}

func (s *SQLiteStore) GetEntity(id int64) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, canonical_name, type, aliases, confidence, created_at
		FROM entities WHERE id = ?
	`, id)
	e, err := scanEntity(row)
	if err != nil {
		return nil, fmt.Errorf("store: get entity: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) GetEntityByCanonicalName(canonicalName string) (*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, canonical_name, type, aliases, confidence, created_at
		FROM entities WHERE canonical_name = ?
	`, canonicalName)
	e, err := scanEntity(row)
	if err != nil {
		return nil, fmt.Errorf("store: get entity by canonical name: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) ListEntities() ([]*Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, canonical_name, type, aliases, confidence, created_at
		FROM entities ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("store: list entities: %w", err)
	}
	defer rows.Close()

	var entities []*Entity
	for rows.Next() {
		e, err := scanEntity(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan entity: %w", err)
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

func (s *SQLiteStore) DeleteEntities(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.db.Exec("DELETE FROM entities WHERE id = ?", id); err != nil {
			return fmt.Errorf("store: delete entity %d: %w", id, err)
		}
	}
	return nil
}

func (s *SQLiteStore) NextEntityID() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM entities").Scan(&max); err != nil {
		return 0, fmt.Errorf("store: next entity id: %w", err)
	}
	return max.Int64 + 1, nil
}

// =============================================================================
// Fact CRUD
// =============================================================================

func (s *SQLiteStore) CreateFact(f *Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO facts (id, subject_id, predicate, object_id, content, tier, importance,
			confidence, source, last_used, use_count, created_at, ttl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, f.ID, f.SubjectID, f.Predicate, f.ObjectID, f.Content, f.Tier.String(), f.Importance,
		f.Confidence, f.Source, f.LastUsed, f.UseCount, f.CreatedAt, f.TTL)
	if err != nil {
		return fmt.Errorf("store: create fact: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpdateFact(f *Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		UPDATE facts SET subject_id = ?, predicate = ?, object_id = ?, content = ?, tier = ?,
			importance = ?, confidence = ?, source = ?, last_used = ?, use_count = ?, ttl = ?
		WHERE id = ?
	`, f.SubjectID, f.Predicate, f.ObjectID, f.Content, f.Tier.String(), f.Importance,
		f.Confidence, f.Source, f.LastUsed, f.UseCount, f.TTL, f.ID)
	if err != nil {
		return fmt.Errorf("store: update fact: %w", err)
	}
	return nil
}

func scanFact(row interface{ Scan(...any) error }) (*Fact, error) {
	var f Fact
	var tierStr string
	var objectID sql.NullInt64
	var ttl sql.NullInt64
	err := row.Scan(&f.ID, &f.SubjectID, &f.Predicate, &objectID, &f.Content, &tierStr,
		&f.Importance, &f.Confidence, &f.Source, &f.LastUsed, &f.UseCount, &f.CreatedAt, &ttl)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tier, err := ParseTier(tierStr)
	if err != nil {
		return nil, err
	}
	f.Tier = tier
	if objectID.Valid {
		v := objectID.Int64
		f.ObjectID = &v
	}
	if ttl.Valid {
		v := ttl.Int64
		f.TTL = &v
	}
	return &f, nil
}

const factSelect = `SELECT id, subject_id, predicate, object_id, content, tier, importance, confidence, source, last_used, use_count, created_at, ttl FROM facts`

func (s *SQLiteStore) GetFact(id int64) (*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(factSelect+" WHERE id = ?", id)
	f, err := scanFact(row)
	if err != nil {
		return nil, fmt.Errorf("store: get fact: %w", err)
	}
	return f, nil
}

func (s *SQLiteStore) queryFacts(query string, args ...any) ([]*Fact, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []*Fact
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

func (s *SQLiteStore) ListFacts() ([]*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts, err := s.queryFacts(factSelect + " ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: list facts: %w", err)
	}
	return facts, nil
}

func (s *SQLiteStore) ListFactsByTier(tier Tier) ([]*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts, err := s.queryFacts(factSelect+" WHERE tier = ? ORDER BY id", tier.String())
	if err != nil {
		return nil, fmt.Errorf("store: list facts by tier: %w", err)
	}
	return facts, nil
}

func (s *SQLiteStore) ListFactsBySubject(subjectID int64) ([]*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts, err := s.queryFacts(factSelect+" WHERE subject_id = ? ORDER BY id", subjectID)
	if err != nil {
		return nil, fmt.Errorf("store: list facts by subject: %w", err)
	}
	return facts, nil
}

func (s *SQLiteStore) ListFactsByObject(objectID int64) ([]*Fact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	facts, err := s.queryFacts(factSelect+" WHERE object_id = ? ORDER BY id", objectID)
	if err != nil {
		return nil, fmt.Errorf("store: list facts by object: %w", err)
	}
	return facts, nil
}

func (s *SQLiteStore) DeleteFacts(ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.db.Exec("DELETE FROM facts WHERE id = ?", id); err != nil {
			return fmt.Errorf("store: delete fact %d: %w", id, err)
		}
	}
	return nil
}

func (s *SQLiteStore) NextFactID() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max sql.NullInt64
	if err := s.db.QueryRow("SELECT MAX(id) FROM facts").Scan(&max); err != nil {
		return 0, fmt.Errorf("store: next fact id: %w", err)
	}
	return max.Int64 + 1, nil
}

// =============================================================================
// Pool
// =============================================================================

func (s *SQLiteStore) ReplacePool(entries []*PoolEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: replace pool: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM pool"); err != nil {
		return fmt.Errorf("store: clear pool: %w", err)
	}
	for i, e := range entries {
		if _, err := tx.Exec(`
			INSERT INTO pool (fact_id, score, added_at, rank) VALUES (?, ?, ?, ?)
		`, e.FactID, e.Score, e.AddedAt, i); err != nil {
			return fmt.Errorf("store: insert pool entry: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: replace pool: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListPool() ([]*PoolEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT fact_id, score, added_at FROM pool ORDER BY rank")
	if err != nil {
		return nil, fmt.Errorf("store: list pool: %w", err)
	}
	defer rows.Close()

	var entries []*PoolEntry
	for rows.Next() {
		var e PoolEntry
		if err := rows.Scan(&e.FactID, &e.Score, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("store: scan pool entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// =============================================================================
// Topics
// =============================================================================

func (s *SQLiteStore) UpsertTopic(t *Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO topics (topic, weight, last_seen) VALUES (?, ?, ?)
		ON CONFLICT(topic) DO UPDATE SET weight = excluded.weight, last_seen = excluded.last_seen
	`, t.Topic, t.Weight, t.LastSeen)
	if err != nil {
		return fmt.Errorf("store: upsert topic: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListTopics() ([]*Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT topic, weight, last_seen FROM topics")
	if err != nil {
		return nil, fmt.Errorf("store: list topics: %w", err)
	}
	defer rows.Close()

	var topics []*Topic
	for rows.Next() {
		var t Topic
		if err := rows.Scan(&t.Topic, &t.Weight, &t.LastSeen); err != nil {
			return nil, fmt.Errorf("store: scan topic: %w", err)
		}
		topics = append(topics, &t)
	}
	return topics, rows.Err()
}

func (s *SQLiteStore) ClearTopics() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec("DELETE FROM topics"); err != nil {
		return fmt.Errorf("store: clear topics: %w", err)
	}
	return nil
}

// =============================================================================
// Contradictions
// =============================================================================

func (s *SQLiteStore) AddContradiction(c *Contradiction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO contradictions (id, fact1_id, fact2_id, detected_at) VALUES (?, ?, ?, ?)
	`, c.ID, c.Fact1ID, c.Fact2ID, c.DetectedAt)
	if err != nil {
		return fmt.Errorf("store: add contradiction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListContradictions() ([]*Contradiction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT id, fact1_id, fact2_id, detected_at FROM contradictions ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("store: list contradictions: %w", err)
	}
	defer rows.Close()

	var contradictions []*Contradiction
	for rows.Next() {
		var c Contradiction
		if err := rows.Scan(&c.ID, &c.Fact1ID, &c.Fact2ID, &c.DetectedAt); err != nil {
			return nil, fmt.Errorf("store: scan contradiction: %w", err)
		}
		contradictions = append(contradictions, &c)
	}
	return contradictions, rows.Err()
}

// =============================================================================
// Co-references
// =============================================================================

func (s *SQLiteStore) UpsertCoReference(c *CoReference) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO co_references (pronoun, entity_id, context, last_seen) VALUES (?, ?, ?, ?)
		ON CONFLICT(pronoun) DO UPDATE SET entity_id = excluded.entity_id,
			context = excluded.context, last_seen = excluded.last_seen
	`, c.Pronoun, c.EntityID, c.Context, c.LastSeen)
	if err != nil {
		return fmt.Errorf("store: upsert co-reference: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetCoReference(pronoun string) (*CoReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c CoReference
	err := s.db.QueryRow(`
		SELECT pronoun, entity_id, context, last_seen FROM co_references WHERE pronoun = ?
	`, pronoun).Scan(&c.Pronoun, &c.EntityID, &c.Context, &c.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get co-reference: %w", err)
	}
	return &c, nil
}

// =============================================================================
// Activation history
// =============================================================================

func (s *SQLiteStore) AppendActivationHistory(entries []*ActivationHistoryEntry) error {
	if len(entries) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: append activation history: %w", err)
	}
	defer tx.Rollback()

	for _, e := range entries {
		if _, err := tx.Exec(`
			INSERT INTO activation_history (entity_id, activation, source, timestamp)
			VALUES (?, ?, ?, ?)
		`, e.EntityID, e.Activation, e.Source, e.Timestamp); err != nil {
			return fmt.Errorf("store: insert activation history: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: append activation history: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListActivationHistory(entityID int64, since int64) ([]*ActivationHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT entity_id, activation, source, timestamp FROM activation_history
		WHERE entity_id = ? AND timestamp >= ? ORDER BY timestamp
	`, entityID, since)
	if err != nil {
		return nil, fmt.Errorf("store: list activation history: %w", err)
	}
	defer rows.Close()

	var entries []*ActivationHistoryEntry
	for rows.Next() {
		var e ActivationHistoryEntry
		if err := rows.Scan(&e.EntityID, &e.Activation, &e.Source, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("store: scan activation history: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// =============================================================================
// Reflection log
// =============================================================================

func (s *SQLiteStore) AppendReflectionLog(r *ReflectionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		INSERT INTO reflections (contradictions, entities_merged, compressed, created_at)
		VALUES (?, ?, ?, ?)
	`, r.Contradictions, r.EntitiesMerged, r.Compressed, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("store: append reflection log: %w", err)
	}
	return nil
}

// =============================================================================
// Export / Import
// =============================================================================

func (s *SQLiteStore) Export() ([]byte, error) {
	entities, err := s.ListEntities()
	if err != nil {
		return nil, fmt.Errorf("store: export entities: %w", err)
	}
	facts, err := s.ListFacts()
	if err != nil {
		return nil, fmt.Errorf("store: export facts: %w", err)
	}
	pool, err := s.ListPool()
	if err != nil {
		return nil, fmt.Errorf("store: export pool: %w", err)
	}
	topics, err := s.ListTopics()
	if err != nil {
		return nil, fmt.Errorf("store: export topics: %w", err)
	}

	s.mu.RLock()
	coRefRows, err := s.db.Query("SELECT pronoun, entity_id, context, last_seen FROM co_references")
	if err != nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("store: export co-references: %w", err)
	}
	var coRefs []*CoReference
	for coRefRows.Next() {
		var c CoReference
		if err := coRefRows.Scan(&c.Pronoun, &c.EntityID, &c.Context, &c.LastSeen); err != nil {
			coRefRows.Close()
			s.mu.RUnlock()
			return nil, fmt.Errorf("store: scan co-reference: %w", err)
		}
		coRefs = append(coRefs, &c)
	}
	coRefRows.Close()

	histRows, err := s.db.Query("SELECT entity_id, activation, source, timestamp FROM activation_history")
	if err != nil {
		s.mu.RUnlock()
		return nil, fmt.Errorf("store: export activation history: %w", err)
	}
	var history []*ActivationHistoryEntry
	for histRows.Next() {
		var h ActivationHistoryEntry
		if err := histRows.Scan(&h.EntityID, &h.Activation, &h.Source, &h.Timestamp); err != nil {
			histRows.Close()
			s.mu.RUnlock()
			return nil, fmt.Errorf("store: scan activation history: %w", err)
		}
		history = append(history, &h)
	}
	histRows.Close()
	s.mu.RUnlock()

	doc := Export{
		Entities:          entities,
		Facts:             facts,
		Pool:              pool,
		Topics:            topics,
		CoReferences:      coRefs,
		ActivationHistory: history,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("store: marshal export: %w", err)
	}
	return b, nil
}

// Import restores the database state from an exported JSON byte slice.
// Clears every table except the reflection log and re-inserts from the
// export. Contradictions are not part of the export, so they stay empty.
func (s *SQLiteStore) Import(data []byte) error {
	if len(data) == 0 {
		return nil
	}

	var doc Export
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("store: unmarshal import: %w", err)
	}

	s.mu.Lock()
	for _, table := range []string{"pool", "topics", "contradictions", "co_references", "activation_history", "facts", "entities"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("store: clear %s: %w", table, err)
		}
	}
	s.mu.Unlock()

	for _, e := range doc.Entities {
		if err := s.CreateEntity(e); err != nil {
			return fmt.Errorf("store: import entity %d: %w", e.ID, err)
		}
	}
	for _, f := range doc.Facts {
		if err := s.CreateFact(f); err != nil {
			return fmt.Errorf("store: import fact %d: %w", f.ID, err)
		}
	}
	if err := s.ReplacePool(doc.Pool); err != nil {
		return fmt.Errorf("store: import pool: %w", err)
	}
	for _, t := range doc.Topics {
		if err := s.UpsertTopic(t); err != nil {
			return fmt.Errorf("store: import topic: %w", err)
		}
	}
	for _, c := range doc.CoReferences {
		if err := s.UpsertCoReference(c); err != nil {
			return fmt.Errorf("store: import co-reference: %w", err)
		}
	}
	if err := s.AppendActivationHistory(doc.ActivationHistory); err != nil {
		return fmt.Errorf("store: import activation history: %w", err)
	}
	return nil
}

// Compile-time interface check
var _ Storer = (*SQLiteStore)(nil)
