// Package store provides SQLite-backed persistence for CortexPool.
// It owns the on-disk schema and the Go/SQL boundary conversions; callers
// never see raw row data, only the typed records below.
package store

import "fmt"

// EntityType is the closed set of entity kinds a memory node can take.
type EntityType int

const (
	EntityPerson EntityType = iota
	EntityProject
	EntityConcept
	EntityTool
	EntityPreference
	EntityWebsite
	EntityOther
)

func (t EntityType) String() string {
	switch t {
	case EntityPerson:
		return "person"
	case EntityProject:
		return "project"
	case EntityConcept:
		return "concept"
	case EntityTool:
		return "tool"
	case EntityPreference:
		return "preference"
	case EntityWebsite:
		return "website"
	default:
		return "other"
	}
}

// ParseEntityType converts a persisted string back into an EntityType.
// Unknown values resolve to EntityOther rather than erroring, matching
// the tolerant read path the rest of the store uses for legacy rows.
func ParseEntityType(s string) EntityType {
	switch s {
	case "person":
		return EntityPerson
	case "project":
		return EntityProject
	case "concept":
		return EntityConcept
	case "tool":
		return EntityTool
	case "preference":
		return EntityPreference
	case "website":
		return EntityWebsite
	default:
		return EntityOther
	}
}

func (t EntityType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *EntityType) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	*t = ParseEntityType(s)
	return nil
}

// Tier is the closed set of fact lifetime classes.
type Tier int

const (
	TierEpisodic Tier = iota
	TierSemantic
	TierStructural
)

func (t Tier) String() string {
	switch t {
	case TierEpisodic:
		return "episodic"
	case TierSemantic:
		return "semantic"
	case TierStructural:
		return "structural"
	default:
		return "semantic"
	}
}

// ParseTier converts a persisted string into a Tier. An unrecognized
// string is an Invalid-class error at the boundary: malformed tier
// values are rejected, not coerced.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "episodic":
		return TierEpisodic, nil
	case "semantic":
		return TierSemantic, nil
	case "structural":
		return TierStructural, nil
	default:
		return TierSemantic, fmt.Errorf("store: invalid tier %q", s)
	}
}

func (t Tier) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *Tier) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := ParseTier(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Entity is a named node in the memory graph.
type Entity struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	CanonicalName string     `json:"canonicalName"`
	Type          EntityType `json:"type"`
	Aliases       []string   `json:"aliases"`
	Confidence    float64    `json:"confidence"`
	CreatedAt     int64      `json:"createdAt"`
}

// Fact is a directed, typed edge between entities with attached content.
// ObjectID is nil for unary facts. TTL, when set, is a duration in
// milliseconds measured from CreatedAt.
type Fact struct {
	ID         int64   `json:"id"`
	SubjectID  int64   `json:"subjectId"`
	Predicate  string  `json:"predicate"`
	ObjectID   *int64  `json:"objectId,omitempty"`
	Content    string  `json:"content"`
	Tier       Tier    `json:"tier"`
	Importance float64 `json:"importance"`
	Confidence float64 `json:"confidence"`
	Source     string  `json:"source"`
	LastUsed   int64   `json:"lastUsed"`
	UseCount   int     `json:"useCount"`
	CreatedAt  int64   `json:"createdAt"`
	TTL        *int64  `json:"ttl,omitempty"`
}

// PoolEntry is one row of the materialized top-K retrieval result.
type PoolEntry struct {
	FactID  int64   `json:"factId"`
	Score   float64 `json:"score"`
	AddedAt int64   `json:"addedAt"`
}

// Topic tracks an observed query topic's recency-weighted salience.
type Topic struct {
	Topic    string  `json:"topic"`
	Weight   float64 `json:"weight"`
	LastSeen int64   `json:"lastSeen"`
}

// Contradiction records a pair of facts that share subject and predicate
// but disagree in content.
type Contradiction struct {
	ID         int64 `json:"id"`
	Fact1ID    int64 `json:"fact1Id"`
	Fact2ID    int64 `json:"fact2Id"`
	DetectedAt int64 `json:"detectedAt"`
}

// CoReference is a pronoun to entity binding, valid for a short window.
type CoReference struct {
	Pronoun  string `json:"pronoun"`
	EntityID int64  `json:"entityId"`
	Context  string `json:"context"`
	LastSeen int64  `json:"lastSeen"`
}

// ActivationHistoryEntry is one snapshot of an entity's activation level.
type ActivationHistoryEntry struct {
	EntityID   int64   `json:"entityId"`
	Activation float64 `json:"activation"`
	Source     string  `json:"source"`
	Timestamp  int64   `json:"timestamp"`
}

// ReflectionLog is one row summarizing a completed reflect() pass.
type ReflectionLog struct {
	ID             int64 `json:"id"`
	Contradictions int   `json:"contradictions"`
	EntitiesMerged int   `json:"entitiesMerged"`
	Compressed     int   `json:"compressed"`
	CreatedAt      int64 `json:"createdAt"`
}

// Export is the JSON snapshot document shape used by Storer.Export/Import.
type Export struct {
	Entities          []*Entity                 `json:"entities"`
	Facts             []*Fact                   `json:"facts"`
	Pool              []*PoolEntry              `json:"pool"`
	Topics            []*Topic                  `json:"topics"`
	CoReferences      []*CoReference            `json:"coReferences"`
	ActivationHistory []*ActivationHistoryEntry `json:"activationHistory"`
}

// Storer is the persistence boundary CortexPool's engine depends on.
// SQLiteStore is the sole production implementation.
type Storer interface {
	// Entities
	CreateEntity(e *Entity) error
	UpdateEntity(e *Entity) error
	GetEntity(id int64) (*Entity, error)
	GetEntityByCanonicalName(canonicalName string) (*Entity, error)
	ListEntities() ([]*Entity, error)
	DeleteEntities(ids []int64) error
	NextEntityID() (int64, error)

	// Facts
	CreateFact(f *Fact) error
	UpdateFact(f *Fact) error
	GetFact(id int64) (*Fact, error)
	ListFacts() ([]*Fact, error)
	ListFactsByTier(tier Tier) ([]*Fact, error)
	ListFactsBySubject(subjectID int64) ([]*Fact, error)
	ListFactsByObject(objectID int64) ([]*Fact, error)
	DeleteFacts(ids []int64) error
	NextFactID() (int64, error)

	// Pool
	ReplacePool(entries []*PoolEntry) error
	ListPool() ([]*PoolEntry, error)

	// Topics
	UpsertTopic(t *Topic) error
	ListTopics() ([]*Topic, error)
	ClearTopics() error

	// Contradictions
	AddContradiction(c *Contradiction) error
	ListContradictions() ([]*Contradiction, error)

	// Co-references
	UpsertCoReference(c *CoReference) error
	GetCoReference(pronoun string) (*CoReference, error)

	// Activation history
	AppendActivationHistory(entries []*ActivationHistoryEntry) error
	ListActivationHistory(entityID int64, since int64) ([]*ActivationHistoryEntry, error)

	// Reflection log
	AppendReflectionLog(r *ReflectionLog) error

	// Snapshot
	Export() ([]byte, error)
	Import(data []byte) error

	Close() error
}
