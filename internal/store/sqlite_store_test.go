package store

import "testing"

func TestExportImport(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	entity := &Entity{
		ID:            1,
		Name:          "William",
		CanonicalName: "william",
		Type:          EntityPerson,
		Aliases:       []string{"William"},
		Confidence:    0.9,
		CreatedAt:     1000,
	}
	if err := s.CreateEntity(entity); err != nil {
		t.Fatalf("CreateEntity failed: %v", err)
	}

	fact := &Fact{
		ID:         1,
		SubjectID:  1,
		Predicate:  "created",
		Content:    "William created OpenLiam",
		Tier:       TierSemantic,
		Importance: 0.6,
		Confidence: 0.7,
		Source:     "conversation",
		LastUsed:   1000,
		CreatedAt:  1000,
	}
	if err := s.CreateFact(fact); err != nil {
		t.Fatalf("CreateFact failed: %v", err)
	}

	if err := s.ReplacePool([]*PoolEntry{{FactID: 1, Score: 0.8, AddedAt: 1000}}); err != nil {
		t.Fatalf("ReplacePool failed: %v", err)
	}

	data, err := s.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("Exported data is empty")
	}

	s2, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create second store: %v", err)
	}
	if err := s2.Import(data); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	restored, err := s2.GetEntity(1)
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if restored == nil || restored.CanonicalName != "william" {
		t.Fatalf("entity not restored correctly: %+v", restored)
	}

	facts, err := s2.ListFacts()
	if err != nil {
		t.Fatalf("ListFacts failed: %v", err)
	}
	if len(facts) != 1 || facts[0].Content != fact.Content {
		t.Fatalf("facts not restored correctly: %+v", facts)
	}

	pool, err := s2.ListPool()
	if err != nil {
		t.Fatalf("ListPool failed: %v", err)
	}
	if len(pool) != 1 || pool[0].FactID != 1 {
		t.Fatalf("pool not restored correctly: %+v", pool)
	}
}

func TestEntityCRUD(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	e := &Entity{
		ID:            1,
		Name:          "GoKitt",
		CanonicalName: "gokitt",
		Type:          EntityProject,
		Aliases:       []string{"GoKitt"},
		Confidence:    0.8,
		CreatedAt:     1,
	}
	if err := s.CreateEntity(e); err != nil {
		t.Fatalf("CreateEntity failed: %v", err)
	}

	got, err := s.GetEntityByCanonicalName("gokitt")
	if err != nil {
		t.Fatalf("GetEntityByCanonicalName failed: %v", err)
	}
	if got == nil || got.ID != 1 {
		t.Fatalf("expected entity 1, got %+v", got)
	}

	e.Aliases = append(e.Aliases, "Kitt")
	e.Confidence = 0.9
	if err := s.UpdateEntity(e); err != nil {
		t.Fatalf("UpdateEntity failed: %v", err)
	}
	got, _ = s.GetEntity(1)
	if len(got.Aliases) != 2 {
		t.Errorf("expected 2 aliases after update, got %v", got.Aliases)
	}

	if err := s.DeleteEntities([]int64{1}); err != nil {
		t.Fatalf("DeleteEntities failed: %v", err)
	}
	got, err = s.GetEntity(1)
	if err != nil {
		t.Fatalf("GetEntity failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil after delete, got %+v", got)
	}
}

func TestFactsByTierAndEndpoints(t *testing.T) {
	s, err := NewSQLiteStore()
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	subj := &Entity{ID: 1, Name: "A", CanonicalName: "a", Type: EntityOther, Aliases: []string{"A"}, Confidence: 1, CreatedAt: 1}
	obj := &Entity{ID: 2, Name: "B", CanonicalName: "b", Type: EntityOther, Aliases: []string{"B"}, Confidence: 1, CreatedAt: 1}
	if err := s.CreateEntity(subj); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateEntity(obj); err != nil {
		t.Fatal(err)
	}

	objID := int64(2)
	if err := s.CreateFact(&Fact{ID: 1, SubjectID: 1, ObjectID: &objID, Predicate: "knows", Content: "A knows B", Tier: TierEpisodic, Importance: 0.3, Confidence: 0.7, Source: "conversation", LastUsed: 1, CreatedAt: 1}); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFact(&Fact{ID: 2, SubjectID: 1, Predicate: "is", Content: "A is a concept", Tier: TierStructural, Importance: 0.8, Confidence: 0.9, Source: "conversation", LastUsed: 1, CreatedAt: 1}); err != nil {
		t.Fatal(err)
	}

	episodic, err := s.ListFactsByTier(TierEpisodic)
	if err != nil {
		t.Fatalf("ListFactsByTier failed: %v", err)
	}
	if len(episodic) != 1 || episodic[0].ID != 1 {
		t.Errorf("expected one episodic fact with id 1, got %+v", episodic)
	}

	bySubject, err := s.ListFactsBySubject(1)
	if err != nil {
		t.Fatalf("ListFactsBySubject failed: %v", err)
	}
	if len(bySubject) != 2 {
		t.Errorf("expected 2 facts for subject 1, got %d", len(bySubject))
	}

	byObject, err := s.ListFactsByObject(2)
	if err != nil {
		t.Fatalf("ListFactsByObject failed: %v", err)
	}
	if len(byObject) != 1 || byObject[0].ID != 1 {
		t.Errorf("expected fact 1 referencing object 2, got %+v", byObject)
	}
}
