// Command cortexpool seeds a CortexPool datafile with a handful of
// facts, runs one retrieval, and prints the result. It exists to
// exercise the engine end to end outside of tests, against a real file
// on disk rather than an in-memory database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/kittclouds/cortexpool/internal/store"
	"github.com/kittclouds/cortexpool/pkg/cortex"
	"github.com/kittclouds/cortexpool/pkg/vecstore"
)

func main() {
	dsn := flag.String("dsn", "cortexpool.db", "SQLite data source for the memory graph")
	vecDSN := flag.String("vec-dsn", "cortexpool-vec.db", "SQLite data source for the vector index")
	topic := flag.String("topic", "William", "topic to retrieve context for after seeding")
	seed := flag.Bool("seed", true, "seed a handful of demonstration facts before retrieving")
	export := flag.String("export", "", "if set, write the post-run snapshot to this path")
	flag.Parse()

	backing, err := store.NewSQLiteStoreWithDSN(*dsn)
	if err != nil {
		log.Fatalf("cortexpool: open store: %v", err)
	}
	defer backing.Close()

	vec, err := vecstore.Open(*vecDSN)
	if err != nil {
		log.Fatalf("cortexpool: open vector store: %v", err)
	}
	defer vec.Close()

	engine := cortex.NewEngine(backing, cortex.DefaultConfig(), vec)
	engine.OnPhaseError(func(phase string, err error) {
		log.Printf("cortexpool: reflection phase %q failed: %v", phase, err)
	})

	ctx := context.Background()
	now := time.Now().UnixMilli()

	if *seed {
		if err := seedDemoFacts(ctx, engine, vec, now); err != nil {
			log.Fatalf("cortexpool: seed: %v", err)
		}
	}

	results, err := engine.RetrieveContext(ctx, now, []string{*topic})
	if err != nil {
		log.Fatalf("cortexpool: retrieve: %v", err)
	}

	for _, r := range results {
		fmt.Printf("%.3f  %s\n", r.Score, r.Fact.Content)
	}

	if _, err := engine.Reflect(ctx, now); err != nil {
		log.Fatalf("cortexpool: reflect: %v", err)
	}

	if *export != "" {
		data, err := engine.Export()
		if err != nil {
			log.Fatalf("cortexpool: export: %v", err)
		}
		if err := os.WriteFile(*export, data, 0o644); err != nil {
			log.Fatalf("cortexpool: write export: %v", err)
		}
	}
}

func seedDemoFacts(ctx context.Context, engine *cortex.Engine, vec *vecstore.Store, now int64) error {
	tier := cortex.TierSemantic
	facts := []cortex.AddFactInput{
		{Subject: "William", Predicate: "created", Object: "OpenLiam", Content: "William created OpenLiam", Tier: &tier, Confidence: 0.9},
		{Subject: "William", Predicate: "uses", Object: "Go", Content: "William uses Go for backend services", Tier: &tier, Confidence: 0.9},
		{Subject: "OpenLiam", Predicate: "fork-of", Object: "Liam", Content: "OpenLiam is a fork of Liam", Tier: &tier, Confidence: 0.8},
	}
	for _, f := range facts {
		id, err := engine.AddFact(now, f)
		if err != nil {
			return fmt.Errorf("add fact: %w", err)
		}
		if err := vec.Upsert(ctx, id, f.Content); err != nil {
			return fmt.Errorf("index fact %d: %w", id, err)
		}
	}
	return nil
}

