package cortex

// Predicates is the closed vocabulary of fact predicates.
var Predicates = map[string]bool{
	"knows": true, "created": true, "fork-of": true, "prefers": true,
	"uses": true, "learned": true, "teachers": true, "runs-on": true,
	"model": true, "github": true, "caregiver": true, "autistic": true,
	"used-for": true, "created-by": true, "is": true, "has": true,
	"affiliated-with": true, "related-to": true, "mentioned": true,
	"discussed": true, "queried": true, "recalled": true,
}

// inferType maps a predicate to the entity type hint used when the
// subject of a new fact must be created rather than resolved.
func inferType(predicate string) EntityType {
	switch predicate {
	case "prefers":
		return EntityPreference
	case "uses", "runs-on", "model":
		return EntityTool
	case "created", "fork-of", "created-by", "github":
		return EntityProject
	case "knows", "caregiver", "autistic", "teachers":
		return EntityPerson
	case "learned", "is", "has", "mentioned", "discussed", "queried", "recalled", "related-to", "used-for", "affiliated-with":
		return EntityConcept
	default:
		return EntityOther
	}
}

// edgeWeight is the per-predicate multiplier applied during activation
// spreading. "related-to" carries a weaker signal than every other
// predicate in the vocabulary.
func edgeWeight(predicate string) float64 {
	if predicate == "related-to" {
		return 0.7
	}
	return 1.0
}

// typePrior is the per-entity-type bonus added by the relevance scorer.
func typePrior(t EntityType) float64 {
	switch t {
	case EntityPerson, EntityProject:
		return 0.15
	case EntityPreference:
		return 0.2
	case EntityTool:
		return 0.1
	case EntityConcept:
		return 0.05
	default:
		return 0
	}
}
