package cortex

import "errors"

// Sentinel errors for the Invalid error-kind. NotFound is represented
// by (nil, nil) returns throughout this package, matching the teacher
// store's GetEntity/GetNote convention; Backend errors are whatever
// the store returns, wrapped with context; Vector errors never reach
// the caller — they are swallowed by the retrieval pipeline.
var (
	ErrInvalidTopics   = errors.New("cortex: topics must be non-empty")
	ErrInvalidPoolSize = errors.New("cortex: poolSize must be positive")
	ErrInvalidFact     = errors.New("cortex: fact is missing required fields")
	ErrUnknownEntity   = errors.New("cortex: referenced entity does not exist")
)
