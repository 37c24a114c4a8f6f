package cortex

import (
	"strings"

	"github.com/orsinium-labs/stopwords"

	"github.com/kittclouds/cortexpool/pkg/normalize"
)

var enStopwords = stopwords.MustGet("en")

// significantTopicTokens filters the closed-class stopwords out of a
// normalized topic's words before substring-bonus comparison, so a
// topic like "the project" does not spuriously match every entity
// whose name or alias happens to contain "the".
func significantTopicTokens(normalizedTopic string) []string {
	words := strings.Fields(normalizedTopic)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if enStopwords.Contains(w) {
			continue
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		// Every word was a stopword (e.g. a bare pronoun topic such as
		// "it"); fall back to the full phrase so short closed-class
		// topic strings still participate in scoring.
		return []string{normalizedTopic}
	}
	return out
}

// score implements the relevance formula: importance*confidence, plus
// per-topic canonical/alias substring bonuses, plus the activation
// contribution, the subject's type prior, and a recency bonus, capped
// at 1.0. It is pure given the supplied activation level and topics.
func score(fact *Fact, subject *Entity, topics []string, activationLevel float64, nowMs int64) float64 {
	total := fact.Importance * fact.Confidence

	if subject != nil {
		for _, t := range topics {
			normTopic := normalize.Normalize(t)
			if normTopic == "" {
				continue
			}
			normTopic = strings.Join(significantTopicTokens(normTopic), " ")
			if substringEitherWay(subject.CanonicalName, normTopic) {
				total += 0.4
			}
			aliasHit := false
			for _, alias := range subject.Aliases {
				if strings.Contains(normalize.Normalize(alias), normTopic) {
					aliasHit = true
					break
				}
			}
			if aliasHit {
				total += 0.3
			}
		}

		total += typePrior(subject.Type)
	}

	total += 0.3 * activationLevel

	hours := hoursSince(fact.LastUsed, nowMs)
	recency := 0.2 - 0.01*hours
	if recency > 0 {
		total += recency
	}

	if total > 1.0 {
		total = 1.0
	}
	if total < 0 {
		total = 0
	}
	return total
}

func substringEitherWay(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func hoursSince(pastMs, nowMs int64) float64 {
	diff := nowMs - pastMs
	if diff < 0 {
		diff = 0
	}
	return float64(diff) / 3600_000
}
