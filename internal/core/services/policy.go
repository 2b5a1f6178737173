package services

import "github.com/custodia-labs/whis/internal/core/domain"

// EvaluatePolicy checks a candidate set against a mode's admission rules.
//
// Every failing rule contributes its reason, so a caller can tell which
// evidence is missing. The candidate set is never widened and rules are never
// relaxed. An empty set is always rejected: it fails the mode's own rules and
// additionally reports domain.ReasonEmptyCandidateSet.
func EvaluatePolicy(policy domain.RetrievalPolicy, candidates []domain.ScoredChunk) domain.Verdict {
	reasons := []string{}
	add := func(reason string) {
		for _, r := range reasons {
			if r == reason {
				return
			}
		}
		reasons = append(reasons, reason)
	}

	if policy.MinSources > 0 && domain.DistinctSources(candidates) < policy.MinSources {
		add(domain.ReasonInsufficientSourceDiversity)
	}

	for _, rule := range policy.RequiredTags {
		if !anyTagMatches(rule, candidates) {
			add(rule.Reason)
		}
	}

	if len(candidates) == 0 {
		add(domain.ReasonEmptyCandidateSet)
	}

	return domain.Verdict{Met: len(reasons) == 0, Reasons: reasons}
}

func anyTagMatches(rule domain.TagRule, candidates []domain.ScoredChunk) bool {
	for i := range candidates {
		for _, tag := range candidates[i].Chunk.Tags {
			if rule.Matches(tag) {
				return true
			}
		}
	}
	return false
}
