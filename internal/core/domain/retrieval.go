package domain

import "strings"

// Mode selects the evidentiary policy applied to a retrieval.
type Mode string

// Available retrieval modes.
const (
	// ModeTeacher answers general questions and requires source diversity.
	ModeTeacher Mode = "teacher"

	// ModeAssistant proposes concrete actions and requires ATT&CK and tool grounding.
	ModeAssistant Mode = "assistant"
)

// IsValid returns true if the mode is recognised.
func (m Mode) IsValid() bool {
	return m == ModeTeacher || m == ModeAssistant
}

// String returns the string representation.
func (m Mode) String() string {
	return string(m)
}

// ParseMode converts user input to a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", ErrInvalidInput
	}
	return m, nil
}

// Rejection reasons surfaced in Verdict.Reasons.
const (
	ReasonInsufficientSourceDiversity = "insufficient_source_diversity"
	ReasonMissingAttackMapping        = "missing_attack_mapping"
	ReasonMissingToolReference        = "missing_tool_reference"
	ReasonEmptyCandidateSet           = "empty_candidate_set"
)

// TagRule requires at least one candidate to carry a matching tag.
// A tag matches when it equals one of Tags or starts with one of Prefixes.
type TagRule struct {
	Name     string   `json:"name"`
	Reason   string   `json:"reason"`
	Prefixes []string `json:"prefixes,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Matches reports whether tag satisfies the rule.
func (r TagRule) Matches(tag string) bool {
	for _, t := range r.Tags {
		if tag == t {
			return true
		}
	}
	for _, p := range r.Prefixes {
		if strings.HasPrefix(tag, p) {
			return true
		}
	}
	return false
}

// RetrievalPolicy is the static admission configuration for one mode.
type RetrievalPolicy struct {
	Mode Mode `json:"mode"`

	// K is the number of candidates retrieved.
	K int `json:"k"`

	// MinSources is the minimum number of distinct source paths. Zero disables the check.
	MinSources int `json:"min_sources"`

	// RequiredTags are evaluated independently; each failing rule adds its reason.
	RequiredTags []TagRule `json:"required_tags,omitempty"`
}

// Validate checks the policy for missing or invalid parameters.
func (p RetrievalPolicy) Validate() error {
	field := "retrieval." + p.Mode.String()
	if !p.Mode.IsValid() {
		return NewConfigurationError("retrieval.mode", "unknown mode %q", p.Mode)
	}
	if p.K <= 0 {
		return NewConfigurationError(field+".k", "must be positive, got %d", p.K)
	}
	if p.MinSources < 0 {
		return NewConfigurationError(field+".min_sources", "must not be negative, got %d", p.MinSources)
	}
	for _, rule := range p.RequiredTags {
		if rule.Reason == "" {
			return NewConfigurationError(field+".required_tags", "rule %q has no reason", rule.Name)
		}
		if len(rule.Prefixes) == 0 && len(rule.Tags) == 0 {
			return NewConfigurationError(field+".required_tags", "rule %q has no prefixes or tags", rule.Name)
		}
	}
	return nil
}

// Verdict is the outcome of evaluating a policy against a candidate set.
// A rejection is a normal outcome, not an error.
type Verdict struct {
	Met     bool     `json:"met"`
	Reasons []string `json:"reasons"`
}

// QueryState is a step in the per-query state machine.
type QueryState string

// Query states in the order they are visited.
const (
	StateQueried             QueryState = "queried"
	StateCandidatesRetrieved QueryState = "candidates_retrieved"
	StatePolicyEvaluated     QueryState = "policy_evaluated"
	StateAdmitted            QueryState = "admitted"
	StateRejected            QueryState = "rejected"
)

// ScoredChunk is a retrieval candidate with its raw index score.
type ScoredChunk struct {
	Chunk SanitizedChunk `json:"chunk"`
	Score float64        `json:"score"`
}

// RetrievalResult is produced per query and never persisted.
type RetrievalResult struct {
	Query      string        `json:"query"`
	Mode       Mode          `json:"mode"`
	K          int           `json:"k"`
	Generation int64         `json:"generation"`
	Truncated  bool          `json:"truncated"`
	Chunks     []ScoredChunk `json:"chunks"`
	Verdict    Verdict       `json:"policy_verdict"`
	Trail      []QueryState  `json:"trail"`
}

// State returns the terminal state of the query.
func (r *RetrievalResult) State() QueryState {
	if len(r.Trail) == 0 {
		return StateQueried
	}
	return r.Trail[len(r.Trail)-1]
}

// Admitted reports whether the candidate set satisfied the policy.
func (r *RetrievalResult) Admitted() bool {
	return r.Verdict.Met
}

// DistinctSources returns the number of unique source paths in the candidate set.
func DistinctSources(chunks []ScoredChunk) int {
	seen := make(map[string]struct{}, len(chunks))
	for i := range chunks {
		seen[chunks[i].Chunk.SourcePath] = struct{}{}
	}
	return len(seen)
}
