package contract

import "time"

// Metadata keys shared across stages.
const (
	MetaType    = "type"
	MetaSource  = "source"
	MetaBlocked = "blocked"
	MetaReason  = "reason"
	MetaMatch   = "match"
	MetaScore   = "score"
	MetaMode    = "mode"
)

// TurnResult is the output of one routed turn. It is built exactly once by
// the claiming stage and never mutated afterwards.
type TurnResult struct {
	Response string            `json:"response"`
	Metadata map[string]string `json:"metadata"`
}

// Verdict is the claim-or-pass value every stage returns. A passing verdict
// may carry an advisory note and metadata annotations for the stage that
// eventually claims (safety disclaimers).
type Verdict struct {
	claimed     bool
	result      TurnResult
	note        string
	annotations map[string]string
}

// Claim builds a verdict that ends the turn with res.
func Claim(res TurnResult) Verdict {
	return Verdict{claimed: true, result: res}
}

// Pass defers to the next stage in order.
func Pass() Verdict {
	return Verdict{}
}

// PassWithNote defers while attaching an advisory note and metadata
// annotations to be merged into the eventual generation result.
func PassWithNote(note string, annotations map[string]string) Verdict {
	return Verdict{note: note, annotations: annotations}
}

// Claimed reports whether the verdict ends the turn, returning the result
// when it does.
func (v Verdict) Claimed() (TurnResult, bool) {
	return v.result, v.claimed
}

// Note returns the advisory note carried by a passing verdict, if any.
func (v Verdict) Note() (string, map[string]string) {
	return v.note, v.annotations
}

// KnowledgeHit is one scored knowledge-base result. Score is in [0,1].
type KnowledgeHit struct {
	CardID  int64   `json:"card_id"`
	Source  string  `json:"source"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Card is a knowledge-base record.
type Card struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body,omitempty"`
	Source    string    `json:"source"`
	Reference string    `json:"reference"`
	Grade     string    `json:"grade,omitempty"`
	Tags      string    `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// GenerateRequest carries one generation call's input plus the session
// context the model is allowed to see.
type GenerateRequest struct {
	Text     string
	ModeHint string
	History  []string
}

// GenerateResult is a successful completion.
type GenerateResult struct {
	Text     string
	Provider string
	Model    string
}
