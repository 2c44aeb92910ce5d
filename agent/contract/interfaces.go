package contract

import (
	"context"

	statex "github.com/raahib/raahib/agent/state"
)

// Stage is the claim-or-pass contract every routing stage satisfies. A stage
// must not mutate session state unless it claims the turn.
type Stage interface {
	Name() string
	TryHandle(ctx context.Context, text string, st *statex.SessionState) Verdict
}

// KnowledgeBase is the search boundary the router depends on. A lookup that
// finds nothing returns an empty slice and a nil error; implementations must
// not use nil-vs-empty to signal anything.
type KnowledgeBase interface {
	Search(ctx context.Context, query string) ([]KnowledgeHit, error)
}

// CardCatalog is the optional management surface of a knowledge base,
// exercised by kb:* commands. The default stub does not implement it.
type CardCatalog interface {
	KnowledgeBase
	Add(ctx context.Context, card Card) (Card, error)
	Get(ctx context.Context, id int64) (Card, error)
	Delete(ctx context.Context, id int64) (bool, error)
	ExportJSON(ctx context.Context, path string) (string, error)
}

// TextGenerator is the cloud LLM boundary used by the generation stage.
type TextGenerator interface {
	Enabled() bool
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// Prompter supplies interactive input for commands that need more than one
// line (kb:add). The REPL wires a stdin-backed one; tests use fakes.
type Prompter interface {
	ReadLine(prompt string) (string, error)
	ReadMultiline(prompt string) (string, error)
}
