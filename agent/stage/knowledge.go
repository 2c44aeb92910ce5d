package stage

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/raahib/raahib/agent/contract"
	statex "github.com/raahib/raahib/agent/state"
)

// DefaultStrongMatchThreshold gates direct knowledge answers. Overridable
// via ROUTER_STRONG_MATCH_THRESHOLD; there is no calibration behind the
// default beyond the reference value.
const DefaultStrongMatchThreshold = 0.72

// KnowledgeStage answers directly from the knowledge base when the top hit
// clears the strong-match threshold; anything weaker defers entirely to
// generation. Lookup failures degrade to a pass, never to a failed turn.
type KnowledgeStage struct {
	kb        contractx.KnowledgeBase
	threshold float64
}

var _ contractx.Stage = (*KnowledgeStage)(nil)

func NewKnowledgeStage(kb contractx.KnowledgeBase, threshold float64) *KnowledgeStage {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultStrongMatchThreshold
	}
	return &KnowledgeStage{
		kb:        kb,
		threshold: threshold,
	}
}

func (k *KnowledgeStage) Name() string { return "knowledge" }

func (k *KnowledgeStage) TryHandle(ctx context.Context, text string, st *statex.SessionState) contractx.Verdict {
	hits, err := k.kb.Search(ctx, text)
	if err != nil {
		log.Warn().Err(err).Msg("knowledge lookup failed, passing through")
		return contractx.Pass()
	}
	if len(hits) == 0 {
		return contractx.Pass()
	}

	top := hits[0]
	for _, hit := range hits[1:] {
		if hit.Score > top.Score {
			top = hit
		}
	}
	if top.Score < k.threshold {
		return contractx.Pass()
	}

	return contractx.Claim(contractx.TurnResult{
		Response: fmt.Sprintf("KB strong match from %s: %s", top.Source, top.Snippet),
		Metadata: map[string]string{
			contractx.MetaType:   "knowledge",
			contractx.MetaSource: "kb",
			contractx.MetaMatch:  "strong",
			contractx.MetaScore:  fmt.Sprintf("%.2f", top.Score),
		},
	})
}
