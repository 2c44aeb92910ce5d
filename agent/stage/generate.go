package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/raahib/raahib/agent/contract"
	statex "github.com/raahib/raahib/agent/state"
)

const (
	offlineMissingKey = "Offline fallback: no cloud API key configured. Set LLM_API_KEY to enable cloud responses."
	offlineCallFailed = "Offline fallback: cloud call failed, so local response mode is active."
	offlineEmpty      = "Cloud response unavailable; using offline fallback."

	historyWindow = 6
)

// GenerationStage is the terminal stage. It always claims: a cloud reply
// when the LLM collaborator succeeds, the offline template otherwise. On
// claim it appends the exchange to session memory.
type GenerationStage struct {
	llm contractx.TextGenerator
	now func() time.Time
}

var _ contractx.Stage = (*GenerationStage)(nil)

func NewGenerationStage(llm contractx.TextGenerator) *GenerationStage {
	return &GenerationStage{
		llm: llm,
		now: time.Now,
	}
}

func (g *GenerationStage) Name() string { return "generation" }

// TryHandle satisfies the stage contract; generation never passes.
func (g *GenerationStage) TryHandle(ctx context.Context, text string, st *statex.SessionState) contractx.Verdict {
	return g.Handle(ctx, text, st)
}

func (g *GenerationStage) Handle(ctx context.Context, text string, st *statex.SessionState) contractx.Verdict {
	result := g.generate(ctx, text, st)

	st.Remember("user:"+text, g.now())
	st.Remember("assistant:"+result.Response, g.now())

	return contractx.Claim(result)
}

func (g *GenerationStage) generate(ctx context.Context, text string, st *statex.SessionState) contractx.TurnResult {
	if g.llm == nil || !g.llm.Enabled() {
		return offlineResult(offlineMissingKey, "missing_api_key")
	}

	hint := st.Mode().Hint()
	res, err := g.llm.Generate(ctx, contractx.GenerateRequest{
		Text:     text,
		ModeHint: fmt.Sprintf("tone=%s; verbosity=%s", hint.Tone, hint.Verbosity),
		History:  st.Recent(historyWindow),
	})
	if err != nil {
		log.Warn().Err(err).Msg("generation failed, answering offline")
		if errors.Is(err, contractx.ErrEmptyOutput) {
			return offlineResult(offlineEmpty, "empty_output")
		}
		return offlineResult(offlineCallFailed, "network_error")
	}

	return contractx.TurnResult{
		Response: res.Text,
		Metadata: map[string]string{
			contractx.MetaType:   "llm",
			contractx.MetaSource: "llm",
			"provider":           res.Provider,
			"model":              res.Model,
		},
	}
}

func offlineResult(response, reason string) contractx.TurnResult {
	return contractx.TurnResult{
		Response: response,
		Metadata: map[string]string{
			contractx.MetaType:   "llm",
			contractx.MetaSource: "offline",
			contractx.MetaReason: reason,
		},
	}
}
