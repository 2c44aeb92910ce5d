// Package router dispatches one turn of input through the fixed stage
// order: command, safety, knowledge, generation. The first stage to claim
// produces the Turn Result; generation is terminal and always claims.
package router

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/raahib/raahib/agent/contract"
	stagex "github.com/raahib/raahib/agent/stage"
	statex "github.com/raahib/raahib/agent/state"
)

type Config struct {
	StrongMatchThreshold float64 `envconfig:"STRONG_MATCH_THRESHOLD" split_words:"true" default:"0.72"`
	MaxShortTermMemory   int     `envconfig:"MAX_SHORT_TERM_MEMORY" split_words:"true" default:"20"`
}

// Router owns one session's dispatch loop. The stage order is fixed at
// construction and never changes at runtime: reordering would let unsafe
// content reach generation ahead of the safety gate, or let a command
// string be answered by the knowledge base.
type Router struct {
	state     *statex.SessionState
	commands  *stagex.CommandStage
	safety    *stagex.SafetyGate
	knowledge *stagex.KnowledgeStage
	generate  *stagex.GenerationStage
}

func New(
	st *statex.SessionState,
	commands *stagex.CommandStage,
	safety *stagex.SafetyGate,
	knowledge *stagex.KnowledgeStage,
	generate *stagex.GenerationStage,
) (*Router, error) {
	if st == nil {
		return nil, errors.New("session state is required")
	}
	if commands == nil {
		return nil, errors.New("command stage is required")
	}
	if safety == nil {
		return nil, errors.New("safety stage is required")
	}
	if knowledge == nil {
		return nil, errors.New("knowledge stage is required")
	}
	if generate == nil {
		return nil, errors.New("generation stage is required")
	}
	return &Router{
		state:     st,
		commands:  commands,
		safety:    safety,
		knowledge: knowledge,
		generate:  generate,
	}, nil
}

// Route runs one turn. Apart from empty-input validation it always returns
// a Turn Result: every stage failure degrades inside its stage. Each stage
// runs at most once.
func (r *Router) Route(ctx context.Context, text string) (contractx.TurnResult, error) {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return contractx.TurnResult{}, contractx.ErrEmptyInput
	}

	if res, ok := r.commands.TryHandle(ctx, cleaned, r.state).Claimed(); ok {
		log.Debug().Str("stage", r.commands.Name()).Msg("turn claimed")
		return res, nil
	}

	safetyVerdict := r.safety.TryHandle(ctx, cleaned, r.state)
	if res, ok := safetyVerdict.Claimed(); ok {
		log.Debug().Str("stage", r.safety.Name()).Msg("turn claimed")
		return res, nil
	}

	if res, ok := r.knowledge.TryHandle(ctx, cleaned, r.state).Claimed(); ok {
		log.Debug().Str("stage", r.knowledge.Name()).Msg("turn claimed")
		return res, nil
	}

	res, _ := r.generate.Handle(ctx, cleaned, r.state).Claimed()
	log.Debug().Str("stage", r.generate.Name()).Msg("turn claimed")

	// Safety annotations apply to generated replies only; a knowledge claim
	// is returned verbatim, matching the reference behavior.
	if note, annotations := safetyVerdict.Note(); note != "" {
		res.Response = strings.TrimSpace(note + " " + res.Response)
		for k, v := range annotations {
			res.Metadata[k] = v
		}
	}
	return res, nil
}
