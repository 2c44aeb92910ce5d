package stage

import (
	"context"
	"strings"

	contractx "github.com/raahib/raahib/agent/contract"
	statex "github.com/raahib/raahib/agent/state"
)

// Static policy phrase sets. Matching is substring on the lowered input,
// so multi-word phrases match as written.
var (
	disallowedRequestPhrases = []string{
		"build a bomb",
		"make explosives",
		"bypass law enforcement",
	}

	crisisPhrases = []string{
		"suicide",
		"kill myself",
		"end my life",
		"self-harm",
		"hurt myself",
	}

	healthDiagnosisPhrases = []string{
		"diagnose",
		"diagnosis",
		"what disease",
		"medical certainty",
	}
)

const (
	refusalDisallowed = "I can't help with dangerous or illegal requests."
	refusalCrisis     = "I care about your safety. If you're in immediate danger, call local emergency services now. " +
		"You can also contact a crisis hotline in your country right away."
	healthDisclaimer = "I can share general health information, but this is not a diagnosis."
)

// SafetyGate blocks disallowed content before it can reach knowledge lookup
// or generation. It claims refusals, and in health mode it may annotate a
// passing verdict with a disclaimer instead of claiming.
type SafetyGate struct{}

var _ contractx.Stage = (*SafetyGate)(nil)

func NewSafetyGate() *SafetyGate {
	return &SafetyGate{}
}

func (g *SafetyGate) Name() string { return "safety" }

func (g *SafetyGate) TryHandle(ctx context.Context, text string, st *statex.SessionState) contractx.Verdict {
	lowered := strings.ToLower(text)

	if matchesAny(lowered, disallowedRequestPhrases) {
		return contractx.Claim(contractx.TurnResult{
			Response: refusalDisallowed,
			Metadata: map[string]string{
				contractx.MetaType:    "safety",
				contractx.MetaBlocked: "true",
				contractx.MetaReason:  "disallowed_domain",
			},
		})
	}

	if st.Mode() == statex.ModeMood && matchesAny(lowered, crisisPhrases) {
		return contractx.Claim(contractx.TurnResult{
			Response: refusalCrisis,
			Metadata: map[string]string{
				contractx.MetaType:    "safety",
				contractx.MetaBlocked: "true",
				contractx.MetaReason:  "crisis_guidance",
			},
		})
	}

	if st.Mode() == statex.ModeHealth && matchesAny(lowered, healthDiagnosisPhrases) {
		return contractx.PassWithNote(healthDisclaimer, map[string]string{
			"safety_note": "health_disclaimer",
		})
	}

	return contractx.Pass()
}

func matchesAny(lowered string, phrases []string) bool {
	for _, phrase := range phrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}
