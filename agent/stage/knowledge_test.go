package stage

import (
	"context"
	"errors"
	"testing"

	contractx "github.com/raahib/raahib/agent/contract"
	statex "github.com/raahib/raahib/agent/state"
)

func TestKnowledgeStrongMatchClaims(t *testing.T) {
	t.Parallel()

	kb := &fakeKB{hits: []contractx.KnowledgeHit{
		{CardID: 3, Source: "notes", Snippet: "Mitochondria: powerhouse of the cell", Score: 0.88},
	}}
	stage := NewKnowledgeStage(kb, 0.72)
	st := newTestState(t, statex.ModeGeneral)

	res, claimed := stage.TryHandle(context.Background(), "mitochondria", st).Claimed()
	if !claimed {
		t.Fatal("expected a strong-match claim")
	}
	if res.Metadata["source"] != "kb" || res.Metadata["match"] != "strong" {
		t.Fatalf("metadata = %v", res.Metadata)
	}
	if res.Metadata["score"] != "0.88" {
		t.Fatalf("score = %q", res.Metadata["score"])
	}
	if res.Response != "KB strong match from notes: Mitochondria: powerhouse of the cell" {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestKnowledgePicksHighestScore(t *testing.T) {
	t.Parallel()

	kb := &fakeKB{hits: []contractx.KnowledgeHit{
		{Source: "a", Snippet: "weak", Score: 0.40},
		{Source: "b", Snippet: "strong", Score: 0.95},
	}}
	stage := NewKnowledgeStage(kb, 0.72)

	res, claimed := stage.TryHandle(context.Background(), "query", newTestState(t, statex.ModeGeneral)).Claimed()
	if !claimed {
		t.Fatal("expected a claim")
	}
	if res.Response != "KB strong match from b: strong" {
		t.Fatalf("response = %q", res.Response)
	}
}

func TestKnowledgeWeakMatchPasses(t *testing.T) {
	t.Parallel()

	kb := &fakeKB{hits: []contractx.KnowledgeHit{
		{Source: "notes", Snippet: "marginal", Score: 0.71},
	}}
	stage := NewKnowledgeStage(kb, 0.72)

	if _, claimed := stage.TryHandle(context.Background(), "query", newTestState(t, statex.ModeGeneral)).Claimed(); claimed {
		t.Fatal("a weak match must pass, not partially answer")
	}
}

func TestKnowledgeEmptyAndErrorPass(t *testing.T) {
	t.Parallel()

	st := newTestState(t, statex.ModeGeneral)

	empty := NewKnowledgeStage(&fakeKB{}, 0.72)
	if _, claimed := empty.TryHandle(context.Background(), "query", st).Claimed(); claimed {
		t.Fatal("no hits must pass")
	}

	failing := NewKnowledgeStage(&fakeKB{err: errors.New("backend down")}, 0.72)
	if _, claimed := failing.TryHandle(context.Background(), "query", st).Claimed(); claimed {
		t.Fatal("lookup errors must degrade to a pass")
	}
	if len(st.Memory()) != 0 {
		t.Fatal("passing must not mutate state")
	}
}

func TestKnowledgeThresholdFallsBackToDefault(t *testing.T) {
	t.Parallel()

	kb := &fakeKB{hits: []contractx.KnowledgeHit{{Source: "notes", Snippet: "hit", Score: 0.75}}}

	if _, claimed := NewKnowledgeStage(kb, -1).TryHandle(context.Background(), "q", newTestState(t, statex.ModeGeneral)).Claimed(); !claimed {
		t.Fatal("invalid threshold should fall back to the default gate")
	}
}
