package stage

import (
	"context"
	"fmt"
	"time"

	contractx "github.com/raahib/raahib/agent/contract"
)

func timeNowForTest() time.Time {
	return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
}

type fakeKB struct {
	hits  []contractx.KnowledgeHit
	err   error
	calls int
}

func (f *fakeKB) Search(ctx context.Context, query string) ([]contractx.KnowledgeHit, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]contractx.KnowledgeHit(nil), f.hits...), nil
}

type fakeCatalog struct {
	fakeKB
	cards   map[int64]contractx.Card
	nextID  int64
	addErr  error
	exports []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		cards:  make(map[int64]contractx.Card),
		nextID: 1,
	}
}

func (f *fakeCatalog) Add(ctx context.Context, card contractx.Card) (contractx.Card, error) {
	if f.addErr != nil {
		return contractx.Card{}, f.addErr
	}
	card.ID = f.nextID
	f.nextID++
	f.cards[card.ID] = card
	return card, nil
}

func (f *fakeCatalog) Get(ctx context.Context, id int64) (contractx.Card, error) {
	card, ok := f.cards[id]
	if !ok {
		return contractx.Card{}, contractx.ErrCardNotFound
	}
	return card, nil
}

func (f *fakeCatalog) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := f.cards[id]; !ok {
		return false, nil
	}
	delete(f.cards, id)
	return true, nil
}

func (f *fakeCatalog) ExportJSON(ctx context.Context, path string) (string, error) {
	f.exports = append(f.exports, path)
	return "/abs/" + path, nil
}

type fakeGenerator struct {
	enabled bool
	result  contractx.GenerateResult
	err     error
	calls   int
	lastReq contractx.GenerateRequest
}

func (f *fakeGenerator) Enabled() bool {
	return f.enabled
}

func (f *fakeGenerator) Generate(ctx context.Context, req contractx.GenerateRequest) (contractx.GenerateResult, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return contractx.GenerateResult{}, f.err
	}
	return f.result, nil
}

type fakePrompter struct {
	lines     []string
	multiline string
	err       error
}

func (f *fakePrompter) ReadLine(prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	if len(f.lines) == 0 {
		return "", fmt.Errorf("no scripted line for prompt %q", prompt)
	}
	line := f.lines[0]
	f.lines = f.lines[1:]
	return line, nil
}

func (f *fakePrompter) ReadMultiline(prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.multiline, nil
}
