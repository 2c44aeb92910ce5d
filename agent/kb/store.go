package kb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	contractx "github.com/raahib/raahib/agent/contract"
)

const (
	defaultCacheTTL     = 5 * time.Minute
	defaultCacheSweep   = 10 * time.Minute
	snippetMaxBodyRunes = 160
)

type Config struct {
	Path     string        `envconfig:"PATH" split_words:"true"`
	CacheTTL time.Duration `envconfig:"CACHE_TTL" split_words:"true" default:"5m"`
}

// Enabled reports whether a card store should be opened at all. An empty
// path selects the stub knowledge base.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Path) != ""
}

type cardRow struct {
	bun.BaseModel `bun:"table:kb_cards,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Kind      string    `bun:"kind,notnull"`
	Title     string    `bun:"title,notnull"`
	Body      string    `bun:"body"`
	Source    string    `bun:"source,notnull"`
	Reference string    `bun:"reference,notnull"`
	Grade     string    `bun:"grade"`
	Tags      string    `bun:"tags"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Store is a local SQLite-backed card catalog. Search scores cards by token
// overlap with the query and memoizes results until the next write.
type Store struct {
	db    *bun.DB
	cache *gocache.Cache
	now   func() time.Time
}

var _ contractx.CardCatalog = (*Store)(nil)

// Open creates (or reuses) the card database at path and ensures the
// schema exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("kb path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create kb directory: %w", err)
		}
	}

	sqldb, err := sql.Open(sqliteshim.ShimName, "file:"+path+"?cache=shared")
	if err != nil {
		return nil, fmt.Errorf("open kb database: %w", err)
	}

	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}

	store := &Store{
		db:    bun.NewDB(sqldb, sqlitedialect.New()),
		cache: gocache.New(ttl, defaultCacheSweep),
		now:   time.Now,
	}
	if err := store.init(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().
		Model((*cardRow)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create kb schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Add(ctx context.Context, card contractx.Card) (contractx.Card, error) {
	if strings.TrimSpace(card.Title) == "" {
		return contractx.Card{}, fmt.Errorf("%w: card title is required", contractx.ErrValidation)
	}

	row := toRow(card)
	row.ID = 0
	row.CreatedAt = s.now().UTC()

	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return contractx.Card{}, fmt.Errorf("insert kb card: %w", err)
	}

	s.cache.Flush()
	log.Debug().Int64("card_id", row.ID).Str("title", row.Title).Msg("kb card added")
	return toCard(row), nil
}

func (s *Store) Get(ctx context.Context, id int64) (contractx.Card, error) {
	var row cardRow
	err := s.db.NewSelect().Model(&row).Where("c.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return contractx.Card{}, contractx.ErrCardNotFound
	}
	if err != nil {
		return contractx.Card{}, fmt.Errorf("load kb card: %w", err)
	}
	return toCard(row), nil
}

func (s *Store) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.NewDelete().Model((*cardRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("delete kb card: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete kb card: %w", err)
	}
	if affected > 0 {
		s.cache.Flush()
	}
	return affected > 0, nil
}

// ExportJSON writes every card to path as indented JSON and returns the
// absolute path written.
func (s *Store) ExportJSON(ctx context.Context, path string) (string, error) {
	var rows []cardRow
	if err := s.db.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return "", fmt.Errorf("load kb cards: %w", err)
	}

	cards := make([]contractx.Card, 0, len(rows))
	for _, row := range rows {
		cards = append(cards, toCard(row))
	}

	payload, err := json.MarshalIndent(cards, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal kb export: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve export path: %w", err)
	}
	if err := os.WriteFile(abs, payload, 0o644); err != nil {
		return "", fmt.Errorf("write kb export: %w", err)
	}
	return abs, nil
}

// Search scores every card against the query by unique-token overlap and
// returns hits with score > 0, strongest first.
func (s *Store) Search(ctx context.Context, query string) ([]contractx.KnowledgeHit, error) {
	key := strings.Join(tokenize(query), " ")
	if key == "" {
		return nil, nil
	}
	if cached, found := s.cache.Get(key); found {
		return append([]contractx.KnowledgeHit(nil), cached.([]contractx.KnowledgeHit)...), nil
	}

	var rows []cardRow
	if err := s.db.NewSelect().Model(&rows).Scan(ctx); err != nil {
		return nil, fmt.Errorf("search kb cards: %w", err)
	}

	queryTokens := tokenize(query)
	hits := make([]contractx.KnowledgeHit, 0, len(rows))
	for _, row := range rows {
		score := overlapScore(queryTokens, tokenize(row.Title+" "+row.Body+" "+row.Tags))
		if score <= 0 {
			continue
		}
		hits = append(hits, contractx.KnowledgeHit{
			CardID:  row.ID,
			Source:  row.Source,
			Snippet: snippet(row),
			Score:   score,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	s.cache.Set(key, append([]contractx.KnowledgeHit(nil), hits...), gocache.DefaultExpiration)
	return hits, nil
}

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)
	seen := make(map[string]struct{}, len(raw))
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		tokens = append(tokens, tok)
	}
	return tokens
}

// overlapScore is the fraction of query tokens present in the card, so a
// query fully covered by a card scores 1.0.
func overlapScore(queryTokens, cardTokens []string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	card := make(map[string]struct{}, len(cardTokens))
	for _, tok := range cardTokens {
		card[tok] = struct{}{}
	}
	matched := 0
	for _, tok := range queryTokens {
		if _, ok := card[tok]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTokens))
}

func snippet(row cardRow) string {
	body := strings.TrimSpace(row.Body)
	if body == "" {
		return row.Title
	}
	runes := []rune(body)
	if len(runes) > snippetMaxBodyRunes {
		body = string(runes[:snippetMaxBodyRunes]) + "…"
	}
	return row.Title + ": " + body
}

func toRow(card contractx.Card) cardRow {
	return cardRow{
		ID:        card.ID,
		Kind:      card.Kind,
		Title:     card.Title,
		Body:      card.Body,
		Source:    card.Source,
		Reference: card.Reference,
		Grade:     card.Grade,
		Tags:      card.Tags,
		CreatedAt: card.CreatedAt,
	}
}

func toCard(row cardRow) contractx.Card {
	return contractx.Card{
		ID:        row.ID,
		Kind:      row.Kind,
		Title:     row.Title,
		Body:      row.Body,
		Source:    row.Source,
		Reference: row.Reference,
		Grade:     row.Grade,
		Tags:      row.Tags,
		CreatedAt: row.CreatedAt,
	}
}
