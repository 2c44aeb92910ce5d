package stage

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/raahib/raahib/agent/contract"
	statex "github.com/raahib/raahib/agent/state"
)

const memoryShowWindow = 5

// CommandStage recognizes control syntax and fully handles it. Anything it
// recognizes is claimed, including malformed sub-arguments; only
// non-command input passes through.
type CommandStage struct {
	kb       contractx.KnowledgeBase
	catalog  contractx.CardCatalog
	prompter contractx.Prompter
	now      func() time.Time
}

var _ contractx.Stage = (*CommandStage)(nil)

// NewCommandStage wires the command handlers. catalog and prompter may be
// nil; the kb:* management commands then claim an unavailability response.
func NewCommandStage(kb contractx.KnowledgeBase, catalog contractx.CardCatalog, prompter contractx.Prompter) *CommandStage {
	if kb == nil && catalog != nil {
		kb = catalog
	}
	return &CommandStage{
		kb:       kb,
		catalog:  catalog,
		prompter: prompter,
		now:      time.Now,
	}
}

func (c *CommandStage) Name() string { return "command" }

func (c *CommandStage) TryHandle(ctx context.Context, text string, st *statex.SessionState) contractx.Verdict {
	cleaned := strings.TrimSpace(text)
	if cleaned == "" {
		return contractx.Pass()
	}
	lowered := strings.ToLower(cleaned)

	switch {
	case strings.HasPrefix(lowered, "mode:"):
		return c.handleMode(cleaned, st)
	case lowered == "status":
		return c.handleStatus(st)
	case strings.HasPrefix(lowered, "kb:search "):
		return c.handleSearch(ctx, argAfter(cleaned, "kb:search "))
	case strings.HasPrefix(lowered, "kb:show "):
		return c.handleShow(ctx, argAfter(cleaned, "kb:show "))
	case strings.HasPrefix(lowered, "kb:delete "):
		return c.handleDelete(ctx, argAfter(cleaned, "kb:delete "))
	case strings.HasPrefix(lowered, "kb:export "):
		return c.handleExport(ctx, argAfter(cleaned, "kb:export "))
	case lowered == "kb:add":
		return c.handleAdd(ctx)
	case lowered == "memory:show":
		return c.handleMemoryShow(st)
	default:
		return contractx.Pass()
	}
}

func argAfter(text, prefix string) string {
	return strings.TrimSpace(text[len(prefix):])
}

func (c *CommandStage) handleMode(cleaned string, st *statex.SessionState) contractx.Verdict {
	name := strings.TrimSpace(strings.SplitN(cleaned, ":", 2)[1])
	mode, ok := statex.ParseMode(name)
	if !ok {
		allowed := make([]string, 0, len(statex.Modes()))
		for _, m := range statex.Modes() {
			allowed = append(allowed, m.String())
		}
		return contractx.Claim(contractx.TurnResult{
			Response: fmt.Sprintf("Unknown mode %q. Allowed: %s", name, strings.Join(allowed, ", ")),
			Metadata: commandMeta("mode", false),
		})
	}

	st.SetMode(mode, c.now())
	meta := commandMeta("mode", true)
	meta[contractx.MetaMode] = mode.String()
	return contractx.Claim(contractx.TurnResult{
		Response: fmt.Sprintf("Mode set to %s.", mode),
		Metadata: meta,
	})
}

func (c *CommandStage) handleStatus(st *statex.SessionState) contractx.Verdict {
	status := st.Status()
	meta := commandMeta("status", true)
	meta[contractx.MetaMode] = status.Mode.String()
	meta["memory_count"] = strconv.Itoa(status.MemoryCount)
	return contractx.Claim(contractx.TurnResult{
		Response: status.String(),
		Metadata: meta,
	})
}

func (c *CommandStage) handleSearch(ctx context.Context, query string) contractx.Verdict {
	if c.kb == nil {
		return c.catalogUnavailable("kb_search")
	}
	if query == "" {
		return contractx.Claim(contractx.TurnResult{
			Response: "kb:search needs a query.",
			Metadata: kbCommandMeta("kb_search", false),
		})
	}

	hits, err := c.kb.Search(ctx, query)
	if err != nil {
		log.Warn().Err(err).Str("query", query).Msg("kb:search failed")
		return contractx.Claim(contractx.TurnResult{
			Response: "KB search failed.",
			Metadata: kbCommandMeta("kb_search", false),
		})
	}
	if len(hits) == 0 {
		meta := kbCommandMeta("kb_search", true)
		meta["count"] = "0"
		return contractx.Claim(contractx.TurnResult{
			Response: "No KB hits found.",
			Metadata: meta,
		})
	}

	lines := make([]string, 0, len(hits))
	for _, hit := range hits {
		lines = append(lines, fmt.Sprintf("#%d | %s | %s | %.2f", hit.CardID, hit.Source, hit.Snippet, hit.Score))
	}
	meta := kbCommandMeta("kb_search", true)
	meta["count"] = strconv.Itoa(len(hits))
	return contractx.Claim(contractx.TurnResult{
		Response: strings.Join(lines, "\n"),
		Metadata: meta,
	})
}

func (c *CommandStage) handleShow(ctx context.Context, rawID string) contractx.Verdict {
	id, verdict, ok := c.parseCardID("kb_show", rawID)
	if !ok {
		return verdict
	}

	card, err := c.catalog.Get(ctx, id)
	if err != nil {
		return contractx.Claim(contractx.TurnResult{
			Response: "Card not found.",
			Metadata: kbCommandMeta("kb_show", false),
		})
	}

	meta := kbCommandMeta("kb_show", true)
	meta["card_id"] = strconv.FormatInt(card.ID, 10)
	return contractx.Claim(contractx.TurnResult{
		Response: formatCard(card),
		Metadata: meta,
	})
}

func (c *CommandStage) handleDelete(ctx context.Context, rawID string) contractx.Verdict {
	id, verdict, ok := c.parseCardID("kb_delete", rawID)
	if !ok {
		return verdict
	}

	deleted, err := c.catalog.Delete(ctx, id)
	if err != nil {
		log.Warn().Err(err).Int64("card_id", id).Msg("kb:delete failed")
		return contractx.Claim(contractx.TurnResult{
			Response: "KB delete failed.",
			Metadata: kbCommandMeta("kb_delete", false),
		})
	}

	meta := kbCommandMeta("kb_delete", deleted)
	meta["card_id"] = strconv.FormatInt(id, 10)
	response := "Card not found."
	if deleted {
		response = "Deleted."
	}
	return contractx.Claim(contractx.TurnResult{
		Response: response,
		Metadata: meta,
	})
}

func (c *CommandStage) handleExport(ctx context.Context, path string) contractx.Verdict {
	if c.catalog == nil {
		return c.catalogUnavailable("kb_export")
	}
	if path == "" {
		return contractx.Claim(contractx.TurnResult{
			Response: "kb:export needs a destination path.",
			Metadata: kbCommandMeta("kb_export", false),
		})
	}

	written, err := c.catalog.ExportJSON(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("kb:export failed")
		return contractx.Claim(contractx.TurnResult{
			Response: "KB export failed.",
			Metadata: kbCommandMeta("kb_export", false),
		})
	}

	meta := kbCommandMeta("kb_export", true)
	meta["path"] = written
	return contractx.Claim(contractx.TurnResult{
		Response: "Exported KB to " + written,
		Metadata: meta,
	})
}

func (c *CommandStage) handleAdd(ctx context.Context) contractx.Verdict {
	if c.catalog == nil {
		return c.catalogUnavailable("kb_add")
	}
	if c.prompter == nil {
		return contractx.Claim(contractx.TurnResult{
			Response: "kb:add needs an interactive session.",
			Metadata: kbCommandMeta("kb_add", false),
		})
	}

	card, err := c.promptCard()
	if err != nil {
		log.Warn().Err(err).Msg("kb:add input aborted")
		return contractx.Claim(contractx.TurnResult{
			Response: "kb:add aborted.",
			Metadata: kbCommandMeta("kb_add", false),
		})
	}

	added, err := c.catalog.Add(ctx, card)
	if err != nil {
		log.Warn().Err(err).Msg("kb:add failed")
		return contractx.Claim(contractx.TurnResult{
			Response: "KB add failed.",
			Metadata: kbCommandMeta("kb_add", false),
		})
	}

	meta := kbCommandMeta("kb_add", true)
	meta["card_id"] = strconv.FormatInt(added.ID, 10)
	return contractx.Claim(contractx.TurnResult{
		Response: fmt.Sprintf("Added KB card #%d: %s", added.ID, added.Title),
		Metadata: meta,
	})
}

func (c *CommandStage) promptCard() (contractx.Card, error) {
	var card contractx.Card
	fields := []struct {
		prompt string
		dest   *string
	}{
		{"kind: ", &card.Kind},
		{"title: ", &card.Title},
		{"source: ", &card.Source},
		{"reference: ", &card.Reference},
		{"grade (optional): ", &card.Grade},
		{"tags (optional): ", &card.Tags},
	}
	for _, f := range fields {
		value, err := c.prompter.ReadLine(f.prompt)
		if err != nil {
			return contractx.Card{}, err
		}
		*f.dest = strings.TrimSpace(value)
	}

	body, err := c.prompter.ReadMultiline("body (optional multiline)")
	if err != nil {
		return contractx.Card{}, err
	}
	card.Body = strings.TrimSpace(body)
	return card, nil
}

func (c *CommandStage) handleMemoryShow(st *statex.SessionState) contractx.Verdict {
	entries := st.Recent(memoryShowWindow)
	response := "Memory is empty."
	if len(entries) > 0 {
		response = "Recent memory: " + strings.Join(entries, " | ")
	}
	meta := commandMeta("memory_show", true)
	meta["count"] = strconv.Itoa(len(entries))
	return contractx.Claim(contractx.TurnResult{
		Response: response,
		Metadata: meta,
	})
}

func (c *CommandStage) parseCardID(name, rawID string) (int64, contractx.Verdict, bool) {
	if c.catalog == nil {
		return 0, c.catalogUnavailable(name), false
	}
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return 0, contractx.Claim(contractx.TurnResult{
			Response: "Invalid KB id.",
			Metadata: kbCommandMeta(name, false),
		}), false
	}
	return id, contractx.Verdict{}, true
}

func (c *CommandStage) catalogUnavailable(name string) contractx.Verdict {
	return contractx.Claim(contractx.TurnResult{
		Response: "KB catalog is not configured; set KB_PATH to enable it.",
		Metadata: kbCommandMeta(name, false),
	})
}

func formatCard(card contractx.Card) string {
	return strings.Join([]string{
		"kind: " + card.Kind,
		"title: " + card.Title,
		"body: " + card.Body,
		"source: " + card.Source,
		"reference: " + card.Reference,
		"grade: " + card.Grade,
		"tags: " + card.Tags,
	}, "\n")
}

func commandMeta(name string, success bool) map[string]string {
	return map[string]string{
		contractx.MetaType: "command",
		"name":             name,
		"success":          strconv.FormatBool(success),
	}
}

func kbCommandMeta(name string, success bool) map[string]string {
	meta := commandMeta(name, success)
	meta[contractx.MetaSource] = "kb_command"
	return meta
}
