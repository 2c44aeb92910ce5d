package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/raahib/raahib/agent/contract"
	kbx "github.com/raahib/raahib/agent/kb"
	llmx "github.com/raahib/raahib/agent/llm"
	routerx "github.com/raahib/raahib/agent/router"
	stagex "github.com/raahib/raahib/agent/stage"
	statex "github.com/raahib/raahib/agent/state"
	configx "github.com/raahib/raahib/pkg/config"
	_ "github.com/raahib/raahib/pkg/logger/autoload"
)

func main() {
	routerCfg := configx.MustNew[routerx.Config]("ROUTER")
	kbCfg := configx.MustNew[kbx.Config]("KB")
	llmCfg := configx.MustNew[llmx.Config]("LLM")

	ctx := context.Background()

	knowledge, catalog, closeKB, err := buildKnowledgeBase(ctx, *kbCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open knowledge base")
	}
	defer closeKB()

	var cloud contractx.TextGenerator
	if llmCfg.Enabled() {
		cloud = llmx.NewCloudLLM(*llmCfg)
	}

	st := statex.NewSessionState(routerCfg.MaxShortTermMemory, time.Now())
	prompter := &stdinPrompter{reader: bufio.NewReader(os.Stdin)}

	r, err := routerx.New(
		st,
		stagex.NewCommandStage(knowledge, catalog, prompter),
		stagex.NewSafetyGate(),
		stagex.NewKnowledgeStage(knowledge, routerCfg.StrongMatchThreshold),
		stagex.NewGenerationStage(cloud),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build router")
	}

	log.Info().Str("session_id", st.SessionID).Msg("session started")
	runREPL(ctx, r, prompter)
}

func runREPL(ctx context.Context, r *routerx.Router, prompter *stdinPrompter) {
	fmt.Println("raahib REPL. Type 'quit' to exit.")
	for {
		line, err := prompter.ReadLine("> ")
		if err != nil {
			fmt.Println("\nGoodbye.")
			return
		}

		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if lowered := strings.ToLower(text); lowered == "quit" || lowered == "exit" {
			fmt.Println("Goodbye.")
			return
		}

		result, err := r.Route(ctx, text)
		if err != nil {
			// Only empty input reaches here and blanks are skipped above.
			continue
		}

		fmt.Printf("response: %s\n", result.Response)
		fmt.Printf("metadata: %s\n", formatMetadata(result.Metadata))
	}
}

func buildKnowledgeBase(ctx context.Context, cfg kbx.Config) (contractx.KnowledgeBase, contractx.CardCatalog, func(), error) {
	if !cfg.Enabled() {
		return kbx.Stub{}, nil, func() {}, nil
	}

	store, err := kbx.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	return store, store, func() {
		if cerr := store.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("close knowledge base")
		}
	}, nil
}

func formatMetadata(metadata map[string]string) string {
	payload, err := json.Marshal(metadata)
	if err != nil {
		return "{}"
	}
	return string(payload)
}

// stdinPrompter reads REPL input and the multiline bodies used by kb:add.
type stdinPrompter struct {
	reader *bufio.Reader
}

var _ contractx.Prompter = (*stdinPrompter)(nil)

func (p *stdinPrompter) ReadLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := p.reader.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadMultiline collects lines until a single '.' line.
func (p *stdinPrompter) ReadMultiline(prompt string) (string, error) {
	fmt.Println(prompt)
	fmt.Println("Finish with a single '.' on its own line.")

	var lines []string
	for {
		line, err := p.ReadLine("")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(line) == "." {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n"), nil
}
