// Command radar-classify runs one text through the oracle and prints the
// parsed facts and the targets they expand to. Nothing is stored or sent.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-radar-alerts/internal/classifier"
	"github.com/mr1hm/go-radar-alerts/internal/config"
	"github.com/mr1hm/go-radar-alerts/internal/logging"
	"github.com/mr1hm/go-radar-alerts/internal/observability"
	"github.com/mr1hm/go-radar-alerts/internal/pipeline"
	"github.com/mr1hm/go-radar-alerts/internal/registry"
)

func main() {
	text := flag.String("text", "", "message text; read from stdin when empty")
	source := flag.String("source", "Admin", "channel label given to the oracle")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logFile, err := logging.Setup(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		logging.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	reg, err := registry.Default()
	if cfg.Registry.Path != "" {
		reg, err = registry.Load(cfg.Registry.Path)
	}
	if err != nil {
		logging.Fatalf("Failed to load region registry: %v", err)
	}

	input := *text
	if input == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			logging.Fatalf("Failed to read stdin: %v", err)
		}
		input = string(b)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		logging.Fatalf("no text given")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout, reg, classifier.FromConfig(cfg.Oracle, reg, observability.NewMetricsForTesting()), input, *source); err != nil {
		logging.Fatalf("%v", err)
	}
}

func run(ctx context.Context, w io.Writer, reg *registry.Registry, oracle pipeline.Oracle, text, source string) error {
	if reg.IsBanned(text) {
		_, err := fmt.Fprintln(w, "denylisted: message would be dropped")
		return err
	}

	answer := oracle.Classify(ctx, text, source)
	fmt.Fprintf(w, "answer: %s\n", answer)

	facts, malformed := pipeline.ParseFacts(answer)
	for _, record := range malformed {
		fmt.Fprintf(w, "malformed: %q\n", record)
	}

	for _, fact := range facts {
		targets, sev, reason := pipeline.Resolve(reg, fact)
		if reason != "" {
			fmt.Fprintf(w, "fact %s/%s/%s: discarded (%s)\n", fact.Severity, fact.Region, fact.Hazard, reason)
			continue
		}
		fmt.Fprintf(w, "fact %s/%s/%s: %d target(s)\n", fact.Severity, fact.Region, fact.Hazard, len(targets))
		for _, t := range targets {
			fmt.Fprintf(w, "  %s %s -> %s\n", t.Region, t.HazardType, sev)
		}
	}
	return ctx.Err()
}
