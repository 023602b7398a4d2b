package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okhsunrog/llm-relay/client"
	"github.com/okhsunrog/llm-relay/internal/config"
	"github.com/okhsunrog/llm-relay/internal/server"
)

var version = "dev"

const usage = `Usage: llm-relay <command> [flags]

Commands:
  serve     Start the relay daemon
  complete  One-shot completion against the configured upstream
  embed     Embed inputs and print the resulting vectors
  version   Print the build version`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = cmdServe(ctx, os.Args[2:])
	case "complete":
		err = cmdComplete(ctx, os.Args[2:])
	case "embed":
		err = cmdEmbed(ctx, os.Args[2:])
	case "version":
		fmt.Printf("llm-relay %s\n", version)
	case "help", "-h", "--help":
		fmt.Println(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n%s\n", os.Args[1], usage)
		os.Exit(1)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to the YAML configuration file")
	listen := fs.String("listen", "", "Override the configured listen address")
	fs.Parse(args)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	setupLogging(cfg.LogLevel)

	cl, err := client.New(client.Config{
		Provider:  cfg.Upstream.Provider,
		BaseURL:   cfg.Upstream.BaseURL,
		APIKey:    cfg.Upstream.APIKey,
		Model:     cfg.Upstream.Model,
		MaxTokens: cfg.Upstream.MaxTokens,
		Timeout:   time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	srv, err := server.New(cfg, cl)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

func cmdComplete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("complete", flag.ExitOnError)
	provider := fs.String("provider", client.ProviderAnthropic, "Upstream provider (anthropic|openai)")
	model := fs.String("model", "", "Model name; a trailing (effort) selects a thinking budget")
	system := fs.String("system", "", "System prompt")
	effort := fs.String("effort", "", "Thinking effort (none|low|medium|high|max or a token budget)")
	maxTokens := fs.Int("max-tokens", 0, "Response token limit")
	baseURL := fs.String("base-url", "", "Override the upstream base URL")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Parse(args)

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		return errors.New("complete requires a prompt argument")
	}
	setupVerbosity(*verbose)

	cl, err := client.New(upstreamFromEnv(*provider, *baseURL, *model))
	if err != nil {
		return err
	}

	text, err := cl.Complete(ctx, *system, prompt, &client.ChatOptions{
		Effort:    *effort,
		MaxTokens: *maxTokens,
	})
	if err != nil {
		return err
	}
	fmt.Println(text)
	return nil
}

func cmdEmbed(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	model := fs.String("model", "", "Embedding model name")
	baseURL := fs.String("base-url", "", "Override the upstream base URL")
	verbose := fs.Bool("verbose", false, "Enable debug logging")
	fs.Parse(args)

	input := fs.Args()
	if len(input) == 0 {
		return errors.New("embed requires at least one input argument")
	}
	setupVerbosity(*verbose)

	cl, err := client.New(upstreamFromEnv(client.ProviderOpenAICompatible, *baseURL, *model))
	if err != nil {
		return err
	}

	resp, err := cl.Embed(ctx, input, *model)
	if err != nil {
		return err
	}
	for i, vec := range resp.Vectors {
		head := vec
		if len(head) > 4 {
			head = head[:4]
		}
		fmt.Printf("[%d] dims=%d head=%v\n", i, len(vec), head)
	}
	if resp.Usage.InputTokens > 0 {
		fmt.Printf("input_tokens=%d\n", resp.Usage.InputTokens)
	}
	return nil
}

// upstreamFromEnv assembles a client configuration for the one-shot
// commands, which take credentials from the environment rather than a
// config file.
func upstreamFromEnv(provider, baseURL, model string) client.Config {
	cfg := client.Config{
		Provider: provider,
		BaseURL:  firstNonEmpty(baseURL, os.Getenv("LLM_RELAY_UPSTREAM_BASE_URL")),
		APIKey:   os.Getenv("LLM_RELAY_UPSTREAM_API_KEY"),
		Model:    firstNonEmpty(model, os.Getenv("LLM_RELAY_UPSTREAM_MODEL")),
	}
	if cfg.APIKey == "" {
		switch provider {
		case client.ProviderOpenAICompatible:
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	return cfg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func setupLogging(level string) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func setupVerbosity(verbose bool) {
	if verbose {
		setupLogging("debug")
		return
	}
	setupLogging("warn")
}
