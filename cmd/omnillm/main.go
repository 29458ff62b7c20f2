// Command omnillm is a thin CLI over the omnillm library: inspect providers
// and environment, run one-shot chat/stream/embedding calls, scaffold a
// config file, and serve the MCP integration.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/omnillm/omnillm"
	"github.com/omnillm/omnillm/cache"
	"github.com/omnillm/omnillm/config"
	"github.com/omnillm/omnillm/frameworks/mcpserver"
	"github.com/omnillm/omnillm/llm"
	omnilog "github.com/omnillm/omnillm/logger"
	"github.com/rivo/tview"
	"github.com/rs/zerolog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "providers":
		err = runProviders(args)
	case "env":
		err = runEnv(args)
	case "chat":
		err = runChat(args)
	case "stream":
		err = runStream(args)
	case "embed":
		err = runEmbed(args)
	case "init":
		err = runInit(args)
	case "mcp":
		err = runMCP(args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "omnillm: unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "omnillm: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: omnillm <command> [flags] [args]

Commands:
  providers   show registered providers and their configuration state
  env         show provider-related environment variables
  chat        send a one-shot prompt and print the reply
  stream      send a one-shot prompt and print chunks as they arrive
  embed       embed one or more texts and print the vectors as JSON
  init        write a starter config file
  mcp         serve chat and embedding as MCP tools over stdio

Run "omnillm <command> -h" for command flags.
`)
}

// setup loads configuration and builds the logger shared by all commands.
func setup(configPath string) (*config.Config, zerolog.Logger, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.Load(configPath)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, zerolog.Logger{}, err
	}
	return cfg, omnilog.Init(cfg.Global.LogLevel), nil
}

// buildAdapter resolves the provider, creates the adapter, and applies the
// retry and cache wrappers per configuration.
func buildAdapter(cfg *config.Config, logger zerolog.Logger, provider, model string) (llm.LLM, func(), error) {
	if provider == "" {
		provider = cfg.DefaultProvider()
	}

	registry := omnillm.DefaultRegistry(cfg, logger)
	var opts []llm.CreateOption
	if model != "" {
		opts = append(opts, llm.Model(model))
	}
	adapter, err := registry.Create(provider, opts...)
	if err != nil {
		return nil, nil, err
	}

	settings, _ := cfg.Settings(provider)
	settings = settings.WithDefaults()
	wrapped := llm.NewRetrying(adapter, *settings.MaxRetries, logger)

	cleanup := func() { _ = adapter.Close() }
	if cfg.Global.CacheOn() {
		store, err := cache.Open(cachePath(), logger)
		if err != nil {
			logger.Warn().Err(err).Msg("cache unavailable, continuing without it")
			return wrapped, cleanup, nil
		}
		if err := store.StartJanitor("@every 10m"); err != nil {
			logger.Warn().Err(err).Msg("cache janitor not started")
		}
		ttl := time.Duration(cfg.Global.CacheTTL) * time.Second
		wrapped = cache.Wrap(wrapped, store, ttl, logger)
		cleanup = func() {
			_ = adapter.Close()
			_ = store.Close()
		}
	}
	return wrapped, cleanup, nil
}

func cachePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "omnillm-cache.db"
	}
	return filepath.Join(home, ".omnillm", "cache.db")
}

func runProviders(args []string) error {
	fs := flag.NewFlagSet("providers", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	plain := fs.Bool("plain", false, "print a plain-text list instead of the interactive table")
	_ = fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	registry := omnillm.DefaultRegistry(cfg, logger)

	if *plain {
		for _, name := range registry.Providers() {
			entry, configured := cfg.LLM[name]
			marker := " "
			if name == cfg.DefaultProvider() {
				marker = "*"
			}
			state := "unconfigured"
			if configured {
				state = "configured"
				if entry.Model != "" {
					state += " (" + entry.Model + ")"
				}
			}
			fmt.Printf("%s %-10s %s\n", marker, name, state)
		}
		return nil
	}
	return showProvidersTable(registry, cfg)
}

func showProvidersTable(registry *llm.Registry, cfg *config.Config) error {
	table := tview.NewTable().SetBorders(false).SetSelectable(true, false)
	headers := []string{"PROVIDER", "CONFIGURED", "MODEL", "DEFAULT"}
	for c, h := range headers {
		table.SetCell(0, c, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for i, name := range registry.Providers() {
		entry, configured := cfg.LLM[name]
		state, model, def := "no", "-", ""
		if configured {
			state = "yes"
			if entry.Model != "" {
				model = entry.Model
			}
		}
		if name == cfg.DefaultProvider() {
			def = "*"
		}
		row := i + 1
		table.SetCell(row, 0, tview.NewTableCell(name))
		table.SetCell(row, 1, tview.NewTableCell(state))
		table.SetCell(row, 2, tview.NewTableCell(model))
		table.SetCell(row, 3, tview.NewTableCell(def).SetTextColor(tcell.ColorGreen))
	}

	table.SetBorder(true).SetTitle(" omnillm providers (q to quit) ")
	app := tview.NewApplication().SetRoot(table, true)
	app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		if ev.Key() == tcell.KeyEscape || ev.Rune() == 'q' {
			app.Stop()
			return nil
		}
		return ev
	})
	return app.Run()
}

func runEnv(args []string) error {
	fs := flag.NewFlagSet("env", flag.ExitOnError)
	_ = fs.Parse(args)

	suffixes := []string{"_API_KEY", "_BASE_URL", "_MODEL"}
	for _, provider := range config.KnownProviders {
		prefix := strings.ToUpper(provider)
		for _, suffix := range suffixes {
			name := prefix + suffix
			value, ok := os.LookupEnv(name)
			switch {
			case !ok:
				fmt.Printf("%-24s (unset)\n", name)
			case suffix == "_API_KEY":
				fmt.Printf("%-24s %s\n", name, mask(value))
			default:
				fmt.Printf("%-24s %s\n", name, value)
			}
		}
	}
	for _, name := range []string{"OMNILLM_DEFAULT_PROVIDER", "OMNILLM_LOG_LEVEL", "OMNILLM_CONFIG_PATH"} {
		if value, ok := os.LookupEnv(name); ok {
			fmt.Printf("%-24s %s\n", name, value)
		} else {
			fmt.Printf("%-24s (unset)\n", name)
		}
	}
	return nil
}

func mask(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func runChat(args []string) error {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	provider := fs.String("provider", "", "provider name (default: configured default)")
	model := fs.String("model", "", "model override")
	system := fs.String("system", "", "system prompt")
	temperature := fs.Float64("temperature", -1, "sampling temperature override")
	_ = fs.Parse(args)

	prompt, err := promptFrom(fs.Args())
	if err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	adapter, cleanup, err := buildAdapter(cfg, logger, *provider, *model)
	if err != nil {
		return err
	}
	defer cleanup()

	var opts []llm.CallOption
	if *temperature >= 0 {
		opts = append(opts, llm.WithTemperature(*temperature))
	}

	resp, err := adapter.Chat(context.Background(), buildPrompt(*system, prompt), opts...)
	if err != nil {
		return err
	}
	fmt.Println(resp.Content)
	return nil
}

func runStream(args []string) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	provider := fs.String("provider", "", "provider name (default: configured default)")
	model := fs.String("model", "", "model override")
	system := fs.String("system", "", "system prompt")
	_ = fs.Parse(args)

	prompt, err := promptFrom(fs.Args())
	if err != nil {
		return err
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	adapter, cleanup, err := buildAdapter(cfg, logger, *provider, *model)
	if err != nil {
		return err
	}
	defer cleanup()

	stream, err := adapter.Stream(context.Background(), buildPrompt(*system, prompt))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Chunk()
		if chunk.IsComplete {
			break
		}
		fmt.Print(chunk.Content)
	}
	fmt.Println()
	return stream.Err()
}

func runEmbed(args []string) error {
	fs := flag.NewFlagSet("embed", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	provider := fs.String("provider", "", "provider name (default: configured default)")
	model := fs.String("model", "", "embedding model override")
	_ = fs.Parse(args)

	texts := fs.Args()
	if len(texts) == 0 {
		return fmt.Errorf("embed requires at least one text argument")
	}

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	adapter, cleanup, err := buildAdapter(cfg, logger, *provider, "")
	if err != nil {
		return err
	}
	defer cleanup()

	var opts []llm.CallOption
	if *model != "" {
		opts = append(opts, llm.WithModel(*model))
	}

	vectors, err := adapter.Embedding(context.Background(), texts, opts...)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	return enc.Encode(vectors)
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", "./omnillm.yaml", "where to write the starter config")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", *path)
	}

	cfg := config.New()
	cfg.SetLLMConfig("zhipu", config.LLMConfig{
		APIKey: "your-api-key-here",
		Model:  "glm-4",
	})
	if err := cfg.Save(*path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *path)
	return nil
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path")
	provider := fs.String("provider", "", "provider name (default: configured default)")
	model := fs.String("model", "", "model override")
	_ = fs.Parse(args)

	cfg, logger, err := setup(*configPath)
	if err != nil {
		return err
	}
	adapter, cleanup, err := buildAdapter(cfg, logger, *provider, *model)
	if err != nil {
		return err
	}
	defer cleanup()

	enabled := cfg.FrameworkConfigFor("mcpserver").On()
	server := mcpserver.New(adapter, enabled, omnillm.Version, logger)
	return server.Serve()
}

// promptFrom joins positional arguments into the prompt, falling back to
// stdin when none are given.
func promptFrom(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("read prompt from stdin: %w", err)
	}
	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return "", fmt.Errorf("empty prompt")
	}
	return prompt, nil
}

func buildPrompt(system, prompt string) llm.Prompt {
	if system == "" {
		return llm.Text(prompt)
	}
	return llm.Conversation(
		llm.SystemMessage(system),
		llm.UserMessage(prompt),
	)
}
