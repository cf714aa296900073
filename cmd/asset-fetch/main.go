// Command asset-fetch: resolve platform asset IDs to audio files on disk.
//
//	run      Interactive: fill missing config, then serve the Discord bot if enabled, else the console prompt
//	fetch    Resolve the IDs given as arguments and exit (non-zero if any failed)
//	bot      Serve the Discord /download command only
//	history  Print recent runs from the download ledger
//	check    Check that the platform hosts answer
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/snapetech/assetfetch/internal/config"
	"github.com/snapetech/assetfetch/internal/console"
	"github.com/snapetech/assetfetch/internal/discordbot"
	"github.com/snapetech/assetfetch/internal/health"
	"github.com/snapetech/assetfetch/internal/ledger"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [run|fetch|bot|history|check] [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "  run      Interactive prompt or Discord bot (default)\n")
	fmt.Fprintf(os.Stderr, "  fetch    Resolve asset IDs given as arguments, e.g. fetch 123 456\n")
	fmt.Fprintf(os.Stderr, "  bot      Serve the Discord /download command\n")
	fmt.Fprintf(os.Stderr, "  history  Show recent runs from the ledger (needs ASSETFETCH_LEDGER_PATH)\n")
	fmt.Fprintf(os.Stderr, "  check    Check that the platform hosts answer\n")
}

func main() {
	_, _ = config.LoadEnvFile(".env")
	log.SetFlags(log.LstdFlags)
	log.SetPrefix("[asset-fetch] ")

	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	runConfig := runCmd.String("config", "", "Config YAML path (default: ASSETFETCH_CONFIG or config.yaml)")
	runNoPrompt := runCmd.Bool("no-prompt", false, "Do not ask for missing settings")

	fetchCmd := flag.NewFlagSet("fetch", flag.ExitOnError)
	fetchConfig := fetchCmd.String("config", "", "Config YAML path (default: ASSETFETCH_CONFIG or config.yaml)")

	botCmd := flag.NewFlagSet("bot", flag.ExitOnError)
	botConfig := botCmd.String("config", "", "Config YAML path (default: ASSETFETCH_CONFIG or config.yaml)")

	historyCmd := flag.NewFlagSet("history", flag.ExitOnError)
	historyConfig := historyCmd.String("config", "", "Config YAML path (default: ASSETFETCH_CONFIG or config.yaml)")
	historyAsset := historyCmd.String("asset", "", "Only show runs for this asset ID")
	historyLimit := historyCmd.Int("n", 20, "Number of entries")

	checkCmd := flag.NewFlagSet("check", flag.ExitOnError)
	checkConfig := checkCmd.String("config", "", "Config YAML path (default: ASSETFETCH_CONFIG or config.yaml)")
	checkTimeout := checkCmd.Duration("timeout", 15*time.Second, "Timeout per host")

	sub, args := "run", []string(nil)
	if len(os.Args) > 1 {
		sub, args = os.Args[1], os.Args[2:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch sub {
	case "run":
		_ = runCmd.Parse(args)
		err = cmdRun(ctx, *runConfig, *runNoPrompt)
	case "fetch":
		_ = fetchCmd.Parse(args)
		if fetchCmd.NArg() == 0 {
			fmt.Fprintf(os.Stderr, "Usage: %s fetch [-config path] <asset-id> [asset-id...]\n", os.Args[0])
			os.Exit(2)
		}
		var failed int
		failed, err = cmdFetch(ctx, *fetchConfig, fetchCmd.Args())
		if err == nil && failed > 0 {
			stop()
			os.Exit(1)
		}
	case "bot":
		_ = botCmd.Parse(args)
		err = cmdBot(ctx, *botConfig)
	case "history":
		_ = historyCmd.Parse(args)
		err = cmdHistory(ctx, *historyConfig, *historyAsset, *historyLimit)
	case "check":
		_ = checkCmd.Parse(args)
		var bad int
		bad, err = cmdCheck(ctx, *checkConfig, *checkTimeout)
		if err == nil && bad > 0 {
			stop()
			os.Exit(1)
		}
	case "help", "-h", "-help", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		log.Printf("%s: %v", sub, err)
		stop()
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.PathFromEnv()
	}
	return config.Load(path)
}

// cmdRun asks for missing settings, then serves the bot when it is enabled and
// logs in; otherwise (or if login fails) it runs the console prompt.
func cmdRun(ctx context.Context, configPath string, noPrompt bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	rl, err := console.NewReader()
	if err != nil {
		return fmt.Errorf("console: %w", err)
	}
	// Unblock Readline on SIGTERM.
	stopClose := context.AfterFunc(ctx, func() { rl.Close() })
	defer func() {
		if stopClose() {
			rl.Close()
		}
	}()

	if !noPrompt {
		changed, err := config.FillMissing(cfg, console.Ask(rl))
		if err != nil {
			return fmt.Errorf("config prompt: %w", err)
		}
		if changed {
			if err := cfg.Save(); err != nil {
				return fmt.Errorf("save %s: %w", cfg.Path(), err)
			}
			log.Printf("Saved settings to %s", cfg.Path())
		}
	}

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.run(ctx, func(ctx context.Context) error {
		if cfg.BotReady() {
			bot, err := discordbot.New(cfg.DiscordToken, a.resolver, cfg.DiscordChannelID)
			if err == nil {
				err = bot.Start(ctx)
			}
			if err == nil {
				<-ctx.Done()
				return bot.Stop()
			}
			log.Printf("Discord bot unavailable (%v); using the console instead", err)
		}
		return console.Loop(ctx, rl, os.Stdout, a.resolver)
	})
}

// cmdFetch resolves ids and returns how many failed.
func cmdFetch(ctx context.Context, configPath string, ids []string) (int, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return 0, err
	}
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return 0, err
	}
	defer a.Close()

	failed := 0
	err = a.run(ctx, func(ctx context.Context) error {
		for _, res := range a.resolver.ResolveAll(ctx, ids) {
			fmt.Println(console.FormatResult(res))
			if !res.OK() {
				failed++
			}
		}
		return nil
	})
	return failed, err
}

func cmdBot(ctx context.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if !cfg.BotReady() {
		return fmt.Errorf("discord bot disabled or token missing (set discord_bot and discord_token in %s)", cfg.Path())
	}
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	bot, err := discordbot.New(cfg.DiscordToken, a.resolver, cfg.DiscordChannelID)
	if err != nil {
		return err
	}
	return a.run(ctx, bot.Run)
}

func cmdHistory(ctx context.Context, configPath, assetID string, limit int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.LedgerPath == "" {
		return fmt.Errorf("no ledger configured (set ledger_path or ASSETFETCH_LEDGER_PATH)")
	}
	l, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		return err
	}
	defer l.Close()
	entries, err := l.Recent(ctx, assetID, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tASSET\tOUTCOME\tSTAGE\tOWNER\tPLACE\tFILE")
	for _, e := range entries {
		owner := e.CreatorKind
		if e.CreatorID != "" {
			owner += ":" + e.CreatorID
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.CreatedAt.Format(time.DateTime), e.AssetID, e.Outcome, e.Stage, owner, e.PlaceID, e.FilePath)
	}
	return tw.Flush()
}

// cmdCheck prints one line per platform host and returns how many failed.
func cmdCheck(ctx context.Context, configPath string, timeout time.Duration) (int, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return 0, err
	}
	client := newPlatformClient(cfg)
	httpc := *client.HTTP
	httpc.Timeout = timeout
	bad := 0
	for _, r := range health.CheckAll(ctx, &httpc, checkTargets(client)) {
		state := "OK"
		if !r.OK() {
			state = "FAIL"
			bad++
		}
		detail := "HTTP " + strconv.Itoa(r.Status)
		if r.Err != nil {
			detail = r.Err.Error()
		}
		fmt.Printf("%-8s %-4s %s (%s) %s\n", r.Name, state, r.URL, r.Elapsed.Round(time.Millisecond), detail)
	}
	return bad, nil
}
