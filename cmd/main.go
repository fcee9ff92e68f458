package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/richard-senior/podds/internal/logger"
	"github.com/richard-senior/podds/pkg/server"
	"github.com/richard-senior/podds/pkg/transport"
)

const version = "1.0.0"

const usage = `usage: podds [serve|predict|help] [flags]

  serve     run the MCP server on stdin/stdout (default)
  predict   predict one fixture and print the result as JSON

Run "podds <command> -h" for the flags of a command.`

func main() {
	cmd, args := "serve", os.Args[1:]
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd {
	case "serve":
		err = runServe(ctx, args)
	case "predict":
		err = runPredict(ctx, args)
	case "help":
		fmt.Fprintln(os.Stderr, usage)
		return
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		logger.Error("podds failed:", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file (default $PODDS_CONFIG)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	s := server.NewServer(transport.NewStdioTransport(), "podds", version)
	s.RegisterTools(a.service.Registrations())
	if err := s.Start(ctx); err != nil {
		return err
	}
	logger.Info("MCP server shutting down")
	return nil
}

func runPredict(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("predict", flag.ContinueOnError)
	configPath := fs.String("config", "", "YAML config file (default $PODDS_CONFIG)")
	home := fs.String("home", "", "home team name, looked up in the team data")
	away := fs.String("away", "", "away team name, looked up in the team data")
	homeStats := fs.String("home-stats", "", `inline home stats as JSON, e.g. '{"avg_gf":1.6,"avg_ga":0.9,"std_gf":1,"std_ga":0.8}'`)
	awayStats := fs.String("away-stats", "", "inline away stats as JSON")
	fidelity := fs.String("fidelity", "", "quick or full (default from config)")
	simulations := fs.Int("n", 0, "simulated matches (default from config)")
	seed := fs.Int64("seed", -1, "random seed (default from config)")
	noShrinkage := fs.Bool("no-shrinkage", false, "use team stats as given")
	detail := fs.Bool("detail", false, "include the full scoreline table and goal timelines")
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, *configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	params := map[string]any{
		"home":         *home,
		"away":         *away,
		"fidelity":     *fidelity,
		"no_shrinkage": *noShrinkage,
		"detail":       *detail,
	}
	for key, raw := range map[string]string{"home_stats": *homeStats, "away_stats": *awayStats} {
		if raw == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err != nil {
			return fmt.Errorf("-%s: %w", strings.ReplaceAll(key, "_", "-"), err)
		}
		params[key] = obj
	}
	if *simulations != 0 {
		params["simulations"] = float64(*simulations)
	}
	if *seed >= 0 {
		params["seed"] = float64(*seed)
	}

	out, err := a.service.HandlePredict(ctx, params)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
