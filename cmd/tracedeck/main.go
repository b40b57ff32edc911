// Command tracedeck processes PDF, DOCX and image documents into structured
// JSON.
//
// Usage:
//
//	tracedeck FILE                         # same as process FILE
//	tracedeck process FILE [-format json|pretty] [-timing] [-verbose]
//	tracedeck extract FILE [-text-only]
//	tracedeck batch DIR [-ext pdf,docx] [-recursive] [-workers N] [-timeout 2m]
//	tracedeck export FILE -o OUT.{json,md,html}
//	tracedeck formats | info | check
//	tracedeck serve
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgallion1/tracedeck/internal/config"
	"github.com/joho/godotenv"
)

const (
	appName    = "tracedeck"
	appVersion = "0.1.0"
)

func main() {
	// A missing .env is normal; anything else is worth a warning.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: .env could not be loaded: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// command is one subcommand. It returns the process exit code.
type command func(ctx context.Context, env *cliEnv, args []string) int

var commands = map[string]command{
	"process": runProcess,
	"extract": runExtract,
	"batch":   runBatch,
	"export":  runExport,
	"formats": runFormats,
	"info":    runInfo,
	"check":   runCheck,
	"serve":   runServe,
}

// cliEnv carries what every subcommand needs.
type cliEnv struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
	log    *slog.Logger
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "-help" || args[0] == "--help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}
	if args[0] == "-version" || args[0] == "--version" {
		fmt.Fprintf(stdout, "%s %s\n", appName, appVersion)
		return 0
	}

	cfg, err := config.Load()
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}

	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		if strings.HasPrefix(name, "-") {
			fmt.Fprintf(stderr, "unknown flag %s\n", name)
			usage(stderr)
			return 2
		}
		// A bare path is processed with the defaults.
		cmd, rest = runProcess, args
	}

	env := &cliEnv{
		cfg:    cfg,
		stdout: stdout,
		stderr: stderr,
		log:    newLogger(stderr, cfg.LogLevel, cfg.LogFormat),
	}
	return cmd(ctx, env, rest)
}

func usage(w io.Writer) {
	fmt.Fprintf(w, `%s %s - document processing engine

Usage:
  %[1]s FILE                  process FILE with the defaults
  %[1]s process FILE          full analysis (-format json|pretty, -timing, -verbose)
  %[1]s extract FILE          text and metadata (-text-only)
  %[1]s batch DIR             process a directory (-ext, -recursive, -workers, -timeout)
  %[1]s export FILE -o OUT    write the result as .json, .md or .html
  %[1]s formats               list supported formats
  %[1]s info                  show capabilities and commands
  %[1]s check                 check runtime capabilities
  %[1]s serve                 run the HTTP API
`, appName, appVersion)
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// parseInterspersed parses flags that may appear before or after positional
// arguments and returns the positionals in order.
func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

func newFlagSet(env *cliEnv, name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(env.stderr)
	fs.Usage = func() {
		fmt.Fprintf(env.stderr, "usage: %s %s %s\n", appName, name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// oneArg parses args and requires exactly one positional argument.
func oneArg(env *cliEnv, fs *flag.FlagSet, args []string) (string, int, bool) {
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return "", 0, false
		}
		return "", 2, false
	}
	if len(pos) != 1 {
		fs.Usage()
		return "", 2, false
	}
	return pos[0], 0, true
}
