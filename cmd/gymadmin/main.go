// Command gymadmin drives the gym admin backend from a terminal. Each
// invocation restores the stored session, runs one command and exits; state
// persists in the configured storage backend between invocations.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/example/gym-admin/internal/client"
	"github.com/example/gym-admin/internal/config"
	"github.com/example/gym-admin/internal/logging"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

var (
	errUsage       = errors.New("usage error")
	errNotLoggedIn = errors.New("not logged in, run: gymadmin login")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, config.Load)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, load func() (config.Config, error)) int {
	global := flag.NewFlagSet("gymadmin", flag.ContinueOnError)
	global.SetOutput(stderr)
	logLevel := global.String("log-level", "", "override the configured log level")
	stats := global.Bool("stats", false, "print gateway metrics after the command")
	global.Usage = func() { writeUsage(stderr) }
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if global.NArg() == 0 {
		writeUsage(stderr)
		return exitUsage
	}

	cfg, err := load()
	if err != nil {
		fmt.Fprintf(stderr, "gymadmin: %v\n", err)
		return exitError
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "gymadmin: %v\n", err)
		return exitUsage
	}

	a, err := newApp(ctx, cfg, logger, stderr)
	if err != nil {
		logger.Error("failed to start", "error", err)
		fmt.Fprintf(stderr, "gymadmin: %v\n", err)
		return exitError
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	err = dispatch(ctx, a, global.Args(), stdout)
	if *stats {
		if serr := a.writeStats(stderr); serr != nil {
			logger.Error("failed to write stats", "error", serr)
		}
	}
	if err == nil {
		return exitOK
	}
	writeError(stderr, err)
	if errors.Is(err, errUsage) {
		return exitUsage
	}
	return exitError
}

// writeError prints err and, for rejected input, every field message.
func writeError(w io.Writer, err error) {
	fmt.Fprintf(w, "gymadmin: %v\n", err)
	var apiErr *client.Error
	if !errors.As(err, &apiErr) || len(apiErr.Fields) == 0 {
		return
	}
	fields := slices.Sorted(maps.Keys(apiErr.Fields))
	for _, field := range fields {
		fmt.Fprintf(w, "  %s: %s\n", field, apiErr.Fields[field])
	}
}

func writeUsage(w io.Writer) {
	fmt.Fprint(w, `usage: gymadmin [-log-level level] [-stats] <command> [arguments]

commands:
  login -email E -password P [-remember]
  logout
  whoami
  token info | expire | refresh
  members list [-q text] [-status S] [-plan P]
  members get ID
  members add -name N [-email E] [-phone P] [-plan P] [-start D] [-expiry D] [-amount A]
  members update ID [-name N] ... [-status S]
  members delete ID
  members bulk-status -status S ID...
  members bulk-delete ID...
  members reset
  plans list
  plans get ID
  plans add -name N -duration M -price P -tax T [-description D]
  plans update ID [-name N] ... [-status S]
  plans delete ID
  plans reset
  dashboard
  keepalive [-once]
`)
}
