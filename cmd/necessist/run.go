package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/trailofbits/necessist-go/internal/config"
	"github.com/trailofbits/necessist-go/internal/discover"
	"github.com/trailofbits/necessist-go/internal/driver"
	"github.com/trailofbits/necessist-go/internal/framework"
	"github.com/trailofbits/necessist-go/internal/report"
	"github.com/trailofbits/necessist-go/internal/session"
	"github.com/trailofbits/necessist-go/internal/store"
)

// removalLogName and sqliteFileName name the on-disk state kept alongside
// the project root, the way the teacher keeps ".agentops/" state next to
// the repos it operates on.
const (
	stateDirName   = ".necessist"
	removalLogName = "removals.log"
	sqliteFileName = "removals.db"
)

func run(cmd *cobra.Command, flags *cliFlags, args []string) error {
	// Root is only fed into the override struct when the user actually
	// passed --root: config.Load treats a zero-valued field as "not set" so
	// NECESSIST_ROOT and a project config file's own root still take
	// effect when the flag is absent (precedence: flags > env > project
	// file > defaults, per spec §6).
	var rootOverride string
	if cmd.Flags().Changed("root") {
		abs, err := filepath.Abs(flags.root)
		if err != nil {
			return fmt.Errorf("resolve project root: %w", err)
		}
		rootOverride = abs
	}

	overrides := &config.Config{
		Root:           rootOverride,
		TimeoutSeconds: flags.timeout,
		Framework:      flags.framework,
		Verbose:        flags.verbose,
		SQLite:         flags.sqlite,
		Files:          args,
	}
	cfg, err := config.Load(overrides, cmd.Flags().Changed("verbose"), cmd.Flags().Changed("sqlite"))
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if cfg.Verbose {
		log.SetFlags(log.Ltime)
		log.Println("necessist: verbose logging enabled")
	} else {
		log.SetOutput(os.Stderr)
	}

	registry := framework.NewRegistry()
	// No concrete adapters are registered: adapters are out of scope per
	// spec §1, so Bootstrap's Resolve call below always fails: with "auto"
	// it reports no applicable test framework found, and with an explicit
	// --framework name it reports that name as an unknown framework.

	ctx, cancel := signalContext()
	defer cancel()

	boot, err := session.Bootstrap(ctx, cfg, registry)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	files, err := discover.Files(cfg.Root, cfg.Files)
	if err != nil {
		return fmt.Errorf("discover files: %w", err)
	}

	st, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	spans, err := boot.Framework.Parse(ctx, files)
	if err != nil {
		return fmt.Errorf("parse spans: %w", err)
	}

	sess, err := session.New(st)
	if err != nil {
		return fmt.Errorf("load session state: %w", err)
	}

	rep := report.New(os.Stdout)
	d := driver.New(boot.Framework, st, sess, rep, cfg.Timeout, 0)

	if err := d.Run(ctx, spans); err != nil {
		return fmt.Errorf("run driver: %w", err)
	}

	rep.Tally()

	if ctx.Err() != nil {
		return fmt.Errorf("canceled: %w", ctx.Err())
	}
	return nil
}

// openStore opens the text-log store, and a mirroring SQLite store when
// --sqlite is set, per spec §4.5's "one and/or the other" backend choice.
func openStore(cfg *config.Config) (store.Store, func(), error) {
	stateDir := filepath.Join(cfg.Root, stateDirName)

	primary, err := store.OpenFileStore(cfg.Root, filepath.Join(stateDir, removalLogName))
	if err != nil {
		return nil, nil, fmt.Errorf("open removal log: %w", err)
	}

	if !cfg.SQLite {
		return primary, func() { primary.Close() }, nil
	}

	sqliteStore, err := store.OpenSQLiteStore(cfg.Root, filepath.Join(stateDir, sqliteFileName))
	if err != nil {
		primary.Close()
		return nil, nil, fmt.Errorf("open sqlite store: %w", err)
	}

	multi := store.NewMultiStore(primary, sqliteStore)
	return multi, func() { multi.Close() }, nil
}

// signalContext returns a context canceled on SIGINT (os.Interrupt), implementing
// spec §5's cooperative cancellation: the scheduler stops dispatching new
// spans, waits for outstanding workers, restores files, and flushes the
// store before exiting non-zero.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
