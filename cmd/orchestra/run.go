package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	logginginfra "github.com/jsprague/orchestra/internal/infrastructure/logging"
	"github.com/jsprague/orchestra/internal/ingest"
	"github.com/jsprague/orchestra/internal/paramctx"
	"github.com/jsprague/orchestra/internal/pipedef"
	"github.com/jsprague/orchestra/internal/plan"
	"github.com/jsprague/orchestra/internal/runner"
	"github.com/jsprague/orchestra/internal/schedule"
	"github.com/jsprague/orchestra/internal/scriptsource"
	"github.com/jsprague/orchestra/internal/tui"
)

type runOptions struct {
	InputPath     string
	DryRun        bool
	Workers       int
	PollInterval  time.Duration
	MaxPolls      int
	FromSerial    int
	ScratchDir    string
	Verbose       bool
	StrictPairing bool
	Clean         bool
}

func newRunCmd(app *AppContext) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "plan and execute a pipeline definition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, app, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.InputPath, "input", "i", "", "path to the pipeline definition (YAML or JSON)")
	cmd.Flags().IntVarP(&opts.MaxPolls, "n-times-before-timeout", "n", 20, "poll attempts before an upstream timeout")
	cmd.Flags().DurationVarP(&opts.PollInterval, "wait-time-between-tries", "w", time.Second, "wait between upstream polls")
	cmd.Flags().IntVarP(&opts.Workers, "max-processes", "p", 4, "maximum concurrent scripts per serial")
	cmd.Flags().IntVarP(&opts.FromSerial, "from-serial", "f", 0, "resume a run starting at this serial, skipping every earlier one")
	cmd.Flags().StringVarP(&opts.ScratchDir, "dir", "d", "", "override the scratch directory (default: a temp dir)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "plan the pipeline without executing it")
	cmd.Flags().BoolVar(&opts.StrictPairing, "strict-pairing", false, "fail instead of zip-shortest on paired-key arity mismatch")
	cmd.Flags().BoolVar(&opts.Clean, "clean", false, "purge the scratch directory and exit, without planning or executing anything")
	_ = cmd.Flags().MarkHidden("clean")

	return cmd
}

func runRun(cmd *cobra.Command, app *AppContext, opts *runOptions) error {
	if opts.Clean {
		return runCleanScratchDir(cmd, opts.ScratchDir)
	}

	if err := validateRunOptions(*opts); err != nil {
		return err
	}

	ctx, logger := app.CommandContext(cmd, "run")

	doc, err := pipedef.ParseDocument(opts.InputPath)
	if err != nil {
		return err
	}

	scratchRoot := opts.ScratchDir
	if scratchRoot == "" {
		scratchRoot = filepath.Join(os.TempDir(), "orchestra")
	}

	resolver := scriptsource.NewResolver(scratchRoot, logger)
	scriptDir, err := resolver.Resolve(ctx, doc.ScriptDirectory)
	if err != nil {
		return err
	}

	planner := plan.NewPlanner(paramctx.Options{StrictPairing: opts.StrictPairing})
	built, err := planner.Plan(doc)
	if err != nil {
		return err
	}

	if opts.DryRun {
		for _, ex := range built.Executables {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s/%s  (%d upstream)\n", ex.Hash[:12], ex.BlockName, ex.Identifier, ex.PipesIn)
		}
		return nil
	}

	store := &ingest.Store{RootDir: filepath.Join(scratchRoot, doc.Name)}
	sched := &schedule.Scheduler{
		Plan:            built,
		Workers:         opts.Workers,
		Store:           store,
		Runner:          runner.NewExecRunner(logger),
		WaitOpts:        ingest.WaitOptions{PollInterval: opts.PollInterval, MaxPolls: opts.MaxPolls},
		Logger:          logger,
		ScriptDirectory: scriptDir,
		FromSerial:      opts.FromSerial,
	}

	var summary *schedule.RunSummary
	if term.IsTerminal(int(os.Stdout.Fd())) {
		// The dashboard owns the terminal while it runs; route the
		// scheduler's logs into a buffer instead of interleaving them with
		// the live view, then replay them once the dashboard exits.
		buffer := logginginfra.NewEventBuffer(0)
		sched.Logger = logginginfra.NewBufferedLogger(buffer)
		summary, err = tui.RunWithDashboard(ctx, sched)
		buffer.Flush(logger)
	} else {
		summary, err = sched.Run(ctx)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "completed %d executable(s) in %s, %d failed\n",
		len(summary.Results), summary.Duration.Round(time.Millisecond), summary.Failures)

	if summary.Failures > 0 {
		// Scratch state survives a failed run so what each Executable saw can
		// be inspected; `orchestra clean` removes it.
		return fmt.Errorf("%d executable(s) failed", summary.Failures)
	}

	if err := os.RemoveAll(store.RootDir); err != nil && logger != nil {
		logger.Warn(ctx, "failed to remove scratch directory after successful run", "dir", store.RootDir, "error", err.Error())
	}
	return nil
}
