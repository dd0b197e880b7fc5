package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/kixxauth/treadwell"
	"github.com/kixxauth/treadwell/internal/logbook"
	"github.com/kixxauth/treadwell/internal/tui"
)

var errRunFailed = errors.New("run failed")

type runFlags struct {
	sources   sourceFlags
	logLevel  string
	logFormat string
	values    map[string]string
	useTUI    bool
}

func newRunCmd() *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [task]",
		Short: "Run a task after its dependencies",
		Long: `Run a task after its dependencies and print its result container as
YAML. Without a task name the project's run.default task is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := projectDir(cmd)
			if err != nil {
				return err
			}
			return runTask(cmd, dir, args, flags)
		},
	}
	cmd.Flags().StringArrayVarP(&flags.sources.files, "file", "f", nil, "YAML task file or directory (repeatable)")
	cmd.Flags().StringArrayVar(&flags.sources.scripts, "scripts", nil, "Directory of Go task definition scripts (repeatable)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	cmd.Flags().StringVar(&flags.logFormat, "log-format", "", "Log format: console or json")
	cmd.Flags().StringToStringVar(&flags.values, "set", nil, "Seed value for the result container (key=value, repeatable)")
	cmd.Flags().BoolVar(&flags.useTUI, "tui", false, "Show a live progress view")
	return cmd
}

func runTask(cmd *cobra.Command, dir string, args []string, flags runFlags) error {
	var opts []treadwell.Option
	if flags.logLevel != "" {
		opts = append(opts, treadwell.WithLogLevel(flags.logLevel))
	}
	if flags.logFormat != "" {
		opts = append(opts, treadwell.WithLogFormat(flags.logFormat))
	}
	keys := make([]string, 0, len(flags.values))
	for key := range flags.values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		opts = append(opts, treadwell.WithValue(key, flags.values[key]))
	}

	var logOutput io.Writer = cmd.ErrOrStderr()
	if flags.useTUI {
		logOutput = io.Discard
	}
	proj, err := loadProject(dir, flags.sources, logOutput, opts...)
	if err != nil {
		return err
	}
	name, err := proj.taskName(args)
	if err != nil {
		return err
	}

	if path := proj.cfg.HistoryPath(); path != "" {
		book, err := logbook.New(path)
		if err != nil {
			return err
		}
		runner := proj.runner
		sub := runner.Events().Subscribe(book.Listener(func(err error) {
			runner.Logger().Warn("history not recorded", zap.Error(err))
		}))
		defer sub.Close()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	var feed *tui.Feed
	if flags.useTUI {
		feed = tui.Watch(proj.runner.Events(), 0)
		defer feed.Close()
	}
	started := time.Now()
	outcome, err := proj.runner.Run(ctx, name)
	if err != nil {
		return err
	}
	if feed != nil {
		// The run error itself is reported below.
		if err := tui.Run(ctx, name, feed, outcome); errors.Is(err, tui.ErrInterrupted) {
			return err
		}
	}
	result, err := outcome.Wait(ctx)
	elapsed := time.Since(started)
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), renderFailure(name, outcome.RunID(), elapsed))
		fmt.Fprintln(cmd.ErrOrStderr(), treadwell.FullStack(err))
		return errRunFailed
	}
	fmt.Fprintln(cmd.ErrOrStderr(), renderSuccess(name, outcome.RunID(), elapsed))
	return writeResult(cmd.OutOrStdout(), result)
}

func writeResult(w io.Writer, result *treadwell.Args) error {
	if result == nil || result.Len() == 0 {
		return nil
	}
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	_, err = w.Write(data)
	return err
}
