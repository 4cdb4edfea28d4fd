package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/boristopalov/mindpark/internal/logs"
	"github.com/boristopalov/mindpark/pkg/algorithm"
	"github.com/boristopalov/mindpark/pkg/config"
	"github.com/boristopalov/mindpark/pkg/environment"
	"github.com/boristopalov/mindpark/pkg/experiment"
)

type runFlags struct {
	directory string
	parallel  int
	epochs    int
	videos    int
	seed      uint64
	logLevel  string
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "mindpark",
		Short: "Mindpark runs reinforcement learning experiments: algorithms are trained and tested on simulated environments in parallel jobs.",
	}

	for _, envFile := range []string{
		".env",
		"../../.env",
		"../../../.env",
	} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}

	flags := &runFlags{}
	runCmd := &cobra.Command{
		Use:   "run [experiment.yaml]",
		Short: "Run an experiment, or the default experiment when no file is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExperiment(cmd, args, flags)
		},
	}
	runCmd.Flags().StringVarP(&flags.directory, "directory", "d", os.Getenv("MINDPARK_DIRECTORY"), "where to write job artifacts; empty writes nothing")
	runCmd.Flags().IntVarP(&flags.parallel, "parallel", "p", envInt("MINDPARK_PARALLEL", 0), "number of jobs to run at once")
	runCmd.Flags().IntVar(&flags.epochs, "epochs", 0, "override the number of epochs")
	runCmd.Flags().IntVar(&flags.videos, "videos", -1, "override the number of recorded test episodes per epoch")
	runCmd.Flags().Uint64Var(&flags.seed, "seed", 0, "override the random seed")
	runCmd.Flags().StringVar(&flags.logLevel, "log-level", os.Getenv("MINDPARK_LOG_LEVEL"), "debug, info, warn or error")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the available environments and algorithms",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Environments:")
			for _, name := range environment.Names() {
				fmt.Fprintln(out, "  "+name)
			}
			fmt.Fprintln(out, "Algorithms:")
			for _, typ := range algorithm.Types() {
				fmt.Fprintln(out, "  "+typ)
			}
		},
	}

	rootCmd.AddCommand(runCmd, listCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runExperiment(cmd *cobra.Command, args []string, flags *runFlags) error {
	cfg := config.Default()
	if len(args) == 1 {
		var err error
		if cfg, err = config.LoadConfig(args[0]); err != nil {
			return err
		}
	}
	applyFlags(cmd, cfg, flags)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return err
	}
	logs.Level.Set(level)

	directory := experiment.RunDirectory(cfg)
	var logPath string
	if directory != "" && cfg.Logging.File != "" {
		logPath = filepath.Join(directory, cfg.Logging.File)
	}
	logger, closer, err := logs.New(cmd.ErrOrStderr(), logPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	slog.SetDefault(logger)

	exp, err := experiment.New(cfg,
		experiment.WithOutput(cmd.OutOrStdout()),
		experiment.WithLogger(logger),
		experiment.WithDirectory(directory))
	if err != nil {
		return err
	}

	// Interrupting stops jobs at their next episode boundary
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	logger.Info("starting experiment",
		"name", cfg.Name,
		"jobs", len(exp.Jobs()),
		"directory", exp.Directory())
	return exp.Run(ctx)
}

func applyFlags(cmd *cobra.Command, cfg *config.ExperimentConfig, flags *runFlags) {
	if flags.directory != "" {
		cfg.Directory = flags.directory
	}
	if flags.parallel > 0 {
		cfg.Parallel = flags.parallel
	}
	if flags.epochs > 0 {
		cfg.Epochs = flags.epochs
	}
	if flags.videos >= 0 {
		cfg.Videos = flags.videos
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = flags.seed
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}
