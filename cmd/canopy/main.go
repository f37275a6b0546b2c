package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	logger
	verbose    bool
	configPath string
	run        *runConfig
	ctx        context.Context
	cancelFunc context.CancelFunc
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "canopy",
		Short: "canopy is a tool to grow classification trees and random forests",
		Long:  `A tool to grow decision trees and random forests from categorical data and measure how well they classify test data`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			config.logger, err = newLogger(config.verbose)
			if err != nil {
				return err
			}
			config.run, err = loadRunConfig(config.configPath)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			config.Sync()
			if config.cancelFunc != nil {
				config.cancelFunc()
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log progress on STDERR")
	rootCmd.PersistentFlags().StringVar(&(config.configPath), "config", "", "path to a YML file with run settings (seed, workers, forest size, resampling, redis); flags override it")
	rootCmd.AddCommand(
		versionCmd(),
		treeCmd(config),
		forestCmd(config),
		evaluateCmd(config),
		predictCmd(config),
		setCmd(config),
	)
	return rootCmd
}

/*
exit reports the error of a failed command on STDERR, flushes the logger,
cancels the context and exits with the given code. Commands call it once
their deferred closers have run.
*/
func (rcc *rootCmdConfig) exit(code int, err error) {
	fmt.Fprintln(os.Stderr, err)
	rcc.Sync()
	if rcc.cancelFunc != nil {
		rcc.cancelFunc()
	}
	os.Exit(code)
}

// Context returns the context of the command, cancelled on interrupt.
func (rcc *rootCmdConfig) Context() context.Context {
	if rcc.ctx == nil {
		rcc.ctx, rcc.cancelFunc = signal.NotifyContext(context.Background(), os.Interrupt)
	}
	return rcc.ctx
}
