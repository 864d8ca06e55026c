package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/spf13/cobra"
	"github.com/tarstars/bagged_id3/golang/bagged_id3/btl"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type rootCmdConfig struct {
	verbose    bool
	memprofile string
	logger     *zap.Logger
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	config := &rootCmdConfig{}
	rootCmd := &cobra.Command{
		Use:   "bagged_id3",
		Short: "bagged_id3 grows entropy-based decision trees and bagged ensembles of them",
		Long: `A tool to grow ID3 decision trees and bagged ensembles from npy datasets,
cross-validate them, predict with saved models and render the trees`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return config.initLogger()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = config.logger.Sync() }()
			return config.writeMemProfile()
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "log debug messages")
	rootCmd.PersistentFlags().StringVar(&(config.memprofile), "memprofile", "", "write memory profile to `file`")
	rootCmd.AddCommand(trainCmd(config), cvCmd(config), predictCmd(config), graphCmd(config))
	return rootCmd
}

func (rcc *rootCmdConfig) initLogger() error {
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.DisableStacktrace = true
	if !rcc.verbose {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	logger, err := zapConfig.Build()
	if err != nil {
		return err
	}
	rcc.logger = logger
	btl.SetLogger(logger)
	return nil
}

func (rcc *rootCmdConfig) writeMemProfile() error {
	if rcc.memprofile == "" {
		return nil
	}
	f, err := os.Create(rcc.memprofile)
	if err != nil {
		return err
	}
	defer func() { btl.HandleError(f.Close()) }()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return fmt.Errorf("could not write memory profile: %v", err)
	}
	return nil
}
