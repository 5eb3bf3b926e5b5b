package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	fwait "github.com/TFMV/fwait/internal/wait"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fwait [options] <target>",
	Short: "Wait for a file to appear or be updated",
	Long: `fwait blocks until the target path exists, or until its modification
time advances when --update is set. The final path segment may contain a
single '*' wildcard, resolved against the directory on every poll.

An exclusive lock keyed off the target guarantees that only one fwait
instance watches a given target at a time; a second instance exits
immediately with code 1.`,
	Version:       version,
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWait(args[0])
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Flags
	rootCmd.Flags().BoolP("update", "u", false, "Wait for the target to be updated instead of to appear")
	rootCmd.Flags().Duration("interval", fwait.DefaultInterval, "Poll interval")
	rootCmd.Flags().Duration("timeout", 0, "Give up after this long (0 waits forever)")
	rootCmd.PersistentFlags().String("lock-dir", "", "Lock directory (default $HOME/filewatcher)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().Bool("silent", false, "Disable all output except errors")

	// Bind flags to viper
	viper.BindPFlag("update", rootCmd.Flags().Lookup("update"))
	viper.BindPFlag("interval", rootCmd.Flags().Lookup("interval"))
	viper.BindPFlag("timeout", rootCmd.Flags().Lookup("timeout"))
	viper.BindPFlag("lock-dir", rootCmd.PersistentFlags().Lookup("lock-dir"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("silent", rootCmd.PersistentFlags().Lookup("silent"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		// Search config in home directory with name ".fwait" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".fwait")
	}

	viper.SetEnvPrefix("FWAIT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// logLevel derives the engine log level from the verbosity flags.
func logLevel() fwait.LogLevel {
	if viper.GetBool("verbose") {
		return fwait.LogLevelDebug
	}
	if viper.GetBool("silent") {
		return fwait.LogLevelError
	}
	return fwait.LogLevelInfo
}

func runWait(target string) error {
	logger := fwait.NewLogger(logLevel())
	defer logger.Sync()

	// SIGINT/SIGTERM cancel the wait; the deferred release below still runs.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock, err := fwait.AcquireLock(viper.GetString("lock-dir"), target, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Error("releasing lock", zap.Error(err))
		}
	}()

	opts := fwait.Options{
		Interval: viper.GetDuration("interval"),
		Timeout:  viper.GetDuration("timeout"),
		Logger:   logger,
	}

	if viper.GetBool("update") {
		return fwait.WaitForUpdate(ctx, target, opts)
	}
	return fwait.WaitForPath(ctx, target, opts)
}
