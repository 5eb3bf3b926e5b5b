package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	fwait "github.com/TFMV/fwait/internal/wait"
	"github.com/gofrs/flock"
	"github.com/karrick/godirwalk"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var locksClean bool

// locksCmd represents the locks command
var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "List per-target lock files",
	Long: `List the per-target lock files fwait keeps under the lock directory.

A lock file shows as held while a watcher owns it, and as stale when nothing
does (typically left behind by a killed watcher). With --clean, stale lock
files are removed.

Examples:
  fwait locks
  fwait locks --clean
  fwait locks --lock-dir /var/run/fwait`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocks(cmd)
	},
}

func init() {
	rootCmd.AddCommand(locksCmd)

	locksCmd.Flags().BoolVar(&locksClean, "clean", false, "Remove stale lock files")
}

func runLocks(cmd *cobra.Command) error {
	dir := viper.GetString("lock-dir")
	if dir == "" {
		var err error
		dir, err = fwait.DefaultLockDir()
		if err != nil {
			return err
		}
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Fprintf(cmd.OutOrStdout(), "Lock directory %s does not exist, nothing to list.\n", dir)
		return nil
	}

	names, err := godirwalk.ReadDirnames(dir, nil)
	if err != nil {
		return fmt.Errorf("reading lock directory %s: %w", dir, err)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(dir, name)

		// A lock we can take ourselves is not held by anyone.
		fl := flock.New(path)
		locked, err := fl.TryLock()
		if err != nil || !locked {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\theld\n", path)
			continue
		}

		if locksClean {
			// Remove while still holding the lock so no new watcher can
			// grab the file in between.
			if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
				return errors.Join(
					fmt.Errorf("removing stale lock file %s: %w", path, rmErr),
					fl.Unlock(),
				)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tstale (removed)\n", path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\tstale\n", path)
		}
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("unlocking %s: %w", path, err)
		}
	}

	return nil
}
