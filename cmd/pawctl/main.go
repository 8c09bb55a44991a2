// Command pawctl runs maintenance tasks against a pawboard data store.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dukerupert/pawboard/internal/app"
	"github.com/dukerupert/pawboard/internal/backup"
	"github.com/dukerupert/pawboard/internal/calendar"
	"github.com/dukerupert/pawboard/internal/config"
	"github.com/dukerupert/pawboard/internal/logging"
	"github.com/dukerupert/pawboard/internal/store"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env is the state every subcommand needs, opened lazily from the
// environment.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	cal    *calendar.Calendar
}

func loadEnv(cmd *cobra.Command) (*env, error) {
	cfg := config.Load()
	if dataPath, _ := cmd.Flags().GetString("data"); dataPath != "" {
		cfg.DataPath = dataPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}
	return &env{
		cfg:    cfg,
		logger: logging.New(cmd.ErrOrStderr(), cfg.LogLevel),
		cal:    cal,
	}, nil
}

func (e *env) open() (store.Store, error) {
	st, _, err := app.OpenStore(e.cfg, e.logger)
	return st, err
}

// backupManager opens the store's database handle when needed so SQLite
// snapshots are taken online.
func (e *env) backupManager() (*backup.Manager, func(), error) {
	if e.cfg.Store != config.StoreSQLite {
		return backup.NewManager(e.cfg.Backup(), nil, e.logger), func() {}, nil
	}
	st, db, err := app.OpenStore(e.cfg, e.logger)
	if err != nil {
		return nil, nil, err
	}
	return backup.NewManager(e.cfg.Backup(), db, e.logger), func() { st.Close() }, nil
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "pawctl",
		Short:         "Maintenance tasks for a pawboard data store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().String("data", "", "Data file path (overrides PAWBOARD_DATA_PATH)")

	cmd.AddCommand(
		checkEventsCmd(),
		clearEventsCmd(),
		fixAdminsCmd(),
		backupCmd(),
		restoreCmd(),
	)
	return cmd
}

func fixAdminsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fix-admins",
		Short: "Promote the first member of every household without an admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			st, err := e.open()
			if err != nil {
				return err
			}
			defer st.Close()

			ids, err := app.PromoteAdmins(st, e.logger)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "Every household already has an admin.")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintf(out, "Promoted %s\n", id)
			}
			return nil
		},
	}
}

func backupCmd() *cobra.Command {
	var keep int
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a snapshot of the data store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			mgr, done, err := e.backupManager()
			if err != nil {
				return err
			}
			defer done()

			res, err := mgr.Run(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backup saved to %s (%d bytes)\n", res.Path, res.Size)
			if res.S3Key != "" {
				fmt.Fprintf(out, "Uploaded to s3://%s/%s\n", e.cfg.S3.Bucket, res.S3Key)
			}
			if keep > 0 {
				removed, err := mgr.Prune(cmd.Context(), keep)
				if err != nil {
					return err
				}
				for _, p := range removed {
					fmt.Fprintf(out, "Pruned %s\n", p)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&keep, "keep", 0, "Keep only the newest N snapshots (0 keeps all)")
	return cmd
}

func restoreCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "restore <file|s3-key>",
		Short: "Replace the data store with a snapshot",
		Long: `Restore replaces the data file with a snapshot written by "pawctl backup".
The source is a local path or, when S3 is configured, an object key.
Stop the server before restoring.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Replace %s with %s?", e.cfg.DataPath, args[0])) {
				return fmt.Errorf("aborted")
			}
			mgr := backup.NewManager(e.cfg.Backup(), nil, e.logger)
			if err := mgr.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %s from %s\n", e.cfg.DataPath, args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
