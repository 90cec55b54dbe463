package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mex-go/internal/app"
	"mex-go/internal/config"
	"mex-go/internal/mex"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newApp reads the config and creates a MexApp. The caller must defer app.Close().
// operation identifies the CLI command being run (e.g. "Export", "Status").
func newApp(operation string) (*app.MexApp, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if cfg.Workspace == "" {
		cfg.Workspace = defaults["workspace"]
	}

	a, err := app.NewMexApp(cfg, operation)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}

	return a, nil
}

// promptPassphrase reads a passphrase from the terminal without echo.
// With confirm set it asks twice and requires both entries to match.
func promptPassphrase(confirm bool) (string, error) {
	fmt.Fprint(os.Stderr, "Passphrase: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}

	if confirm {
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		again, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("reading passphrase: %w", err)
		}
		if string(pass) != string(again) {
			return "", fmt.Errorf("passphrases do not match")
		}
	}

	return string(pass), nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

var rootCmd = &cobra.Command{
	Use:   "mex",
	Short: "Mod export pipeline",
}

// export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run the export pipeline",
	RunE: func(cmd *cobra.Command, args []string) error {
		side, _ := cmd.Flags().GetString("side")

		a, err := newApp("Export")
		if err != nil {
			return err
		}
		defer a.Close()

		report, err := a.Export(side, func(stage mex.Stage, percent int) {
			fmt.Printf("\r[%3d%%] %-10s", percent, stage)
		})
		fmt.Println()
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		fmt.Printf("Export complete (run %s)\n", shortID(report.RunID))
		for _, artifact := range report.Artifacts {
			fmt.Printf("  %s\n", filepath.Base(artifact))
		}
		if len(report.Artifacts) == 0 {
			fmt.Println("  no archives produced")
		}
		return nil
	},
}

// status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "View export status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Status")
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.Status()
		if err != nil {
			return err
		}

		if st.Interrupted != nil {
			fmt.Printf("Previous export was interrupted at %s (side %s, %s)\n",
				st.Interrupted.Stage, st.Interrupted.Side, st.Interrupted.Timestamp)
			fmt.Println("The next export starts fresh; see 'mex backups' for recovery points.")
		} else {
			fmt.Println("No export in progress.")
		}

		if st.Manifest != "" {
			fmt.Printf("\nLast completed export:\n%s", st.Manifest)
		}

		fmt.Printf("\nBackups: %d\n", len(st.Backups))
		for _, b := range st.Backups {
			fmt.Printf("  %s  %8d  %s\n",
				b.ModTime.Format("2006-01-02 15:04:05"), b.Size, filepath.Base(b.Path))
		}

		if len(st.LastRuns) > 0 {
			fmt.Println("\nRecent runs:")
			for _, r := range st.LastRuns {
				fmt.Printf("  %s  %-7s  %-6s  %3d%%  %s\n",
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Status, r.Side, r.Progress, shortID(r.RunID))
			}
		}
		return nil
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View export run history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp("History")
		if err != nil {
			return err
		}
		defer a.Close()

		runs, err := a.History(limit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("No export runs recorded.")
			return nil
		}

		for _, r := range runs {
			duration := ""
			if r.FinishedAt != nil {
				duration = r.FinishedAt.Sub(r.StartedAt).Truncate(time.Millisecond).String()
			}
			line := fmt.Sprintf("#%d  %s  %-7s  %-6s  %3d%%  %s",
				r.ID, r.StartedAt.Format("2006-01-02 15:04:05"),
				r.Status, r.Side, r.Progress, duration)
			if r.Status == mex.RunStatusError && r.Marker != "" {
				line += fmt.Sprintf("  at %s", r.Marker)
			}
			fmt.Println(line)
		}
		return nil
	},
}

// backups command
var backupsCmd = &cobra.Command{
	Use:   "backups",
	Short: "List backup archives",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Backups")
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Backups()
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No backups.")
			return nil
		}

		for _, b := range entries {
			lock := " "
			if b.Encrypted {
				lock = "*"
			}
			fmt.Printf("%s %s  %8d  %s\n",
				lock, b.ModTime.Format("2006-01-02 15:04:05"), b.Size, filepath.Base(b.Path))
		}
		return nil
	},
}

// restore command
var restoreCmd = &cobra.Command{
	Use:   "restore [ARCHIVE]",
	Short: "Restore a backup over the compiled output",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		side, _ := cmd.Flags().GetString("side")

		name := ""
		if len(args) > 0 {
			name = args[0]
		}

		a, err := newApp("Restore")
		if err != nil {
			return err
		}
		defer a.Close()

		entry, err := a.FindBackup(name, side)
		if err != nil {
			return err
		}

		passphrase := ""
		if entry.Encrypted {
			passphrase, err = promptPassphrase(false)
			if err != nil {
				return err
			}
		}

		dir, err := a.Restore(filepath.Base(entry.Path), side, passphrase)
		if err != nil {
			return err
		}

		fmt.Printf("Restored %s to %s\n", filepath.Base(entry.Path), dir)
		return nil
	},
}

// publish command
var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Upload packaged artifacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("Publish")
		if err != nil {
			return err
		}
		defer a.Close()

		keys, err := a.Publish()
		if err != nil {
			return fmt.Errorf("publish failed: %w", err)
		}

		fmt.Printf("Published %d artifact(s)\n", len(keys))
		for _, k := range keys {
			fmt.Printf("  %s\n", k)
		}
		return nil
	},
}

// keys command
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage encryption keys",
}

var keysInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the backup encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp("SetupKeys")
		if err != nil {
			return err
		}
		defer a.Close()

		if a.KeysConfigured() {
			return fmt.Errorf("encryption keys already exist")
		}

		passphrase, err := promptPassphrase(true)
		if err != nil {
			return err
		}

		if err := a.SetupKeys(passphrase); err != nil {
			return fmt.Errorf("generating keys: %w", err)
		}

		fmt.Println("Encryption keys generated.")
		return nil
	},
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(defaults["workspace"])

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", defaults["config_path"])
		fmt.Printf("Workspace: %s\n", defaults["workspace"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		fmt.Printf("Configuration from %s:\n\n", defaults["config_path"])
		fmt.Printf("Workspace:  %s\n", cfg.Workspace)
		fmt.Printf("Version:    %s\n", cfg.Version)
		fmt.Printf("Log Dir:    %s\n", cfg.LogDir)
		fmt.Printf("Backups:    keep %d, encrypt=%v\n", cfg.Backup.Keep, cfg.Backup.Encrypt)
		fmt.Printf("Database:   %s\n", cfg.Database.Type)
		if cfg.Publish.Type != "" {
			fmt.Printf("Publish:    %s\n", cfg.Publish.Type)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringP("side", "s", "", "Side to export: client, server, or merged")
	restoreCmd.Flags().StringP("side", "s", "", "Side to restore when no archive is named")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of runs to show")

	keysCmd.AddCommand(keysInitCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(backupsCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(keysCmd)
	rootCmd.AddCommand(configCmd)
}
