// Package cli is the ytchat command line: it runs the same components as
// the HTTP service against the configured database.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"jamesfarrell.me/youtube-chat/internal/app"
	"jamesfarrell.me/youtube-chat/internal/config"
	"jamesfarrell.me/youtube-chat/internal/logging"
)

func Main() {
	root := NewRootCommand()
	root.SetOut(os.Stdout)
	root.SetErr(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ytchat",
		Short:         "Ask questions about a library of YouTube videos",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().String("db", "", "Database id: reads DATABASE_URL_<ID> (default DATABASE_URL_DEFAULT)")
	root.PersistentFlags().String("log-level", "warn", "Log level")

	root.AddCommand(
		askCommand(),
		historyCommand(),
		addCommand(),
		analyzeCommand(),
		infoCommand(),
		discoverCommand(),
		migrateCommand(),
	)
	return root
}

// withApp loads configuration, builds the app for one command and closes it
// afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	dbID, _ := cmd.Flags().GetString("db")
	level, _ := cmd.Flags().GetString("log-level")

	cfg, err := config.Load(dbID)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	// Commands run analysis synchronously.
	cfg.AnalysisMode = config.AnalysisInline

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logging.NewWithWriter(cmd.ErrOrStderr(), "ytchat", level))
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
