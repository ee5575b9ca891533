// platectl - console front end for the plate-labs research tracker
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
	dbPath  string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "platectl",
	Short: "plate-labs console",
	Long: `platectl drives the plate-labs research tracker from a terminal.

Run without arguments to start an interactive console. Every line is handled
exactly like a chat message, so /new_research, /add_objects, /show_researches,
/close_research and /print_plate all work here.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		if err := godotenv.Load(); err != nil {
			slog.Debug("No .env file found, using environment variables")
		}
		return nil
	},
	RunE: runConsoleCmd,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Archive database path (defaults to DB_PATH)")

	rootCmd.Flags().String("documents", "", "Directory for printed plates (defaults to DOCUMENT_DIR)")
	rootCmd.Flags().Bool("no-archive", false, "Do not archive closed plates")

	archiveListCmd.Flags().Int("limit", 20, "Maximum number of plates to list")
	archiveCmd.AddCommand(archiveListCmd, archiveShowCmd)
	rootCmd.AddCommand(archiveCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
