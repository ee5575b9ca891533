package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/ashureev/plate-labs/internal/config"
	"github.com/ashureev/plate-labs/internal/domain"
	"github.com/ashureev/plate-labs/internal/render"
	"github.com/ashureev/plate-labs/internal/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

// archiveCmd groups read-only access to closed plates
var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect closed plates",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recently closed plates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withArchive(func(repo store.Repository) error {
			plates, err := repo.ListArchivedPlates(cmd.Context(), limit)
			if err != nil {
				return err
			}
			writeArchiveList(cmd.OutOrStdout(), plates)
			return nil
		})
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print the final layout of a closed plate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withArchive(func(repo store.Repository) error {
			p, err := repo.GetArchivedPlate(cmd.Context(), args[0])
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no archived plate %q", args[0])
			}
			if err != nil {
				return err
			}
			writeArchivedPlate(cmd.OutOrStdout(), p)
			return nil
		})
	},
}

func withArchive(fn func(store.Repository) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	repo, err := store.NewSQLite(archivePath(cfg))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()
	return fn(repo)
}

func writeArchiveList(w io.Writer, plates []*domain.ArchivedPlate) {
	if len(plates) == 0 {
		fmt.Fprintln(w, "No closed plates.")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Research", "Wells", "Closed by", "Closed at")
	for _, p := range plates {
		t.Row(p.ID, p.Name, strconv.Itoa(p.FilledWells), p.ClosedBy, p.ClosedAt.Format(time.RFC3339))
	}
	fmt.Fprintln(w, t.Render())
}

func writeArchivedPlate(w io.Writer, p *domain.ArchivedPlate) {
	fmt.Fprintf(w, "%s (%d wells, closed %s)\n", p.Name, p.FilledWells, p.ClosedAt.Format(time.RFC3339))
	fmt.Fprintln(w, render.Text(p.Table()))
}
