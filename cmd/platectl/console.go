package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/config"
	"github.com/ashureev/plate-labs/internal/convlog"
	"github.com/ashureev/plate-labs/internal/document/fs"
	"github.com/ashureev/plate-labs/internal/identity"
	"github.com/ashureev/plate-labs/internal/render"
	"github.com/ashureev/plate-labs/internal/store"
	"github.com/spf13/cobra"
)

const (
	consoleUser    = "console"
	consoleSession = "local"
	consolePrompt  = "> "
)

func runConsoleCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	docDir, _ := cmd.Flags().GetString("documents")
	if docDir == "" {
		docDir = cfg.Document.Dir
	}
	docs, err := fs.New(docDir)
	if err != nil {
		return err
	}

	opts := bot.Options{Publisher: render.NewPublisher(docs, "")}
	noArchive, _ := cmd.Flags().GetBool("no-archive")
	if cfg.ArchiveEnabled && !noArchive {
		repo, err := store.NewSQLite(archivePath(cfg))
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}
		defer func() {
			if closeErr := repo.Close(); closeErr != nil {
				slog.Error("Failed to close repository", "error", closeErr)
			}
		}()
		opts.Archiver = repo
	}

	convLogger, err := convlog.New(convlog.Config{
		Enabled:       cfg.ConversationLog.Enabled,
		Dir:           cfg.ConversationLog.Dir,
		GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
		GlobalPath:    cfg.ConversationLog.GlobalPath,
		QueueSize:     cfg.ConversationLog.QueueSize,
		MaxOpenFiles:  cfg.ConversationLog.MaxOpenFiles,
	}, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := convLogger.Close(); closeErr != nil {
			slog.Error("Failed to close conversation logger", "error", closeErr)
		}
	}()

	c := &console{
		orch:    bot.New(nil, nil, opts),
		log:     convLogger,
		docRoot: docDir,
	}
	return c.run(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
}

func archivePath(cfg *config.Config) string {
	if dbPath != "" {
		return dbPath
	}
	return cfg.DBPath
}

// console feeds terminal lines to the orchestrator as one conversation.
type console struct {
	orch    *bot.Orchestrator
	log     convlog.Logger
	docRoot string
}

func (c *console) run(ctx context.Context, in io.Reader, out io.Writer) error {
	conversationID := identity.ConversationID(consoleUser, consoleSession)
	scanner := bufio.NewScanner(in)

	fmt.Fprint(out, consolePrompt)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			c.handle(ctx, out, conversationID, line)
		}
		fmt.Fprint(out, consolePrompt)
	}
	fmt.Fprintln(out)
	return scanner.Err()
}

func (c *console) handle(ctx context.Context, out io.Writer, conversationID, line string) {
	c.log.Log(convlog.Event{
		UserID:     consoleUser,
		SessionID:  consoleSession,
		Channel:    convlog.ChannelConsole,
		Direction:  convlog.DirectionInbound,
		EventType:  convlog.EventUserMessage,
		ContentRaw: line,
	})

	reply, ok := c.orch.Handle(ctx, bot.Input{ConversationID: conversationID, Text: line})
	if !ok {
		return
	}

	text := reply.Text
	for _, t := range reply.Tables {
		text += "\n\n" + t.Research + "\n" + render.Text(t.Table)
	}
	if reply.Document != nil {
		text += "\n" + filepath.Join(c.docRoot, filepath.FromSlash(reply.Document.Key))
	}

	c.log.Log(convlog.Event{
		UserID:     consoleUser,
		SessionID:  consoleSession,
		Channel:    convlog.ChannelConsole,
		Direction:  convlog.DirectionOutbound,
		EventType:  convlog.EventBotReply,
		ContentRaw: render.PlainText(reply),
		Meta:       map[string]any{"command": reply.Command, "error": bot.ErrorCode(reply.Err)},
	})
	fmt.Fprintln(out, text)
}
