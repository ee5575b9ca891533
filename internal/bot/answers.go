package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ashureev/plate-labs/internal/domain"
	"github.com/ashureev/plate-labs/internal/plate"
	"github.com/ashureev/plate-labs/internal/research"
)

func (o *Orchestrator) answerCloseTarget(ctx context.Context, in Input, name string) Reply {
	const command = "close_target"

	session, err := o.registry.Remove(name)
	if err != nil {
		return errorReply(command, msgUnknownResearch, err)
	}
	o.observer.ObserveResearches(o.registry.Len())
	slog.Info("Research closed", "research", name, "conversation_id", in.ConversationID)

	archived := &domain.ArchivedPlate{
		ID:          o.newID(),
		Name:        session.Name,
		ClosedBy:    in.ConversationID,
		Cells:       *session.Grid.Clone(),
		FilledWells: session.Grid.Filled(),
		CreatedAt:   session.CreatedAt,
		ClosedAt:    o.now().UTC(),
	}
	if err := o.archiver.ArchivePlate(ctx, archived); err != nil {
		slog.Error("Failed to archive closed plate", "research", name, "error", err)
	}

	return Reply{
		Kind:    ReplyTable,
		Command: command,
		Text:    fmt.Sprintf(msgResearchClosed, name),
		Tables:  []NamedTable{{Research: name, Table: plate.Render(session.Grid)}},
	}
}

func (o *Orchestrator) answerPrintTarget(ctx context.Context, in Input, name string) Reply {
	const command = "print_target"

	table, err := o.registry.Snapshot(name)
	if err != nil {
		return errorReply(command, msgUnknownResearch, err)
	}

	caption := fmt.Sprintf(msgPlateCaption, name)
	doc, err := o.publisher.Publish(ctx, DocumentRequest{
		Research:       name,
		Caption:        caption,
		Table:          table,
		ConversationID: in.ConversationID,
	})
	if err != nil {
		slog.Error("Failed to publish plate", "research", name, "conversation_id", in.ConversationID, "error", err)
		return errorReply(command, msgDeliveryFailed, fmt.Errorf("%w: %w", ErrDeliveryFailure, err))
	}
	return Reply{Kind: ReplyDocument, Command: command, Text: caption, Document: &doc}
}

func (o *Orchestrator) place(in Input, req placementRequest) Reply {
	const command = "placement"

	// A negative count parses; it can never equal the number of objects, so
	// it is reported as a count mismatch below.
	count, err := strconv.Atoi(req.count)
	if err != nil {
		return errorReply(command, msgMalformedInput, fmt.Errorf("%w: count %q", ErrMalformedInput, req.count))
	}
	numbers := plate.ParseObjectNumbers(req.objectNumbers)

	if _, err := o.registry.Get(req.research); err != nil {
		return errorReply(command, msgUnknownResearch, err)
	}
	if len(numbers) != count {
		return errorReply(command, msgCountMismatch,
			fmt.Errorf("%w: declared %d, got %d", ErrCountMismatch, count, len(numbers)))
	}

	status, placed, err := o.registry.Place(req.research, req.expertiseID, numbers, count)
	if errors.Is(err, research.ErrNotFound) {
		// Closed between the lookup and the placement.
		return errorReply(command, msgUnknownResearch, err)
	}
	if err != nil {
		return errorReply(command, msgMalformedInput, err)
	}
	o.observer.ObservePlacement(status, placed)
	slog.Info("Objects placed",
		"research", req.research,
		"expertise_id", req.expertiseID,
		"placed", placed,
		"status", status.String(),
		"conversation_id", in.ConversationID,
	)

	if status == plate.GridFull {
		return textReply(command, msgPlateFull)
	}
	return textReply(command, msgObjectsPlaced)
}
