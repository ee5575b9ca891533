// Package bot turns conversation input into research registry operations and
// replies.
package bot

import (
	"context"

	"github.com/ashureev/plate-labs/internal/domain"
	"github.com/ashureev/plate-labs/internal/plate"
)

// Input is one unit of text from one conversation.
type Input struct {
	ConversationID string
	Text           string
}

// ReplyKind categorizes replies.
type ReplyKind string

const (
	// ReplyText is a plain text message.
	ReplyText ReplyKind = "text"
	// ReplyTable is a message followed by one or more plates shown inline.
	ReplyTable ReplyKind = "table"
	// ReplyDocument is a published document with a caption.
	ReplyDocument ReplyKind = "document"
)

// NamedTable is a rendered plate with the research it belongs to.
type NamedTable struct {
	Research string      `json:"research"`
	Table    plate.Table `json:"table"`
}

// Document describes a rendered document ready for download.
type Document struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size_bytes"`
	URL         string `json:"url"`
}

// Reply is the single response to a handled input.
type Reply struct {
	Kind     ReplyKind
	Command  string
	Text     string
	Tables   []NamedTable
	Document *Document
	// Err is the classified failure behind an error reply, nil on success.
	Err error
}

// DocumentRequest asks a Publisher to render and store one plate.
type DocumentRequest struct {
	Research       string
	Caption        string
	Table          plate.Table
	ConversationID string
}

// Publisher renders a plate into a downloadable document.
type Publisher interface {
	Publish(ctx context.Context, req DocumentRequest) (Document, error)
}

// Archiver records the final layout of closed researches.
type Archiver interface {
	ArchivePlate(ctx context.Context, p *domain.ArchivedPlate) error
}

// Observer receives dispatch outcomes, typically for metrics.
type Observer interface {
	ObserveCommand(command, outcome string)
	ObservePlacement(status plate.Status, placed int)
	ObserveResearches(open int)
}

type noopObserver struct{}

func (noopObserver) ObserveCommand(string, string)      {}
func (noopObserver) ObservePlacement(plate.Status, int) {}
func (noopObserver) ObserveResearches(int)              {}

type noopArchiver struct{}

func (noopArchiver) ArchivePlate(context.Context, *domain.ArchivedPlate) error { return nil }

type unconfiguredPublisher struct{}

func (unconfiguredPublisher) Publish(context.Context, DocumentRequest) (Document, error) {
	return Document{}, errPublisherNotConfigured
}
