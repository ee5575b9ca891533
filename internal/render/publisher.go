package render

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/document"
	"github.com/google/uuid"
)

// ContentTypePDF is the media type of published plates.
const ContentTypePDF = "application/pdf"

// DocumentPrefix is the key prefix of published plates.
const DocumentPrefix = "plates/"

// Publisher renders plates to PDF and stores them for download.
type Publisher struct {
	store   document.Store
	baseURL string
	newID   func() string
}

// NewPublisher creates a Publisher. baseURL is prepended to download links
// and may be empty for relative links.
func NewPublisher(store document.Store, baseURL string) *Publisher {
	return &Publisher{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		newID:   uuid.NewString,
	}
}

// Publish implements bot.Publisher.
func (p *Publisher) Publish(ctx context.Context, req bot.DocumentRequest) (bot.Document, error) {
	var buf bytes.Buffer
	if err := PDF(&buf, req.Caption, req.Table); err != nil {
		return bot.Document{}, fmt.Errorf("render pdf: %w", err)
	}

	key := DocumentPrefix + p.newID() + ".pdf"
	name := FileName(req.Research)
	info, err := p.store.Put(ctx, key, bytes.NewReader(buf.Bytes()), document.PutOptions{
		ContentType: ContentTypePDF,
		Metadata: map[string]string{
			// Object metadata must stay ASCII for S3.
			"research":        url.QueryEscape(req.Research),
			"filename":        name,
			"conversation_id": req.ConversationID,
		},
	})
	if err != nil {
		return bot.Document{}, fmt.Errorf("store %s: %w", key, err)
	}

	return bot.Document{
		Key:         key,
		Name:        name,
		ContentType: ContentTypePDF,
		Size:        info.Size,
		URL:         p.URL(key),
	}, nil
}

// URL returns the download link for a document key.
func (p *Publisher) URL(key string) string {
	return p.baseURL + "/api/documents/" + key
}

// FileName derives an ASCII download file name from a research name.
func FileName(research string) string {
	var b strings.Builder
	for _, r := range research {
		switch {
		case r <= unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "plate.pdf"
	}
	return "plate_" + b.String() + ".pdf"
}
