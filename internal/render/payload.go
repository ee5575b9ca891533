package render

import (
	"github.com/ashureev/plate-labs/internal/bot"
	"github.com/ashureev/plate-labs/internal/plate"
)

// Payload is the JSON form of a reply shared by the HTTP and websocket
// transports.
type Payload struct {
	Kind     bot.ReplyKind  `json:"kind"`
	Command  string         `json:"command,omitempty"`
	Text     string         `json:"text"`
	Plates   []PayloadPlate `json:"plates,omitempty"`
	Document *bot.Document  `json:"document,omitempty"`
	Error    string         `json:"error,omitempty"`
}

// PayloadPlate carries one plate as structured cells and as preformatted
// text.
type PayloadPlate struct {
	Research string      `json:"research"`
	Table    plate.Table `json:"table"`
	Text     string      `json:"text"`
}

// NewPayload converts a reply into its transport form.
func NewPayload(r bot.Reply) Payload {
	p := Payload{
		Kind:     r.Kind,
		Command:  r.Command,
		Text:     r.Text,
		Document: r.Document,
		Error:    bot.ErrorCode(r.Err),
	}
	for _, t := range r.Tables {
		p.Plates = append(p.Plates, PayloadPlate{
			Research: t.Research,
			Table:    t.Table,
			Text:     Text(t.Table),
		})
	}
	return p
}

// PlainText flattens a reply for line-oriented consoles.
func PlainText(r bot.Reply) string {
	out := r.Text
	for _, t := range r.Tables {
		out += "\n\n" + t.Research + "\n" + Text(t.Table)
	}
	if r.Document != nil {
		out += "\n" + r.Document.URL
	}
	return out
}
