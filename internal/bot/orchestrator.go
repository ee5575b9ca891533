package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/ashureev/plate-labs/internal/conversation"
	"github.com/ashureev/plate-labs/internal/research"
	"github.com/google/uuid"
)

// Options configures optional collaborators. Nil fields fall back to no-ops.
type Options struct {
	Publisher Publisher
	Archiver  Archiver
	Observer  Observer
}

// matcher inspects an input and either handles it or declines.
type matcher struct {
	name  string
	match func(ctx context.Context, in Input) (Reply, bool)
}

// Orchestrator routes conversation input to the registry and the conversation
// state machine. It is safe for concurrent use by many conversations.
type Orchestrator struct {
	registry      *research.Registry
	conversations *conversation.Tracker
	publisher     Publisher
	archiver      Archiver
	observer      Observer

	matchers []matcher
	commands map[string]func(ctx context.Context, in Input) Reply
	now      func() time.Time
	newID    func() string
}

// New creates an orchestrator over the given registry and tracker. Nil
// registry or tracker values are replaced with empty ones.
func New(registry *research.Registry, conversations *conversation.Tracker, opts Options) *Orchestrator {
	if registry == nil {
		registry = research.NewRegistry()
	}
	if conversations == nil {
		conversations = conversation.NewTracker()
	}
	o := &Orchestrator{
		registry:      registry,
		conversations: conversations,
		publisher:     opts.Publisher,
		archiver:      opts.Archiver,
		observer:      opts.Observer,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	if o.publisher == nil {
		o.publisher = unconfiguredPublisher{}
	}
	if o.archiver == nil {
		o.archiver = noopArchiver{}
	}
	if o.observer == nil {
		o.observer = noopObserver{}
	}

	o.commands = map[string]func(ctx context.Context, in Input) Reply{
		CommandStart:          o.start,
		CommandNewResearch:    o.newResearch,
		CommandAddObjects:     o.addObjects,
		CommandShowResearches: o.showResearches,
		CommandCloseResearch:  o.closeResearch,
		CommandPrintPlate:     o.printPlate,
	}
	// Order matters: a pending prompt wins over the placement shape, and
	// commands win over both.
	o.matchers = []matcher{
		{name: "command", match: o.matchCommand},
		{name: "prompt_answer", match: o.matchPromptAnswer},
		{name: "placement", match: o.matchPlacement},
	}
	return o
}

// Registry returns the registry the orchestrator works on.
func (o *Orchestrator) Registry() *research.Registry { return o.registry }

// Conversations returns the conversation state tracker.
func (o *Orchestrator) Conversations() *conversation.Tracker { return o.conversations }

// Handle dispatches one input. The boolean is false when no rule accepted
// the input; no reply must be sent in that case.
func (o *Orchestrator) Handle(ctx context.Context, in Input) (Reply, bool) {
	// Trailing whitespace is dropped for every matcher, so the last object
	// number of a placement never keeps a trailing space ("a " becomes "a").
	// Inner whitespace of the object field is kept verbatim.
	in.Text = strings.TrimRightFunc(in.Text, unicode.IsSpace)

	for _, m := range o.matchers {
		reply, ok := m.match(ctx, in)
		if !ok {
			continue
		}
		outcome := "ok"
		if reply.Err != nil {
			outcome = ErrorCode(reply.Err)
		}
		o.observer.ObserveCommand(reply.Command, outcome)
		slog.Debug("Input handled",
			"conversation_id", in.ConversationID,
			"matcher", m.name,
			"command", reply.Command,
			"outcome", outcome,
		)
		return reply, true
	}
	return Reply{}, false
}

func (o *Orchestrator) matchCommand(ctx context.Context, in Input) (Reply, bool) {
	name, ok := ParseCommand(in.Text)
	if !ok {
		return Reply{}, false
	}
	handler, ok := o.commands[name]
	if !ok {
		return Reply{}, false
	}
	// Any known command clears a pending prompt, including /show_researches
	// issued while a close or print target is awaited.
	if prev := o.conversations.Consume(in.ConversationID); prev.Awaiting() {
		slog.Info("Pending prompt cancelled by command",
			"conversation_id", in.ConversationID,
			"state", prev.String(),
			"command", name,
		)
	}
	return handler(ctx, in), true
}

func (o *Orchestrator) matchPromptAnswer(ctx context.Context, in Input) (Reply, bool) {
	state := o.conversations.Consume(in.ConversationID)
	answer := strings.TrimSpace(in.Text)
	switch state {
	case conversation.AwaitingResearchName:
		return o.answerResearchName(in, answer), true
	case conversation.AwaitingCloseTarget:
		return o.answerCloseTarget(ctx, in, answer), true
	case conversation.AwaitingPrintTarget:
		return o.answerPrintTarget(ctx, in, answer), true
	default:
		return Reply{}, false
	}
}

func (o *Orchestrator) matchPlacement(_ context.Context, in Input) (Reply, bool) {
	req, ok := splitPlacement(in.Text)
	if !ok {
		return Reply{}, false
	}
	return o.place(in, req), true
}

func textReply(command, text string) Reply {
	return Reply{Kind: ReplyText, Command: command, Text: text}
}

func errorReply(command, text string, err error) Reply {
	return Reply{Kind: ReplyText, Command: command, Text: text, Err: err}
}

func (o *Orchestrator) start(_ context.Context, _ Input) Reply {
	return textReply(CommandStart, msgGreeting)
}

func (o *Orchestrator) newResearch(_ context.Context, in Input) Reply {
	o.conversations.Set(in.ConversationID, conversation.AwaitingResearchName)
	return textReply(CommandNewResearch, msgAskResearchName)
}

func (o *Orchestrator) answerResearchName(in Input, name string) Reply {
	const command = "research_name"
	if name == "" {
		return errorReply(command, msgResearchNameBlank, fmt.Errorf("%w: %w", ErrMalformedInput, research.ErrInvalidName))
	}
	if _, err := o.registry.Create(name, in.ConversationID); err != nil {
		if errors.Is(err, research.ErrDuplicateName) {
			return errorReply(command, msgResearchExists, err)
		}
		return errorReply(command, msgResearchNameBlank, fmt.Errorf("%w: %w", ErrMalformedInput, err))
	}
	o.observer.ObserveResearches(o.registry.Len())
	slog.Info("Research created", "research", name, "conversation_id", in.ConversationID)
	return textReply(command, fmt.Sprintf(msgResearchStarted, name))
}

func (o *Orchestrator) addObjects(_ context.Context, _ Input) Reply {
	if o.registry.Len() == 0 {
		return textReply(CommandAddObjects, msgNoResearchesToAdd)
	}
	return textReply(CommandAddObjects, msgPlacementHelp)
}

func (o *Orchestrator) showResearches(_ context.Context, _ Input) Reply {
	var tables []NamedTable
	for name := range o.registry.All() {
		t, err := o.registry.Snapshot(name)
		if err != nil {
			// Closed by another conversation while listing.
			continue
		}
		tables = append(tables, NamedTable{Research: name, Table: t})
	}
	if len(tables) == 0 {
		return textReply(CommandShowResearches, msgNoResearches)
	}
	return Reply{Kind: ReplyTable, Command: CommandShowResearches, Text: msgActiveResearches, Tables: tables}
}

func (o *Orchestrator) closeResearch(_ context.Context, in Input) Reply {
	if o.registry.Len() == 0 {
		return textReply(CommandCloseResearch, msgNoResearches)
	}
	o.conversations.Set(in.ConversationID, conversation.AwaitingCloseTarget)
	return textReply(CommandCloseResearch, msgAskCloseTarget)
}

func (o *Orchestrator) printPlate(_ context.Context, in Input) Reply {
	if o.registry.Len() == 0 {
		return textReply(CommandPrintPlate, msgNoResearchesPrint)
	}
	o.conversations.Set(in.ConversationID, conversation.AwaitingPrintTarget)
	return textReply(CommandPrintPlate, msgAskPrintTarget)
}
