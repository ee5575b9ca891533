package bot

import (
	"strings"
	"unicode"
)

// Command names as reported in replies and metrics.
const (
	CommandStart          = "start"
	CommandNewResearch    = "new_research"
	CommandAddObjects     = "add_objects"
	CommandShowResearches = "show_researches"
	CommandCloseResearch  = "close_research"
	CommandPrintPlate     = "print_plate"
)

// ParseCommand extracts the command name from input such as
// "/new_research", "/new-research@platebot" or "/start now". Hyphens are
// normalized to underscores. The second result is false when the input is
// not a command.
func ParseCommand(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", false
	}
	word, _, _ := strings.Cut(fields[0][1:], "@")
	if word == "" {
		return "", false
	}
	return strings.ReplaceAll(word, "-", "_"), true
}

type placementRequest struct {
	research      string
	expertiseID   string
	count         string
	objectNumbers string
}

// splitPlacement cuts text into three whitespace-separated fields and the
// remainder of the line. The remainder keeps its inner whitespace.
func splitPlacement(text string) (placementRequest, bool) {
	var fields [3]string
	rest := text
	for i := range fields {
		rest = strings.TrimLeftFunc(rest, unicode.IsSpace)
		end := strings.IndexFunc(rest, unicode.IsSpace)
		if end < 0 {
			return placementRequest{}, false
		}
		fields[i] = rest[:end]
		rest = rest[end:]
	}
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return placementRequest{}, false
	}
	return placementRequest{
		research:      fields[0],
		expertiseID:   fields[1],
		count:         fields[2],
		objectNumbers: rest,
	}, true
}
