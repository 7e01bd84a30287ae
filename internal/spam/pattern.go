package spam

import (
	"regexp"

	"chatguard/internal/storage"
)

// Whole-string only: an address buried inside a longer sentence is not a
// signal, a message that is nothing but an address is.
var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// PatternDetector flags bare cryptocurrency-address messages, but only in
// rooms whose group is on the configured denylist.
type PatternDetector struct {
	denylisted map[string]struct{}
}

func NewPatternDetector(groups []string) *PatternDetector {
	denylisted := make(map[string]struct{}, len(groups))
	for _, group := range groups {
		denylisted[group] = struct{}{}
	}
	return &PatternDetector{denylisted: denylisted}
}

func (d *PatternDetector) Match(room storage.Room, text string) bool {
	if _, ok := d.denylisted[room.GroupID]; !ok {
		return false
	}
	return addressPattern.MatchString(text)
}
