package corpus

import (
	"regexp"
	"strconv"
)

var noteRefPattern = regexp.MustCompile(`\*+(\d+):(\d+)`)

// NoteRef extracts the first "*sura:verse" marker of a footnote.
func NoteRef(text string) (sura, verse int, ok bool) {
	m := noteRefPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, false
	}
	s, err1 := strconv.Atoi(m[1])
	v, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return s, v, true
}
