package tokenizer

import "unicode"

// IsWordChar reports whether r belongs to a word: ASCII digits, letters with a
// case pair, and the caseless scripts the corpus is published in (Arabic,
// Hebrew, CJK, the Devanagari-to-Sinhala block and Thai).
func IsWordChar(r rune) bool {
	switch {
	case r >= '0' && r <= '9':
		return true
	case r >= 0x0621 && r <= 0x064A, r >= 0x066E && r <= 0x06D3:
		return true
	case r >= 0x05D0 && r <= 0x05EA:
		return true
	case r >= 0x4E00 && r <= 0x9FFF:
		return true
	case r >= 0x0900 && r <= 0x0DFF:
		return true
	case r >= 0x0E00 && r <= 0x0E7F:
		return true
	}
	return hasCasePair(r)
}

func hasCasePair(r rune) bool {
	if r < 0x80 {
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
	}
	if unicode.ToUpper(r) != unicode.ToLower(r) {
		return true
	}
	return expandingUpper(r)
}

// expandingUpper lists lowercase letters whose uppercase form is a multi-rune
// sequence. unicode.ToUpper maps them to themselves, yet they are cased.
func expandingUpper(r rune) bool {
	switch {
	case r == 0x00DF, r == 0x0149, r == 0x01F0, r == 0x0390, r == 0x03B0, r == 0x0587:
		return true
	case r >= 0x1E96 && r <= 0x1E9A:
		return true
	case r >= 0xFB00 && r <= 0xFB06, r >= 0xFB13 && r <= 0xFB17:
		return true
	}
	return false
}
