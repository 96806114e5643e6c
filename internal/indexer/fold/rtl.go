package fold

const (
	tatweel  = 0x0640
	zwnj     = 0x200C
	zwj      = 0x200D
	farsiYeh = 0x06CC
	kehe     = 0x06A9
	heh      = 0x0647
	alef     = 0x0627
	waw      = 0x0648
)

// canonicalArabic drops tatweel, joiners and tashkeel and unifies letter
// variants. It returns -1 for runes that are removed.
func canonicalArabic(r rune) rune {
	switch r {
	case tatweel, zwnj, zwj:
		return -1
	case 'أ', 'إ', 'آ', 'ٱ':
		return alef
	case 'ؤ':
		return waw
	case 'ئ', 'ى', 'ي':
		return farsiYeh
	case 'ك':
		return kehe
	case 'ة', 'ۀ':
		return heh
	}
	if isArabicMark(r) {
		return -1
	}
	return r
}

// isArabicMark covers harakat, superscript alef and Quranic annotation signs.
// NFD can surface some of them (hamza above/below) so they are stripped again
// after decomposition.
func isArabicMark(r rune) bool {
	return (r >= 0x064B && r <= 0x065F) || r == 0x0670 || (r >= 0x06D6 && r <= 0x06ED)
}
