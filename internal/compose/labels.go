package compose

// SectionLabel returns the bijective base-26 letter code for a zero-based
// section ordinal, the same scheme spreadsheets use for columns:
// 0 -> "A", 25 -> "Z", 26 -> "AA", 27 -> "AB", 701 -> "ZZ", 702 -> "AAA".
//
// Negative ordinals yield "".
func SectionLabel(ordinal int) string {
	if ordinal < 0 {
		return ""
	}
	var buf [16]byte
	i := len(buf)
	for n := ordinal; n >= 0; n = n/26 - 1 {
		i--
		buf[i] = byte('A' + n%26)
	}
	return string(buf[i:])
}

// DefaultSectionTitle is the authored label given to a new section break
// when the caller supplies none, e.g. "TAB C".
func DefaultSectionTitle(ordinal int) string {
	return "TAB " + SectionLabel(ordinal)
}
