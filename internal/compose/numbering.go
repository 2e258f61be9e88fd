package compose

import "strconv"

// DisplayNumber returns the visible ordinal of the entry at index in list.
//
// Section breaks are lettered from a running count of section breaks up to
// and including index ("A.", "B.", ...). Every other row shares one numeric
// counter that skips section breaks ("1.", "2.", ...).
//
// Labels are recomputed from the whole list on every call; an insertion or
// removal anywhere shifts every label after it.
func DisplayNumber(e Entry, index int, list []Entry) string {
	sections, ordinals := 0, 0
	for i := 0; i <= index && i < len(list); i++ {
		if list[i].Kind() == KindSectionBreak {
			sections++
		} else {
			ordinals++
		}
	}
	if e.Kind() == KindSectionBreak {
		return SectionLabel(sections-1) + "."
	}
	return strconv.Itoa(ordinals) + "."
}

// DisplayNumbers returns DisplayNumber for every entry in a single pass.
func DisplayNumbers(list []Entry) []string {
	out := make([]string, len(list))
	sections, ordinals := 0, 0
	for i, e := range list {
		if e.Kind() == KindSectionBreak {
			out[i] = SectionLabel(sections) + "."
			sections++
			continue
		}
		ordinals++
		out[i] = strconv.Itoa(ordinals) + "."
	}
	return out
}

// SectionOrdinalAt returns the zero-based ordinal a section break would take
// if inserted at index at.
func SectionOrdinalAt(list []Entry, at int) int {
	if at < 0 || at > len(list) {
		at = len(list)
	}
	n := 0
	for _, e := range list[:at] {
		if e.Kind() == KindSectionBreak {
			n++
		}
	}
	return n
}
