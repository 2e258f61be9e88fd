package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTOCPages(t *testing.T) {
	assert.Equal(t, 1, EstimateTOCPages(0))
	assert.Equal(t, 1, EstimateTOCPages(1))
	assert.Equal(t, 1, EstimateTOCPages(25))
	assert.Equal(t, 2, EstimateTOCPages(26))
	assert.Equal(t, 4, EstimateTOCPages(100))
}

func TestOutline_ShiftsByTOCPages(t *testing.T) {
	list := Recalculate([]Entry{section("s"), doc("a", 1, 5), doc("b", 1, 3)})

	rows := Outline(list, 1)

	require.Len(t, rows, 3)
	assert.Equal(t, "A.", rows[0].Label)
	assert.Equal(t, "section_break", rows[0].Kind)
	assert.Equal(t, "TAB s", rows[0].Description)
	assert.Equal(t, PageRange{2, 2}, rows[0].Pages)
	assert.Equal(t, "1.", rows[1].Label)
	assert.Equal(t, PageRange{3, 7}, rows[1].Pages)
	assert.Equal(t, 5, rows[1].PageCount)
	assert.Equal(t, PageRange{8, 10}, rows[2].Pages)
}

func TestValidateOutline_Valid(t *testing.T) {
	rows := Outline(Recalculate([]Entry{doc("a", 1, 5), doc("b", 1, 3)}), 1)

	v := ValidateOutline(rows, DefaultPageWarningThreshold)

	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
	assert.Empty(t, v.Warnings)
}

func TestValidateOutline_Gap(t *testing.T) {
	rows := []OutlineRow{
		{Label: "1.", Pages: PageRange{2, 6}, PageCount: 5},
		{Label: "2.", Pages: PageRange{10, 12}, PageCount: 3},
	}

	v := ValidateOutline(rows, 0)

	assert.False(t, v.Valid)
	require.Len(t, v.Errors, 1)
	assert.Equal(t, IssuePaginationGap, v.Errors[0].Type)
	assert.Equal(t, 7, v.Errors[0].Expected)
	assert.Equal(t, 10, v.Errors[0].Actual)
}

func TestValidateOutline_OverlapAndMismatch(t *testing.T) {
	rows := []OutlineRow{
		{Label: "1.", Pages: PageRange{1, 5}, PageCount: 5},
		{Label: "2.", Pages: PageRange{4, 9}, PageCount: 3},
	}

	v := ValidateOutline(rows, 0)

	require.Len(t, v.Errors, 2)
	assert.Equal(t, IssuePageOverlap, v.Errors[0].Type)
	assert.Equal(t, IssuePageCountMismatch, v.Errors[1].Type)
	assert.Equal(t, 6, v.Errors[1].Expected)
	assert.Equal(t, 9, v.Errors[1].Actual)
}

func TestValidateOutline_LongRowWarning(t *testing.T) {
	rows := Outline(Recalculate([]Entry{doc("a", 1, 150)}), 0)

	v := ValidateOutline(rows, DefaultPageWarningThreshold)

	assert.True(t, v.Valid)
	require.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "150 pages")
}

func TestOutline_UsesAuthoredPageCount(t *testing.T) {
	d := doc("a", 1, 5)
	d.PageCount = 4
	c := cover("c", 2)
	c.Range = PageRange{Start: 9, End: 10}
	list := []Entry{d, doc("b", 6, 8), c}

	rows := Outline(list, 0)

	assert.Equal(t, 4, rows[0].PageCount)
	assert.Equal(t, 3, rows[1].PageCount)
	assert.Equal(t, 2, rows[2].PageCount)

	// The range claims five pages for a four page file.
	v := ValidateOutline(rows, 0)
	assert.False(t, v.Valid)
	require.Len(t, v.Errors, 1)
	assert.Equal(t, IssuePageCountMismatch, v.Errors[0].Type)
	assert.Equal(t, "1.", v.Errors[0].Label)
	assert.Equal(t, 4, v.Errors[0].Expected)
	assert.Equal(t, 5, v.Errors[0].Actual)
}

func TestOutline_GeneratedCountDisagreesWithRange(t *testing.T) {
	c := cover("c", 2)
	c.Range = PageRange{Start: 1, End: 3}

	v := ValidateOutline(Outline([]Entry{c}, 0), 0)

	require.Len(t, v.Errors, 1)
	assert.Equal(t, IssuePageCountMismatch, v.Errors[0].Type)
}

func TestAuthoredPageCount(t *testing.T) {
	d := doc("a", 1, 5)
	assert.Equal(t, 5, AuthoredPageCount(d))
	d.PageCount = 7
	assert.Equal(t, 7, AuthoredPageCount(d))
	assert.Equal(t, 1, AuthoredPageCount(section("s")))
	assert.Equal(t, 3, AuthoredPageCount(cover("c", 3)))
}

func TestOutlineWithSubnumbers(t *testing.T) {
	list := Recalculate([]Entry{
		doc("a", 1, 2), doc("b", 1, 3), doc("c", 1, 4),
		doc("x", 1, 1), doc("y", 1, 2),
		doc("d", 1, 5),
	})

	rows, err := OutlineWithSubnumbers(list, 1, 2, 2)
	require.NoError(t, err)

	labels := make([]string, len(rows))
	for i, r := range rows {
		labels[i] = r.Label
	}
	assert.Equal(t, []string{"1.", "2.", "3.", "3A.", "3B.", "4."}, labels)
	// Ranges run on as in the plain outline.
	assert.Equal(t, PageRange{11, 11}, rows[3].Pages)
	assert.Equal(t, PageRange{12, 13}, rows[4].Pages)
	assert.Equal(t, PageRange{14, 18}, rows[5].Pages)
	assert.True(t, ValidateOutline(rows, 0).Valid)
}

func TestOutlineWithSubnumbers_SectionsKeepLetters(t *testing.T) {
	list := Recalculate([]Entry{section("s"), doc("a", 1, 2), doc("x", 1, 1), section("t"), doc("b", 1, 1)})

	rows, err := OutlineWithSubnumbers(list, 0, 1, 1)
	require.NoError(t, err)

	assert.Equal(t, "A.", rows[0].Label)
	assert.Equal(t, "1.", rows[1].Label)
	assert.Equal(t, "1A.", rows[2].Label)
	assert.Equal(t, "B.", rows[3].Label)
	assert.Equal(t, "2.", rows[4].Label)
}

func TestOutlineWithSubnumbers_NoInsert(t *testing.T) {
	list := Recalculate([]Entry{doc("a", 1, 2), doc("b", 1, 3)})

	for _, tt := range []struct{ after, count int }{{-1, 2}, {0, 0}} {
		rows, err := OutlineWithSubnumbers(list, 1, tt.after, tt.count)
		require.NoError(t, err)
		assert.Equal(t, Outline(list, 1), rows)
	}
}

func TestOutlineWithSubnumbers_OutOfRange(t *testing.T) {
	list := Recalculate([]Entry{doc("a", 1, 2), doc("b", 1, 3)})

	_, err := OutlineWithSubnumbers(list, 1, 2, 1)
	assert.Equal(t, ErrCodeIndexOutOfRange, CodeOf(err))
	_, err = OutlineWithSubnumbers(list, 1, 0, 2)
	assert.Equal(t, ErrCodeIndexOutOfRange, CodeOf(err))
}

func TestSubnumberSuffix(t *testing.T) {
	assert.Equal(t, "A", SubnumberSuffix(0))
	assert.Equal(t, "C", SubnumberSuffix(2))
	assert.Equal(t, "Z", SubnumberSuffix(40))
}
