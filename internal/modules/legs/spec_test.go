package legs

import (
	"testing"

	"github.com/aristath/spreadscan/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCalendarLegs(t *testing.T) {
	legs, err := ParseCalendarLegs([][]string{
		{"Q", "Z", "0", "1", "A"},
		{"+1", "Z", "+0", "+1", "B"},
	})
	require.NoError(t, err)
	require.Len(t, legs, 2)

	assert.Equal(t, CalendarLeg{
		MonthInit:  Bound{Value: 7},
		MonthBound: Bound{Value: 11},
		YearInit:   Bound{Value: 0},
		YearBound:  Bound{Value: 1},
		Side:       domain.SideLong,
	}, legs[0])
	assert.Equal(t, CalendarLeg{
		MonthInit:  Bound{Value: 1, Relative: true},
		MonthBound: Bound{Value: 11},
		YearInit:   Bound{Value: 0, Relative: true},
		YearBound:  Bound{Value: 1, Relative: true},
		Side:       domain.SideShort,
	}, legs[1])
}

func TestParseTermLegs_BadOffset(t *testing.T) {
	_, err := ParseTermLegs([][]string{{"+x", "10", "A"}})
	assert.ErrorIs(t, err, ErrInvalidSpecification)
}

func TestParseLegText(t *testing.T) {
	spec := ParseLegText("Q, Z, 0, 1, A\n\n +1,Z,+0,1,B \n")
	assert.Equal(t, [][]string{
		{"Q", "Z", "0", "1", "A"},
		{"+1", "Z", "+0", "1", "B"},
	}, spec)
}

func TestBound(t *testing.T) {
	assert.Equal(t, 7, Bound{Value: 2, Relative: true}.Resolve(5))
	assert.Equal(t, 2, Bound{Value: 2}.Resolve(5))
	assert.Equal(t, "+2", Bound{Value: 2, Relative: true}.String())
	assert.Equal(t, "9", Bound{Value: 9}.String())
}
