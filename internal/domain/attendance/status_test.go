package attendance

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusNext_Cycle(t *testing.T) {
	assert.Equal(t, Present, Unset.Next())
	assert.Equal(t, Tardy, Present.Next())
	assert.Equal(t, Absent, Tardy.Next())
	assert.Equal(t, Unset, Absent.Next())
}

func TestStatusNext_FourTogglesReturnToStart(t *testing.T) {
	for _, start := range []Status{Unset, Present, Tardy, Absent} {
		s := start
		for i := 0; i < 4; i++ {
			s = s.Next()
			assert.True(t, s.Valid())
		}
		assert.Equal(t, start, s)
	}
}

func TestStatusNext_UnknownInputTreatedAsUnset(t *testing.T) {
	assert.Equal(t, Present, Status("X").Next())
	assert.Equal(t, Present, Status("present").Next())
}

func TestStatusValid(t *testing.T) {
	assert.True(t, Unset.Valid())
	assert.True(t, Present.Valid())
	assert.True(t, Tardy.Valid())
	assert.True(t, Absent.Valid())
	assert.False(t, Status("X").Valid())
	assert.False(t, Status("p").Valid())
}

func TestMonthSummaryAdd(t *testing.T) {
	var sum MonthSummary
	for _, s := range []Status{Present, Present, Tardy, Absent, Unset, Status("X")} {
		sum.Add(s)
	}

	assert.Equal(t, 2, sum.Present)
	assert.Equal(t, 1, sum.Tardy)
	assert.Equal(t, 1, sum.Absent)
}
