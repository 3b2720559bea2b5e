package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridFiveByFour() GridInput {
	return GridInput{PeriodsPerDay: 4, LunchPeriod: 2, Saturday: SaturdayHoliday}
}

func TestNewModelBuildsSlotGrid(t *testing.T) {
	model, err := NewModel(Input{
		Grid: gridFiveByFour(),
		Sections: []SectionInput{
			{ID: "Grade 1 A", Loads: []SubjectLoad{{Subject: "English", Teacher: "Asha", WeeklyPeriods: 3}}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, model.Days())
	// 5 days x (4 periods - lunch) assignable slots.
	assert.Len(t, model.Slots(), 15)
	for _, slot := range model.Slots() {
		assert.NotEqual(t, 2, slot.Period, "lunch period must never be a slot")
	}
	assert.Equal(t, []string{"Asha"}, model.Teachers())
}

func TestNewModelRejectsOverCapacitySection(t *testing.T) {
	// 5 days x 5 periods with one lunch leaves 20 slots; 21 must be rejected.
	_, err := NewModel(Input{
		Grid: GridInput{PeriodsPerDay: 5, LunchPeriod: 2},
		Sections: []SectionInput{
			{ID: "Grade 9 A", Loads: []SubjectLoad{{Subject: "Mathematics", Teacher: "Binod", WeeklyPeriods: 21}}},
		},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "sections[0]", vErr.Field)
}

func TestNewModelFieldValidation(t *testing.T) {
	section := func(loads ...SubjectLoad) []SectionInput {
		return []SectionInput{{ID: "Grade 2 B", Loads: loads}}
	}
	cases := []struct {
		name  string
		input Input
		field string
	}{
		{
			name:  "lunch out of range",
			input: Input{Grid: GridInput{PeriodsPerDay: 4, LunchPeriod: 4}, Sections: section(SubjectLoad{Subject: "EVS", Teacher: "Chitra", WeeklyPeriods: 1})},
			field: "lunchPeriod",
		},
		{
			name:  "too few periods",
			input: Input{Grid: GridInput{PeriodsPerDay: 1, LunchPeriod: 0}, Sections: section(SubjectLoad{Subject: "EVS", Teacher: "Chitra", WeeklyPeriods: 1})},
			field: "periodsPerDay",
		},
		{
			name:  "no sections",
			input: Input{Grid: gridFiveByFour()},
			field: "sections",
		},
		{
			name:  "zero weekly periods",
			input: Input{Grid: gridFiveByFour(), Sections: section(SubjectLoad{Subject: "EVS", Teacher: "Chitra", WeeklyPeriods: 0})},
			field: "sections[0].subjects[0].weeklyPeriods",
		},
		{
			name: "duplicate subject in section",
			input: Input{Grid: gridFiveByFour(), Sections: section(
				SubjectLoad{Subject: "Hindi", Teacher: "Chitra", WeeklyPeriods: 2},
				SubjectLoad{Subject: "Hindi", Teacher: "Deepak", WeeklyPeriods: 2},
			)},
			field: "sections[0].subjects[1].subject",
		},
		{
			name:  "missing teacher",
			input: Input{Grid: gridFiveByFour(), Sections: section(SubjectLoad{Subject: "Hindi", WeeklyPeriods: 2})},
			field: "sections[0].subjects[0].teacher",
		},
		{
			name: "duplicate section id",
			input: Input{Grid: gridFiveByFour(), Sections: []SectionInput{
				{ID: "Grade 2 B", Loads: []SubjectLoad{{Subject: "Hindi", Teacher: "Chitra", WeeklyPeriods: 1}}},
				{ID: "Grade 2 B", Loads: []SubjectLoad{{Subject: "EVS", Teacher: "Deepak", WeeklyPeriods: 1}}},
			}},
			field: "sections[1].id",
		},
		{
			name:  "unknown saturday mode",
			input: Input{Grid: GridInput{PeriodsPerDay: 4, LunchPeriod: 2, Saturday: "weekend"}, Sections: section(SubjectLoad{Subject: "EVS", Teacher: "Chitra", WeeklyPeriods: 1})},
			field: "saturday",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewModel(tc.input)
			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
		})
	}
}

func TestNewModelSaturdayModes(t *testing.T) {
	base := SectionInput{ID: "Grade 3 A", Loads: []SubjectLoad{{Subject: "Art", Teacher: "Esha", WeeklyPeriods: 1}}}

	holiday, err := NewModel(Input{Grid: GridInput{PeriodsPerDay: 4, LunchPeriod: 2, Saturday: SaturdayHoliday}, Sections: []SectionInput{base}})
	require.NoError(t, err)
	full, err := NewModel(Input{Grid: GridInput{PeriodsPerDay: 4, LunchPeriod: 2, Saturday: SaturdayFullDay}, Sections: []SectionInput{base}})
	require.NoError(t, err)
	half, err := NewModel(Input{Grid: GridInput{PeriodsPerDay: 4, LunchPeriod: 2, Saturday: SaturdayHalfDay}, Sections: []SectionInput{base}})
	require.NoError(t, err)

	assert.Len(t, holiday.Slots(), 15)
	assert.Len(t, full.Slots(), 18)
	// Half-day Saturday runs 2 of 4 periods; period 2 (lunch) is beyond the
	// half-day limit so both Saturday slots are teachable.
	assert.Len(t, half.Slots(), 17)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, holiday.Days())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, full.Days())
}

func TestNewModelSaturdayCapacityRecomputed(t *testing.T) {
	loads := []SubjectLoad{{Subject: "Science", Teacher: "Farid", WeeklyPeriods: 16}}

	_, err := NewModel(Input{
		Grid:     GridInput{PeriodsPerDay: 4, LunchPeriod: 2, Saturday: SaturdayFullDay},
		Sections: []SectionInput{{ID: "Grade 8 C", Loads: loads}},
	})
	require.NoError(t, err)

	// Same quota no longer fits once Saturday drops out of the grid.
	_, err = NewModel(Input{
		Grid:     GridInput{PeriodsPerDay: 4, LunchPeriod: 2, Saturday: SaturdayHoliday},
		Sections: []SectionInput{{ID: "Grade 8 C", Loads: loads}},
	})
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
}
