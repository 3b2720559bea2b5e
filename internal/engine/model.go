package engine

import (
	"fmt"
)

// SaturdayMode controls how Saturday participates in the weekly grid.
type SaturdayMode string

const (
	SaturdayHoliday SaturdayMode = "holiday"
	SaturdayHalfDay SaturdayMode = "half"
	SaturdayFullDay SaturdayMode = "full"
)

// SubjectLoad is the weekly demand for one subject taught by one teacher.
type SubjectLoad struct {
	Subject       string
	Teacher       string
	WeeklyPeriods int
}

// SectionInput declares a section and its ordered subject demands.
type SectionInput struct {
	ID    string
	Loads []SubjectLoad
}

// GridInput declares the weekly time grid.
type GridInput struct {
	PeriodsPerDay int
	LunchPeriod   int
	Saturday      SaturdayMode
}

// Input is the raw institutional configuration handed to NewModel.
type Input struct {
	Grid     GridInput
	Sections []SectionInput
}

// ValidationError reports malformed or inconsistent input, naming the field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalidField(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// Slot is one assignable (day, period) cell. Day is 1-based (1 = Monday),
// Period is a 0-based index into the day. The lunch period is never a Slot.
type Slot struct {
	Day    int
	Period int
}

const (
	dayMonday   = 1
	daySaturday = 6
)

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DayName returns the English weekday label for a 1-based day index.
func DayName(day int) string {
	if day < 1 || day >= len(dayNames) {
		return fmt.Sprintf("Day %d", day)
	}
	return dayNames[day]
}

// Model is a validated, immutable constraint model. All slices returned by
// its accessors are owned by the model and must not be mutated.
type Model struct {
	grid     GridInput
	days     []int
	slots    []Slot
	sections []SectionInput
	teachers []string
}

// NewModel validates raw input and freezes it into a Model.
func NewModel(in Input) (*Model, error) {
	grid := in.Grid
	if grid.Saturday == "" {
		grid.Saturday = SaturdayHoliday
	}
	switch grid.Saturday {
	case SaturdayHoliday, SaturdayHalfDay, SaturdayFullDay:
	default:
		return nil, invalidField("saturday", "unknown mode %q", string(grid.Saturday))
	}
	if grid.PeriodsPerDay < 2 {
		return nil, invalidField("periodsPerDay", "must be at least 2, got %d", grid.PeriodsPerDay)
	}
	if grid.LunchPeriod < 0 || grid.LunchPeriod >= grid.PeriodsPerDay {
		return nil, invalidField("lunchPeriod", "must be within [0, %d), got %d", grid.PeriodsPerDay, grid.LunchPeriod)
	}
	if len(in.Sections) == 0 {
		return nil, invalidField("sections", "at least one section is required")
	}

	m := &Model{grid: grid}
	lastDay := daySaturday - 1
	if grid.Saturday != SaturdayHoliday {
		lastDay = daySaturday
	}
	for day := dayMonday; day <= lastDay; day++ {
		m.days = append(m.days, day)
		for period := 0; period < m.PeriodsForDay(day); period++ {
			if period == grid.LunchPeriod {
				continue
			}
			m.slots = append(m.slots, Slot{Day: day, Period: period})
		}
	}

	seenSections := make(map[string]bool, len(in.Sections))
	seenTeachers := make(map[string]bool)
	capacity := len(m.slots)
	for i, section := range in.Sections {
		if section.ID == "" {
			return nil, invalidField(fmt.Sprintf("sections[%d].id", i), "section id is required")
		}
		if seenSections[section.ID] {
			return nil, invalidField(fmt.Sprintf("sections[%d].id", i), "duplicate section %q", section.ID)
		}
		seenSections[section.ID] = true
		if len(section.Loads) == 0 {
			return nil, invalidField(fmt.Sprintf("sections[%d].subjects", i), "at least one subject is required")
		}

		seenSubjects := make(map[string]bool, len(section.Loads))
		total := 0
		for j, load := range section.Loads {
			field := fmt.Sprintf("sections[%d].subjects[%d]", i, j)
			if load.Subject == "" {
				return nil, invalidField(field+".subject", "subject is required")
			}
			if load.Teacher == "" {
				return nil, invalidField(field+".teacher", "teacher is required")
			}
			if load.WeeklyPeriods <= 0 {
				return nil, invalidField(field+".weeklyPeriods", "must be a positive integer, got %d", load.WeeklyPeriods)
			}
			if seenSubjects[load.Subject] {
				return nil, invalidField(field+".subject", "duplicate subject %q in section %q", load.Subject, section.ID)
			}
			seenSubjects[load.Subject] = true
			total += load.WeeklyPeriods
			if !seenTeachers[load.Teacher] {
				seenTeachers[load.Teacher] = true
				m.teachers = append(m.teachers, load.Teacher)
			}
		}
		if total > capacity {
			return nil, invalidField(fmt.Sprintf("sections[%d]", i),
				"section %q requires %d periods but only %d slots are available per week", section.ID, total, capacity)
		}

		loads := make([]SubjectLoad, len(section.Loads))
		copy(loads, section.Loads)
		m.sections = append(m.sections, SectionInput{ID: section.ID, Loads: loads})
	}

	return m, nil
}

// Days returns the working days of the grid in order.
func (m *Model) Days() []int { return m.days }

// PeriodsPerDay returns the configured number of periods per full day.
func (m *Model) PeriodsPerDay() int { return m.grid.PeriodsPerDay }

// LunchPeriod returns the 0-based lunch period index.
func (m *Model) LunchPeriod() int { return m.grid.LunchPeriod }

// Saturday returns the configured Saturday mode.
func (m *Model) Saturday() SaturdayMode { return m.grid.Saturday }

// PeriodsForDay returns how many periods exist on the given day. Saturday in
// half-day mode runs only the morning half of the grid.
func (m *Model) PeriodsForDay(day int) int {
	if day == daySaturday && m.grid.Saturday == SaturdayHalfDay {
		return m.grid.PeriodsPerDay / 2
	}
	return m.grid.PeriodsPerDay
}

// Slots returns every assignable slot in day-major, period-minor order.
func (m *Model) Slots() []Slot { return m.slots }

// Sections returns the validated sections in input order.
func (m *Model) Sections() []SectionInput { return m.sections }

// Teachers returns the distinct teachers in first-seen order.
func (m *Model) Teachers() []string { return m.teachers }
