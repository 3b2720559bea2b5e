package engine

import "fmt"

// Cell labels for non-teaching positions in a materialized grid.
const (
	CellLunch   = "LUNCH"
	CellFree    = "FREE"
	CellOffGrid = "-"
)

// EntityKind distinguishes section tables from teacher tables.
type EntityKind string

const (
	KindSection EntityKind = "section"
	KindTeacher EntityKind = "teacher"
)

// Table is one materialized timetable grid: rows are days, columns are
// periods including the labeled lunch column.
type Table struct {
	Entity  string
	Kind    EntityKind
	Title   string
	Headers []string
	Rows    [][]string
}

// Materialize converts a completed assignment into per-section and
// per-teacher tables, sections first, in model order. It fails if the
// assignment does not cover every section of the model; given a successful
// allocator run that path is unreachable.
func Materialize(m *Model, assignment Assignment) ([]Table, error) {
	for _, section := range m.Sections() {
		if _, ok := assignment[section.ID]; !ok {
			return nil, fmt.Errorf("assignment incomplete: section %q missing", section.ID)
		}
	}

	headers := m.headerRow()
	tables := make([]Table, 0, len(m.Sections())+len(m.Teachers()))
	for _, section := range m.Sections() {
		tables = append(tables, m.buildTable(section.ID, KindSection, headers, func(slot Slot) (string, bool) {
			placement, ok := assignment[section.ID][slot]
			if !ok {
				return "", false
			}
			return fmt.Sprintf("%s (%s)", placement.Subject, placement.Teacher), true
		}))
	}

	for _, teacher := range m.Teachers() {
		teacherCells := make(map[Slot]string)
		for _, section := range m.Sections() {
			for slot, placement := range assignment[section.ID] {
				if placement.Teacher == teacher {
					teacherCells[slot] = fmt.Sprintf("%s / %s", section.ID, placement.Subject)
				}
			}
		}
		tables = append(tables, m.buildTable(teacher, KindTeacher, headers, func(slot Slot) (string, bool) {
			cell, ok := teacherCells[slot]
			return cell, ok
		}))
	}

	return tables, nil
}

func (m *Model) headerRow() []string {
	headers := make([]string, 0, m.PeriodsPerDay()+1)
	headers = append(headers, "Day")
	number := 0
	for period := 0; period < m.PeriodsPerDay(); period++ {
		if period == m.LunchPeriod() {
			headers = append(headers, "Lunch")
			continue
		}
		number++
		headers = append(headers, fmt.Sprintf("Period %d", number))
	}
	return headers
}

func (m *Model) buildTable(entity string, kind EntityKind, headers []string, cell func(Slot) (string, bool)) Table {
	rows := make([][]string, 0, len(m.Days()))
	for _, day := range m.Days() {
		row := make([]string, 0, m.PeriodsPerDay()+1)
		row = append(row, DayName(day))
		limit := m.PeriodsForDay(day)
		for period := 0; period < m.PeriodsPerDay(); period++ {
			switch {
			case period >= limit:
				row = append(row, CellOffGrid)
			case period == m.LunchPeriod():
				row = append(row, CellLunch)
			default:
				if value, ok := cell(Slot{Day: day, Period: period}); ok {
					row = append(row, value)
				} else {
					row = append(row, CellFree)
				}
			}
		}
		rows = append(rows, row)
	}

	title := entity
	if kind == KindTeacher {
		title = "Teacher " + entity
	}
	return Table{Entity: entity, Kind: kind, Title: title, Headers: headers, Rows: rows}
}
