package engine

import "fmt"

// Placement records which subject and teacher occupy a slot for a section.
type Placement struct {
	Subject string
	Teacher string
}

// Assignment maps section -> slot -> placement. It is mutated only by the
// allocator during search and is immutable once Solve returns.
type Assignment map[string]map[Slot]Placement

// ConflictError reports the unit the search got stuck on after exhausting
// backtracking: the deepest (section, subject, teacher) it failed to place.
type ConflictError struct {
	Section string
	Subject string
	Teacher string
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("cannot place subject %q (teacher %q) for section %q", e.Subject, e.Teacher, e.Section)
}

// placementUnit is one required period of a subject within a section.
type placementUnit struct {
	section string
	subject string
	teacher string
}

// Allocator performs a deterministic first-fit backtracking search over one
// flat sequence of placement units: sections in input order, each section's
// loads in input order, one unit per required period. Backtracking crosses
// section boundaries, so a later section that cannot be placed forces earlier
// sections' placements to be revised before a conflict is declared. Identical
// input always yields an identical assignment.
type Allocator struct {
	model   *Model
	tracker *Tracker
	steps   int
}

// NewAllocator builds an allocator with a fresh tracker for one run.
func NewAllocator(m *Model) *Allocator {
	return &Allocator{model: m, tracker: NewTracker()}
}

// Tracker exposes the run's occupancy state.
func (a *Allocator) Tracker() *Tracker { return a.tracker }

// Steps returns the number of backtracking releases performed during Solve.
func (a *Allocator) Steps() int { return a.steps }

// Solve assigns every unit to a slot or proves that no assignment exists.
// On failure every reservation made during the run has been released (the
// tracker is back in its pre-run state) and a ConflictError names the deepest
// unit the search could not place.
func (a *Allocator) Solve() (Assignment, error) {
	units := expandUnits(a.model.Sections())
	assignment := make(Assignment, len(a.model.Sections()))
	for _, section := range a.model.Sections() {
		assignment[section.ID] = make(map[Slot]Placement)
	}

	search := &unitSearch{allocator: a, units: units, assignment: assignment}
	if !search.place(0, 0) {
		stuck := units[search.deepest]
		return nil, &ConflictError{Section: stuck.section, Subject: stuck.subject, Teacher: stuck.teacher}
	}
	return assignment, nil
}

// expandUnits flattens every section's loads into one unit per required
// period, preserving input order so the search stays deterministic.
func expandUnits(sections []SectionInput) []placementUnit {
	var units []placementUnit
	for _, section := range sections {
		for _, load := range section.Loads {
			for i := 0; i < load.WeeklyPeriods; i++ {
				units = append(units, placementUnit{section: section.ID, subject: load.Subject, teacher: load.Teacher})
			}
		}
	}
	return units
}

// unitSearch carries the backtracking state for one Solve run.
type unitSearch struct {
	allocator  *Allocator
	units      []placementUnit
	assignment Assignment
	deepest    int
}

// place tries to put unit idx into the earliest admissible slot. The `from`
// bound only constrains units repeating the previous unit's section and
// subject: forcing identical units onto strictly increasing slot indices
// prunes symmetric orderings without changing first-fit semantics. A false
// return means every admissible slot for this unit was tried and undone.
func (s *unitSearch) place(idx, from int) bool {
	if idx == len(s.units) {
		return true
	}
	unit := s.units[idx]
	slots := s.allocator.model.Slots()
	start := 0
	if idx > 0 && s.units[idx-1].section == unit.section && s.units[idx-1].subject == unit.subject {
		start = from
	}
	tracker := s.allocator.tracker
	for i := start; i < len(slots); i++ {
		slot := slots[i]
		if !tracker.SectionFree(unit.section, slot) || !tracker.TeacherFree(unit.teacher, slot) {
			continue
		}
		tracker.Reserve(unit.section, unit.teacher, slot)
		s.assignment[unit.section][slot] = Placement{Subject: unit.subject, Teacher: unit.teacher}
		if s.place(idx+1, i+1) {
			return true
		}
		delete(s.assignment[unit.section], slot)
		tracker.Release(unit.section, unit.teacher, slot)
		s.allocator.steps++
	}
	if idx > s.deepest {
		s.deepest = idx
	}
	return false
}
