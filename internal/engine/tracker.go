package engine

// Tracker answers section and teacher occupancy queries in O(1). It is owned
// by a single allocator run and is never shared between runs.
type Tracker struct {
	sections     map[string]map[Slot]bool
	teachers     map[string]map[Slot]bool
	reservations int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		sections: make(map[string]map[Slot]bool),
		teachers: make(map[string]map[Slot]bool),
	}
}

// SectionFree reports whether the section has no placement at the slot.
func (t *Tracker) SectionFree(section string, slot Slot) bool {
	return !t.sections[section][slot]
}

// TeacherFree reports whether the teacher has no placement at the slot.
func (t *Tracker) TeacherFree(teacher string, slot Slot) bool {
	return !t.teachers[teacher][slot]
}

// Reserve marks the slot occupied for both the section and the teacher.
// Every Reserve must be paired with a Release if the placement is undone.
func (t *Tracker) Reserve(section, teacher string, slot Slot) {
	if t.sections[section] == nil {
		t.sections[section] = make(map[Slot]bool)
	}
	if t.teachers[teacher] == nil {
		t.teachers[teacher] = make(map[Slot]bool)
	}
	t.sections[section][slot] = true
	t.teachers[teacher][slot] = true
	t.reservations++
}

// Release undoes a prior Reserve for the same triple.
func (t *Tracker) Release(section, teacher string, slot Slot) {
	delete(t.sections[section], slot)
	delete(t.teachers[teacher], slot)
	if t.reservations > 0 {
		t.reservations--
	}
}

// Reservations returns the count of currently held reservations.
func (t *Tracker) Reservations() int { return t.reservations }
