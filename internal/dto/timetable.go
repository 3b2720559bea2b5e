package dto

// SubjectLoadRequest captures weekly demand for a subject-teacher pair.
type SubjectLoadRequest struct {
	Subject       string `json:"subject" validate:"required"`
	Teacher       string `json:"teacher" validate:"required"`
	WeeklyPeriods int    `json:"weeklyPeriods" validate:"required,min=1"`
}

// SectionRequest declares one section and its ordered subject loads.
type SectionRequest struct {
	ID       string               `json:"id" validate:"required"`
	Subjects []SubjectLoadRequest `json:"subjects" validate:"required,min=1,dive"`
}

// GenerateTimetableRequest instructs the engine to build a full set of tables.
type GenerateTimetableRequest struct {
	Sections      []SectionRequest `json:"sections" validate:"required,min=1,dive"`
	PeriodsPerDay int              `json:"periodsPerDay" validate:"required,min=2,max=16"`
	LunchPeriod   int              `json:"lunchPeriod" validate:"min=0"`
	Saturday      string           `json:"saturday" validate:"omitempty,oneof=holiday half full"`
}

// TimetableTable is one materialized grid, rows keyed by day.
type TimetableTable struct {
	Entity  string     `json:"entity"`
	Kind    string     `json:"kind"`
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// TimetableEntity describes a generated table available for fetching.
type TimetableEntity struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Filename string `json:"filename"`
}

// GenerateTimetableResponse returns the generated tables and export files.
type GenerateTimetableResponse struct {
	RunID    string            `json:"runId"`
	Sections int               `json:"sections"`
	Teachers int               `json:"teachers"`
	Entities []TimetableEntity `json:"entities"`
	Tables   []TimetableTable  `json:"tables"`
}
