package types

// ExtractRequest is the caller-supplied run scope. Dates are inclusive
// calendar days in the configured timezone.
type ExtractRequest struct {
	StartDate     string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string   `json:"end_date" validate:"required,datetime=2006-01-02"`
	UserIDs       []string `json:"user_ids,omitempty" validate:"omitempty,dive,required"`
	BranchIDs     []string `json:"branch_ids,omitempty" validate:"omitempty,dive,required"`
	DepartmentIDs []string `json:"department_ids,omitempty" validate:"omitempty,dive,required"`
	ExtractAll    bool     `json:"extract_all"`
}

// ExtractResult summarizes a timeclock extraction run.
type ExtractResult struct {
	Created []ShiftRecord  `json:"created"`
	Closed  []ShiftClosure `json:"closed"`
	Dropped int            `json:"dropped"`
}

// TimeLogResult summarizes a time-log ingestion run.
type TimeLogResult struct {
	Created []TimeLog `json:"created"`
	Dropped int       `json:"dropped"`
}
