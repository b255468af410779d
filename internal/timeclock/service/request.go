package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

var validate = validator.New()

// RunRange is the inclusive calendar range of a run, pinned to a location.
type RunRange struct {
	Start types.Date
	End   types.Date
	Loc   *time.Location
}

// DayBounds is [Start 00:00, End+1 00:00).
func (r RunRange) DayBounds() (time.Time, time.Time) {
	return r.Start.Midnight(r.Loc), r.End.AddDays(1).Midnight(r.Loc)
}

// EventBounds extends the range by one day so overnight shifts starting on
// the last day can find their check-out.
func (r RunRange) EventBounds() (time.Time, time.Time) {
	return r.Start.Midnight(r.Loc), r.End.AddDays(2).Midnight(r.Loc)
}

// ParseRequest validates req and returns its range and scope.
func ParseRequest(req types.ExtractRequest, loc *time.Location) (RunRange, Scope, error) {
	if err := validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
			}
			return RunRange{}, Scope{}, fmt.Errorf("%w: %s", ErrInvalidRequest, strings.Join(msgs, "; "))
		}
		return RunRange{}, Scope{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	start, err := types.ParseDate(req.StartDate)
	if err != nil {
		return RunRange{}, Scope{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	end, err := types.ParseDate(req.EndDate)
	if err != nil {
		return RunRange{}, Scope{}, fmt.Errorf("%w: %v", ErrInvalidRange, err)
	}
	if end.Before(start) {
		return RunRange{}, Scope{}, fmt.Errorf("%w: end %s before start %s", ErrInvalidRange, end, start)
	}

	scope := Scope{
		UserIDs:       req.UserIDs,
		BranchIDs:     req.BranchIDs,
		DepartmentIDs: req.DepartmentIDs,
		All:           req.ExtractAll,
	}
	return RunRange{Start: start, End: end, Loc: loc}, scope, nil
}
