package service

import (
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// NewShiftRecord builds a record from a match. It returns false when the
// match has no start.
func NewShiftRecord(userID string, b *EventBatch, id types.LegacyID, m Match, devices DeviceSnapshot) (types.ShiftRecord, bool) {
	if !m.HasStart() {
		return types.ShiftRecord{}, false
	}

	in := b.Event(id, m.Start)
	rec := types.ShiftRecord{
		UserID:       userID,
		ShiftStart:   in.AuthTime,
		ShiftActive:  true,
		InDevice:     devices.Resolve(in.DeviceSerialNo, in.DeviceName),
		InDeviceType: types.DeviceTypeFaceTerminal,
	}

	if m.HasEnd() {
		out := b.Event(id, m.End)
		end := out.AuthTime
		rec.ShiftEnd = &end
		rec.ShiftActive = false
		rec.OutDevice = devices.Resolve(out.DeviceSerialNo, out.DeviceName)
		rec.OutDeviceType = types.DeviceTypeFaceTerminal
	}
	return rec, true
}

// FilterExisting drops every new record whose start, or end when present,
// equals to the millisecond the start or end of an existing record of the
// same user. It returns the survivors and the number dropped.
func FilterExisting(recs, existing []types.ShiftRecord) ([]types.ShiftRecord, int) {
	seen := make(map[string]map[int64]struct{})
	mark := func(userID string, ms int64) {
		s, ok := seen[userID]
		if !ok {
			s = make(map[int64]struct{})
			seen[userID] = s
		}
		s[ms] = struct{}{}
	}
	for _, e := range existing {
		mark(e.UserID, e.ShiftStart.UnixMilli())
		if e.ShiftEnd != nil {
			mark(e.UserID, e.ShiftEnd.UnixMilli())
		}
	}

	kept := make([]types.ShiftRecord, 0, len(recs))
	dropped := 0
	for _, r := range recs {
		s := seen[r.UserID]
		if _, dup := s[r.ShiftStart.UnixMilli()]; dup {
			dropped++
			continue
		}
		if r.ShiftEnd != nil {
			if _, dup := s[r.ShiftEnd.UnixMilli()]; dup {
				dropped++
				continue
			}
		}
		kept = append(kept, r)
	}
	return kept, dropped
}
