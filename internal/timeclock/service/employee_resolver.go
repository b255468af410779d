package service

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// Scope selects the employees of a run. Supplied filters intersect.
type Scope struct {
	UserIDs       []string
	BranchIDs     []string
	DepartmentIDs []string
	All           bool
}

func (s Scope) empty() bool {
	return !s.All && len(s.UserIDs) == 0 && len(s.BranchIDs) == 0 && len(s.DepartmentIDs) == 0
}

// EmployeeMap is the bidirectional legacy id <-> user id mapping of a run.
type EmployeeMap struct {
	byLegacy map[types.LegacyID]string
	byUser   map[string]types.LegacyID
}

func newEmployeeMap() EmployeeMap {
	return EmployeeMap{
		byLegacy: make(map[types.LegacyID]string),
		byUser:   make(map[string]types.LegacyID),
	}
}

// NewEmployeeMap builds a map from explicit pairs (userID -> legacy id).
func NewEmployeeMap(pairs map[string]types.LegacyID) EmployeeMap {
	m := newEmployeeMap()
	for u, l := range pairs {
		m.byUser[u] = l
		m.byLegacy[l] = u
	}
	return m
}

func (m EmployeeMap) UserID(id types.LegacyID) (string, bool) {
	u, ok := m.byLegacy[id]
	return u, ok
}

func (m EmployeeMap) LegacyID(userID string) (types.LegacyID, bool) {
	l, ok := m.byUser[userID]
	return l, ok
}

func (m EmployeeMap) Len() int { return len(m.byUser) }

// UserIDs returns the mapped user ids in sorted order.
func (m EmployeeMap) UserIDs() []string {
	out := make([]string, 0, len(m.byUser))
	for u := range m.byUser {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

// LegacyIDs returns the mapped legacy ids in sorted order.
func (m EmployeeMap) LegacyIDs() []types.LegacyID {
	out := make([]types.LegacyID, 0, len(m.byLegacy))
	for l := range m.byLegacy {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

type EmployeeResolver struct {
	dir    store.Directory
	logger *zap.Logger
}

func NewEmployeeResolver(dir store.Directory, logger *zap.Logger) *EmployeeResolver {
	return &EmployeeResolver{dir: dir, logger: logger}
}

// Resolve returns the active, legacy-id-carrying employees selected by
// scope. An empty map is a valid result, not an error.
func (r *EmployeeResolver) Resolve(ctx context.Context, scope Scope) (EmployeeMap, error) {
	m := newEmployeeMap()
	if scope.empty() {
		return m, nil
	}

	var filter store.UserFilter
	filter.ActiveOnly = true

	if !scope.All {
		ids, err := r.scopeUserIDs(ctx, scope)
		if err != nil {
			return m, err
		}
		if len(ids) == 0 {
			return m, nil
		}
		filter.IDs = ids
	}

	users, err := r.dir.ResolveUsers(ctx, filter)
	if err != nil {
		return m, fmt.Errorf("resolve users: %w", err)
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	for _, u := range users {
		if !u.IsActive {
			continue
		}
		legacy, ok := types.ParseLegacyID(u.LegacyEmployeeID)
		if !ok {
			continue
		}
		if other, dup := m.byLegacy[legacy]; dup {
			r.logger.Warn("duplicate legacy employee id, keeping first user",
				zap.String("employee_id", legacy.String()),
				zap.String("kept", other),
				zap.String("skipped", u.ID))
			continue
		}
		m.byLegacy[legacy] = u.ID
		m.byUser[u.ID] = legacy
	}
	return m, nil
}

// scopeUserIDs intersects every supplied filter.
func (r *EmployeeResolver) scopeUserIDs(ctx context.Context, scope Scope) ([]string, error) {
	var sets []map[string]struct{}

	if len(scope.UserIDs) > 0 {
		sets = append(sets, toSet(scope.UserIDs))
	}
	if len(scope.BranchIDs) > 0 {
		members, err := r.dir.ResolveOrgMembers(ctx, scope.BranchIDs, nil)
		if err != nil {
			return nil, fmt.Errorf("resolve branch members: %w", err)
		}
		sets = append(sets, userSet(members))
	}
	if len(scope.DepartmentIDs) > 0 {
		members, err := r.dir.ResolveOrgMembers(ctx, nil, scope.DepartmentIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve department members: %w", err)
		}
		sets = append(sets, userSet(members))
	}

	if len(sets) == 0 {
		return nil, nil
	}
	out := make([]string, 0, len(sets[0]))
	for id := range sets[0] {
		keep := true
		for _, s := range sets[1:] {
			if _, ok := s[id]; !ok {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func toSet(ids []string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

func userSet(users []types.User) map[string]struct{} {
	s := make(map[string]struct{}, len(users))
	for _, u := range users {
		s[u.ID] = struct{}{}
	}
	return s
}
