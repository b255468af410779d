package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	dbpkg "github.com/BrandonDHaskell/timeclock/internal/db"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

const (
	unitBranch     = "branch"
	unitDepartment = "department"
)

// Directory reads users and their org units from the users and
// user_org_units tables.
type Directory struct {
	db     *sql.DB
	writer *dbpkg.Worker
}

func NewDirectory(db *sql.DB, writer *dbpkg.Worker) *Directory {
	return &Directory{db: db, writer: writer}
}

func (d *Directory) ResolveUsers(ctx context.Context, filter store.UserFilter) ([]types.User, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return nil, nil
	}

	q := `SELECT user_id, COALESCE(employee_id, ''), is_active FROM users WHERE 1 = 1`
	var args []any
	if filter.IDs != nil {
		ph, a := inClause(filter.IDs)
		q += ` AND user_id IN (` + ph + `)`
		args = append(args, a...)
	}
	if filter.ActiveOnly {
		q += ` AND is_active = 1`
	}
	q += ` ORDER BY user_id;`

	return d.queryUsers(ctx, q, args...)
}

func (d *Directory) ResolveOrgMembers(ctx context.Context, branchIDs, departmentIDs []string) ([]types.User, error) {
	if len(branchIDs) == 0 && len(departmentIDs) == 0 {
		return nil, nil
	}

	var (
		conds []string
		args  []any
	)
	if len(branchIDs) > 0 {
		ph, a := inClause(branchIDs)
		conds = append(conds, `(kind = '`+unitBranch+`' AND unit_id IN (`+ph+`))`)
		args = append(args, a...)
	}
	if len(departmentIDs) > 0 {
		ph, a := inClause(departmentIDs)
		conds = append(conds, `(kind = '`+unitDepartment+`' AND unit_id IN (`+ph+`))`)
		args = append(args, a...)
	}

	q := `
SELECT user_id, COALESCE(employee_id, ''), is_active
FROM users
WHERE user_id IN (SELECT user_id FROM user_org_units WHERE ` + strings.Join(conds, " OR ") + `)
ORDER BY user_id;`

	return d.queryUsers(ctx, q, args...)
}

func (d *Directory) queryUsers(ctx context.Context, q string, args ...any) ([]types.User, error) {
	rows, err := d.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("directory query: %w", err)
	}
	defer rows.Close()

	var (
		out   []types.User
		index = make(map[string]int)
	)
	for rows.Next() {
		var (
			u      types.User
			active int
		)
		if err := rows.Scan(&u.ID, &u.LegacyEmployeeID, &active); err != nil {
			return nil, fmt.Errorf("directory scan: %w", err)
		}
		u.IsActive = active == 1
		index[u.ID] = len(out)
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("directory rows: %w", err)
	}
	rows.Close()

	if len(out) == 0 {
		return nil, nil
	}
	if err := d.attachUnits(ctx, out, index); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *Directory) attachUnits(ctx context.Context, users []types.User, index map[string]int) error {
	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	ph, args := inClause(ids)

	rows, err := d.db.QueryContext(ctx, `
SELECT user_id, kind, unit_id FROM user_org_units
WHERE user_id IN (`+ph+`)
ORDER BY user_id, kind, unit_id;`, args...)
	if err != nil {
		return fmt.Errorf("directory units query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID, kind, unit string
		if err := rows.Scan(&userID, &kind, &unit); err != nil {
			return fmt.Errorf("directory units scan: %w", err)
		}
		u := &users[index[userID]]
		switch kind {
		case unitBranch:
			u.BranchIDs = append(u.BranchIDs, unit)
		case unitDepartment:
			u.DepartmentIDs = append(u.DepartmentIDs, unit)
		}
	}
	return rows.Err()
}

// UpsertUser replaces a user and its org unit memberships.
func (d *Directory) UpsertUser(ctx context.Context, u types.User) error {
	if strings.TrimSpace(u.ID) == "" {
		return fmt.Errorf("UpsertUser: empty user id")
	}
	var legacy any
	if u.LegacyEmployeeID != "" {
		legacy = u.LegacyEmployeeID
	}

	branches := append([]string(nil), u.BranchIDs...)
	depts := append([]string(nil), u.DepartmentIDs...)
	sort.Strings(branches)
	sort.Strings(depts)

	return d.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO users(user_id, employee_id, is_active) VALUES (?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  employee_id = excluded.employee_id,
  is_active   = excluded.is_active;`,
			u.ID, legacy, boolInt(u.IsActive)); err != nil {
			return fmt.Errorf("UpsertUser: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_org_units WHERE user_id = ?;`, u.ID); err != nil {
			return fmt.Errorf("UpsertUser clear units: %w", err)
		}
		for _, set := range []struct {
			kind string
			ids  []string
		}{{unitBranch, branches}, {unitDepartment, depts}} {
			for _, id := range set.ids {
				if _, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO user_org_units(user_id, kind, unit_id) VALUES (?, ?, ?);`,
					u.ID, set.kind, id); err != nil {
					return fmt.Errorf("UpsertUser unit %s: %w", id, err)
				}
			}
		}
		return nil
	})
}
