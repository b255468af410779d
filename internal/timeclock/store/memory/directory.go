package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// Directory is an in-memory identity source, optionally loaded from a YAML
// roster file.
type Directory struct {
	mu    sync.RWMutex
	users []types.User
}

func NewDirectory(users ...types.User) *Directory {
	return &Directory{users: append([]types.User(nil), users...)}
}

type rosterFile struct {
	Users   []types.User         `yaml:"users"`
	Devices []types.DeviceConfig `yaml:"devices"`
}

// Roster is the parsed content of a roster file.
type Roster struct {
	Directory *Directory
	Devices   *DeviceStore
}

// LoadRosterFile reads users and, when present, devices from a YAML file:
//
//	users:
//	  - id: u1
//	    employee_id: "501"
//	    is_active: true
//	    branch_ids: [b1]
//	devices:
//	  - serial_no: SN-1
//	    device_name: Front door
//	    extract_required: true
func LoadRosterFile(path string) (Roster, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Roster{}, fmt.Errorf("read roster %s: %w", path, err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return Roster{}, fmt.Errorf("parse roster %s: %w", path, err)
	}
	for i, u := range f.Users {
		if u.ID == "" {
			return Roster{}, fmt.Errorf("parse roster %s: user %d has no id", path, i)
		}
	}
	return Roster{
		Directory: NewDirectory(f.Users...),
		Devices:   NewDeviceStore(f.Devices...),
	}, nil
}

func (d *Directory) ResolveUsers(_ context.Context, filter store.UserFilter) ([]types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var ids map[string]struct{}
	if filter.IDs != nil {
		ids = idSet(filter.IDs)
	}
	var out []types.User
	for _, u := range d.users {
		if ids != nil {
			if _, ok := ids[u.ID]; !ok {
				continue
			}
		}
		if filter.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (d *Directory) ResolveOrgMembers(_ context.Context, branchIDs, departmentIDs []string) ([]types.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	branches := idSet(branchIDs)
	departments := idSet(departmentIDs)
	var out []types.User
	for _, u := range d.users {
		if memberOf(u.BranchIDs, branches) || memberOf(u.DepartmentIDs, departments) {
			out = append(out, u)
		}
	}
	return out, nil
}

func memberOf(ids []string, set map[string]struct{}) bool {
	for _, id := range ids {
		if _, ok := set[id]; ok {
			return true
		}
	}
	return false
}
