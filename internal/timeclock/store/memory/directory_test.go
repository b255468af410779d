package memory_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store/memory"
)

func writeRoster(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write roster: %v", err)
	}
	return path
}

func TestLoadRosterFile(t *testing.T) {
	path := writeRoster(t, `
users:
  - id: u1
    employee_id: "501"
    is_active: true
    branch_ids: [b1]
  - id: u2
    employee_id: "502"
    is_active: false
    department_ids: [d1]
devices:
  - serial_no: SN-1
    device_name: Front door
    extract_required: true
`)
	r, err := memory.LoadRosterFile(path)
	if err != nil {
		t.Fatalf("LoadRosterFile: %v", err)
	}
	ctx := context.Background()

	active, err := r.Directory.ResolveUsers(ctx, store.UserFilter{ActiveOnly: true})
	if err != nil {
		t.Fatalf("ResolveUsers: %v", err)
	}
	if len(active) != 1 || active[0].ID != "u1" || active[0].LegacyEmployeeID != "501" {
		t.Fatalf("unexpected active users: %+v", active)
	}

	members, err := r.Directory.ResolveOrgMembers(ctx, []string{"b1"}, []string{"d1"})
	if err != nil {
		t.Fatalf("ResolveOrgMembers: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected both users as org members, got %d", len(members))
	}

	devs, err := r.Devices.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices: %v", err)
	}
	if len(devs) != 1 || devs[0].DeviceName != "Front door" || !devs[0].ExtractRequired {
		t.Fatalf("unexpected devices: %+v", devs)
	}
}

func TestLoadRosterFile_Errors(t *testing.T) {
	if _, err := memory.LoadRosterFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
	if _, err := memory.LoadRosterFile(writeRoster(t, "users: [")); err == nil {
		t.Fatal("expected error for bad yaml")
	}
	if _, err := memory.LoadRosterFile(writeRoster(t, "users:\n  - employee_id: \"1\"\n")); err == nil {
		t.Fatal("expected error for user without id")
	}
}

func TestResolveUsers_EmptyIDsMatchNothing(t *testing.T) {
	d := memory.NewDirectory()
	users, err := d.ResolveUsers(context.Background(), store.UserFilter{IDs: []string{}})
	if err != nil {
		t.Fatalf("ResolveUsers: %v", err)
	}
	if len(users) != 0 {
		t.Fatalf("expected none, got %d", len(users))
	}
}
