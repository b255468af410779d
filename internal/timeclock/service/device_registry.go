package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
)

type DeviceRegistry struct {
	store store.DeviceStore
}

func NewDeviceRegistry(st store.DeviceStore) *DeviceRegistry {
	return &DeviceRegistry{store: st}
}

// DeviceSnapshot is the device table as read at the start of a run.
type DeviceSnapshot struct {
	names   map[string]string
	extract []string
}

// Snapshot loads every device that has a serial number.
func (r *DeviceRegistry) Snapshot(ctx context.Context) (DeviceSnapshot, error) {
	devices, err := r.store.ListDevices(ctx)
	if err != nil {
		return DeviceSnapshot{}, fmt.Errorf("list devices: %w", err)
	}

	snap := DeviceSnapshot{names: make(map[string]string, len(devices))}
	for _, d := range devices {
		serial := strings.TrimSpace(d.SerialNo)
		if serial == "" {
			continue
		}
		snap.names[serial] = d.DeviceName
		if d.ExtractRequired {
			snap.extract = append(snap.extract, serial)
		}
	}
	sort.Strings(snap.extract)
	return snap, nil
}

// Names returns serial -> display name for every device with a serial.
func (r *DeviceRegistry) Names(ctx context.Context) (map[string]string, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.names, nil
}

// ExtractSerials returns the serials of devices flagged for extraction.
func (r *DeviceRegistry) ExtractSerials(ctx context.Context) ([]string, error) {
	snap, err := r.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.extract, nil
}

// Resolve returns the configured name for serial, else fallback.
func (s DeviceSnapshot) Resolve(serial, fallback string) string {
	if name := s.names[strings.TrimSpace(serial)]; name != "" {
		return name
	}
	return fallback
}

func (s DeviceSnapshot) ExtractSerials() []string { return s.extract }
