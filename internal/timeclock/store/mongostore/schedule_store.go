package mongostore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

type ScheduleStore struct {
	schedules    *mongo.Collection
	shifts       *mongo.Collection
	configs      *mongo.Collection
	configShifts *mongo.Collection
}

func NewScheduleStore(db *mongo.Database) *ScheduleStore {
	return &ScheduleStore{
		schedules:    db.Collection(SchedulesCollection),
		shifts:       db.Collection(ScheduleShiftCollection),
		configs:      db.Collection(ConfigsCollection),
		configShifts: db.Collection(ConfigShiftsCollection),
	}
}

// ApprovedSchedules pre-filters status with a case-insensitive regex and
// re-checks each document with Schedule.Eligible.
func (s *ScheduleStore) ApprovedSchedules(ctx context.Context, userIDs []string) ([]types.Schedule, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"userId":           in(userIDs),
		"status":           bson.M{"$regex": "approved", "$options": "i"},
		"createdByRequest": bson.M{"$ne": true},
	}
	cur, err := s.schedules.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find schedules: %w", err)
	}
	var all []types.Schedule
	if err := cur.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decode schedules: %w", err)
	}
	out := all[:0]
	for _, sc := range all {
		if sc.Eligible() {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *ScheduleStore) ScheduleShifts(ctx context.Context, scheduleIDs []string, from, to time.Time) ([]types.ScheduleShift, error) {
	if len(scheduleIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"scheduleId": in(scheduleIDs),
		"shiftStart": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "shiftStart", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.shifts.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find schedule shifts: %w", err)
	}
	var out []types.ScheduleShift
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode schedule shifts: %w", err)
	}
	for i := range out {
		out[i].ShiftStart = out[i].ShiftStart.UTC()
		out[i].ShiftEnd = out[i].ShiftEnd.UTC()
	}
	return out, nil
}

func (s *ScheduleStore) ScheduleConfigs(ctx context.Context, ids []string) ([]types.ScheduleConfig, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.configs.Find(ctx, bson.M{"_id": in(ids)})
	if err != nil {
		return nil, fmt.Errorf("find schedule configs: %w", err)
	}
	var out []types.ScheduleConfig
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode schedule configs: %w", err)
	}
	return out, nil
}

func (s *ScheduleStore) ConfigShifts(ctx context.Context, scheduleConfigIDs []string) ([]types.ConfigShift, error) {
	if len(scheduleConfigIDs) == 0 {
		return nil, nil
	}
	cur, err := s.configShifts.Find(ctx, bson.M{"scheduleConfigId": in(scheduleConfigIDs)})
	if err != nil {
		return nil, fmt.Errorf("find config shifts: %w", err)
	}
	var out []types.ConfigShift
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode config shifts: %w", err)
	}
	return out, nil
}

// PutSchedule upserts sc and inserts its shift rows.
func (s *ScheduleStore) PutSchedule(ctx context.Context, sc types.Schedule, shifts ...types.ScheduleShift) error {
	if _, err := s.schedules.ReplaceOne(ctx, bson.M{"_id": sc.ID}, sc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert schedule %s: %w", sc.ID, err)
	}
	if len(shifts) == 0 {
		return nil
	}
	docs := make([]any, len(shifts))
	for i, sh := range shifts {
		if sh.ID == "" {
			sh.ID = uuid.NewString()
		}
		sh.ScheduleID = sc.ID
		docs[i] = sh
	}
	if _, err := s.shifts.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert schedule shifts: %w", err)
	}
	return nil
}

// PutConfig upserts c and replaces its sub-windows.
func (s *ScheduleStore) PutConfig(ctx context.Context, c types.ScheduleConfig, shifts ...types.ConfigShift) error {
	if _, err := s.configs.ReplaceOne(ctx, bson.M{"_id": c.ID}, c, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert schedule config %s: %w", c.ID, err)
	}
	if _, err := s.configShifts.DeleteMany(ctx, bson.M{"scheduleConfigId": c.ID}); err != nil {
		return fmt.Errorf("clear config shifts: %w", err)
	}
	if len(shifts) == 0 {
		return nil
	}
	docs := make([]any, len(shifts))
	for i, cs := range shifts {
		if cs.ID == "" {
			cs.ID = uuid.NewString()
		}
		cs.ScheduleConfigID = c.ID
		docs[i] = cs
	}
	if _, err := s.configShifts.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert config shifts: %w", err)
	}
	return nil
}
