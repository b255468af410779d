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

type timeclockDoc struct {
	ID            string     `bson:"_id"`
	UserID        string     `bson:"userId"`
	ShiftStart    time.Time  `bson:"shiftStart"`
	ShiftEnd      *time.Time `bson:"shiftEnd"`
	ShiftActive   bool       `bson:"shiftActive"`
	InDevice      string     `bson:"inDevice,omitempty"`
	InDeviceType  string     `bson:"inDeviceType,omitempty"`
	OutDevice     string     `bson:"outDevice,omitempty"`
	OutDeviceType string     `bson:"outDeviceType,omitempty"`
	CreatedAt     time.Time  `bson:"createdAt"`
	UpdatedAt     time.Time  `bson:"updatedAt"`
}

func toTimeclockDoc(r types.ShiftRecord, now time.Time) timeclockDoc {
	return timeclockDoc{
		ID:            r.ID,
		UserID:        r.UserID,
		ShiftStart:    r.ShiftStart,
		ShiftEnd:      r.ShiftEnd,
		ShiftActive:   r.ShiftActive,
		InDevice:      r.InDevice,
		InDeviceType:  r.InDeviceType,
		OutDevice:     r.OutDevice,
		OutDeviceType: r.OutDeviceType,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (d timeclockDoc) record() types.ShiftRecord {
	r := types.ShiftRecord{
		ID:            d.ID,
		UserID:        d.UserID,
		ShiftStart:    d.ShiftStart.UTC(),
		ShiftActive:   d.ShiftActive,
		InDevice:      d.InDevice,
		InDeviceType:  d.InDeviceType,
		OutDevice:     d.OutDevice,
		OutDeviceType: d.OutDeviceType,
	}
	if d.ShiftEnd != nil {
		end := d.ShiftEnd.UTC()
		r.ShiftEnd = &end
	}
	return r
}

type TimeclockStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewTimeclockStore(db *mongo.Database) *TimeclockStore {
	return &TimeclockStore{coll: db.Collection(TimeclocksCollection), now: time.Now}
}

func (s *TimeclockStore) OpenShifts(ctx context.Context, userIDs []string) ([]types.ShiftRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"userId": in(userIDs), "shiftActive": true})
}

func (s *TimeclockStore) ShiftsInRange(ctx context.Context, userIDs []string, from, to time.Time) ([]types.ShiftRecord, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	window := bson.M{"$gte": from, "$lt": to}
	return s.find(ctx, bson.M{
		"userId": in(userIDs),
		"$or":    bson.A{bson.M{"shiftStart": window}, bson.M{"shiftEnd": window}},
	})
}

func (s *TimeclockStore) find(ctx context.Context, filter bson.M) ([]types.ShiftRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "userId", Value: 1}, {Key: "shiftStart", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find timeclocks: %w", err)
	}
	var docs []timeclockDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode timeclocks: %w", err)
	}
	out := make([]types.ShiftRecord, len(docs))
	for i, d := range docs {
		out[i] = d.record()
	}
	return out, nil
}

// InsertShifts writes recs with one ordered InsertMany.
func (s *TimeclockStore) InsertShifts(ctx context.Context, recs []types.ShiftRecord) ([]types.ShiftRecord, error) {
	if len(recs) == 0 {
		return nil, nil
	}
	now := s.now().UTC()
	out := make([]types.ShiftRecord, len(recs))
	docs := make([]any, len(recs))
	for i, r := range recs {
		if !r.Valid() {
			return nil, fmt.Errorf("insert timeclocks: record %d for %s has inconsistent active flag", i, r.UserID)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		out[i] = r
		docs[i] = toTimeclockDoc(r, now)
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert timeclocks: %w", err)
	}
	return out, nil
}

// CloseShifts sends every closure in one BulkWrite. Each update is filtered on
// shiftActive so a record that is already closed is not touched.
func (s *TimeclockStore) CloseShifts(ctx context.Context, closures []types.ShiftClosure) (int, error) {
	if len(closures) == 0 {
		return 0, nil
	}
	now := s.now().UTC()
	models := make([]mongo.WriteModel, len(closures))
	for i, c := range closures {
		models[i] = mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": c.ID, "shiftActive": true}).
			SetUpdate(bson.M{"$set": bson.M{
				"shiftEnd":      c.ShiftEnd,
				"shiftActive":   false,
				"outDevice":     c.OutDevice,
				"outDeviceType": c.OutDeviceType,
				"updatedAt":     now,
			}})
	}
	res, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	if err != nil {
		return 0, fmt.Errorf("close timeclocks: %w", err)
	}
	return int(res.ModifiedCount), nil
}
