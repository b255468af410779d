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

type timeLogDoc struct {
	ID             string    `bson:"_id"`
	UserID         string    `bson:"userId"`
	Timelog        time.Time `bson:"timelog"`
	DeviceSerialNo string    `bson:"deviceSerialNo,omitempty"`
	CreatedAt      time.Time `bson:"createdAt"`
}

type TimeLogStore struct {
	coll *mongo.Collection
}

func NewTimeLogStore(db *mongo.Database) *TimeLogStore {
	return &TimeLogStore{coll: db.Collection(TimeLogsCollection)}
}

func (s *TimeLogStore) TimeLogsInRange(ctx context.Context, userIDs []string, from, to time.Time) ([]types.TimeLog, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	filter := bson.M{
		"userId":  in(userIDs),
		"timelog": bson.M{"$gte": from, "$lt": to},
	}
	opts := options.Find().SetSort(bson.D{{Key: "userId", Value: 1}, {Key: "timelog", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find timelogs: %w", err)
	}
	var docs []timeLogDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode timelogs: %w", err)
	}
	out := make([]types.TimeLog, len(docs))
	for i, d := range docs {
		out[i] = types.TimeLog{ID: d.ID, UserID: d.UserID, Timelog: d.Timelog.UTC(), DeviceSerialNo: d.DeviceSerialNo}
	}
	return out, nil
}

func (s *TimeLogStore) InsertTimeLogs(ctx context.Context, logs []types.TimeLog) ([]types.TimeLog, error) {
	if len(logs) == 0 {
		return nil, nil
	}
	now := time.Now().UTC()
	out := make([]types.TimeLog, len(logs))
	docs := make([]any, len(logs))
	for i, l := range logs {
		if l.ID == "" {
			l.ID = uuid.NewString()
		}
		out[i] = l
		docs[i] = timeLogDoc{ID: l.ID, UserID: l.UserID, Timelog: l.Timelog, DeviceSerialNo: l.DeviceSerialNo, CreatedAt: now}
	}
	if _, err := s.coll.InsertMany(ctx, docs); err != nil {
		return nil, fmt.Errorf("insert timelogs: %w", err)
	}
	return out, nil
}
