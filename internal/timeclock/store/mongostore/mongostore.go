// Package mongostore implements the timeclock stores and the user directory
// on MongoDB.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	DevicesCollection       = "device_configs"
	UsersCollection         = "users"
	SchedulesCollection     = "schedules"
	ScheduleShiftCollection = "schedule_shifts"
	ConfigsCollection       = "schedule_configs"
	ConfigShiftsCollection  = "schedule_config_shifts"
	TimeclocksCollection    = "timeclocks"
	TimeLogsCollection      = "timelogs"
)

// Connect dials uri and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the range and open-shift queries rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		SchedulesCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}}},
		},
		ScheduleShiftCollection: {
			{Keys: bson.D{{Key: "scheduleId", Value: 1}, {Key: "shiftStart", Value: 1}}},
		},
		ConfigShiftsCollection: {
			{Keys: bson.D{{Key: "scheduleConfigId", Value: 1}}},
		},
		UsersCollection: {
			{Keys: bson.D{{Key: "branchIds", Value: 1}}},
			{Keys: bson.D{{Key: "departmentIds", Value: 1}}},
		},
		TimeclocksCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "shiftActive", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "shiftStart", Value: 1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "shiftEnd", Value: 1}}},
		},
		TimeLogsCollection: {
			{
				Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "timelog", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// in builds {"$in": vals}.
func in(vals []string) bson.M { return bson.M{"$in": vals} }
