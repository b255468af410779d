package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

type DeviceStore struct {
	coll *mongo.Collection
}

func NewDeviceStore(db *mongo.Database) *DeviceStore {
	return &DeviceStore{coll: db.Collection(DevicesCollection)}
}

func (s *DeviceStore) ListDevices(ctx context.Context) ([]types.DeviceConfig, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "serialNo", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	var out []types.DeviceConfig
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	return out, nil
}

func (s *DeviceStore) UpsertDevice(ctx context.Context, d types.DeviceConfig) error {
	_, err := s.coll.ReplaceOne(ctx, bson.M{"serialNo": d.SerialNo}, d, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert device %s: %w", d.SerialNo, err)
	}
	return nil
}
