package mongostore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BrandonDHaskell/timeclock/internal/timeclock/store"
	"github.com/BrandonDHaskell/timeclock/internal/timeclock/types"
)

// Directory resolves users from the users collection. Org membership is held
// on the user document as branchIds and departmentIds.
type Directory struct {
	coll *mongo.Collection
}

func NewDirectory(db *mongo.Database) *Directory {
	return &Directory{coll: db.Collection(UsersCollection)}
}

func (d *Directory) ResolveUsers(ctx context.Context, filter store.UserFilter) ([]types.User, error) {
	if filter.IDs != nil && len(filter.IDs) == 0 {
		return nil, nil
	}
	q := bson.M{}
	if filter.IDs != nil {
		q["_id"] = in(filter.IDs)
	}
	if filter.ActiveOnly {
		q["isActive"] = true
	}
	return d.find(ctx, q)
}

func (d *Directory) ResolveOrgMembers(ctx context.Context, branchIDs, departmentIDs []string) ([]types.User, error) {
	var or bson.A
	if len(branchIDs) > 0 {
		or = append(or, bson.M{"branchIds": in(branchIDs)})
	}
	if len(departmentIDs) > 0 {
		or = append(or, bson.M{"departmentIds": in(departmentIDs)})
	}
	if len(or) == 0 {
		return nil, nil
	}
	return d.find(ctx, bson.M{"$or": or})
}

func (d *Directory) find(ctx context.Context, q bson.M) ([]types.User, error) {
	cur, err := d.coll.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	var out []types.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return out, nil
}

func (d *Directory) UpsertUser(ctx context.Context, u types.User) error {
	_, err := d.coll.ReplaceOne(ctx, bson.M{"_id": u.ID}, u, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}
