package metadata

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shoreline-pay/ledgercore/internal/platform/mlog"
	ledgermongo "github.com/shoreline-pay/ledgercore/internal/storage/mongo"
)

// MongoRepository is the Mongo-backed Repository implementation, covering
// the two collections this service indexes (transactions, accounts).
type MongoRepository struct {
	conn *ledgermongo.Connection
}

// NewMongoRepository builds a MongoRepository over conn.
func NewMongoRepository(conn *ledgermongo.Connection) *MongoRepository {
	return &MongoRepository{conn: conn}
}

func (r *MongoRepository) collection(ctx context.Context, entityType string) (*mongo.Collection, error) {
	db, err := r.conn.DB(ctx, &mlog.NoneLogger{})
	if err != nil {
		return nil, err
	}

	return db.Collection(strings.ToLower(entityType)), nil
}

// Upsert inserts or replaces the metadata document for (entityType, entityID).
func (r *MongoRepository) Upsert(ctx context.Context, entityType, entityID string, data map[string]any) error {
	coll, err := r.collection(ctx, entityType)
	if err != nil {
		return err
	}

	now := time.Now()
	filter := bson.M{"entity_id": entityID}
	update := bson.M{
		"$set": bson.M{
			"entity_id":   entityID,
			"entity_type": entityType,
			"metadata":    Normalize(data),
			"updated_at":  now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}

	_, err = coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))

	return err
}

// FindByEntity returns the metadata document for entityID, or nil if none
// has ever been indexed.
func (r *MongoRepository) FindByEntity(ctx context.Context, entityType, entityID string) (*Document, error) {
	coll, err := r.collection(ctx, entityType)
	if err != nil {
		return nil, err
	}

	var doc Document
	if err := coll.FindOne(ctx, bson.M{"entity_id": entityID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}

		return nil, err
	}

	return &doc, nil
}

// Query returns every document in entityType's collection whose metadata
// matches filter (a subset-match bson query), page-bounded by limit/skip.
func (r *MongoRepository) Query(ctx context.Context, entityType string, filter map[string]any, limit, skip int64) ([]*Document, error) {
	coll, err := r.collection(ctx, entityType)
	if err != nil {
		return nil, err
	}

	query := bson.M{}
	for k, v := range Normalize(filter) {
		query["metadata."+k] = v
	}

	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}

	if skip > 0 {
		opts.SetSkip(skip)
	}

	cur, err := coll.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx) //nolint:errcheck

	var docs []*Document

	for cur.Next(ctx) {
		var doc Document
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}

		docs = append(docs, &doc)
	}

	return docs, cur.Err()
}

// Delete removes the metadata document for (entityType, entityID), if any.
func (r *MongoRepository) Delete(ctx context.Context, entityType, entityID string) error {
	coll, err := r.collection(ctx, entityType)
	if err != nil {
		return err
	}

	_, err = coll.DeleteOne(ctx, bson.M{"entity_id": entityID})

	return err
}
