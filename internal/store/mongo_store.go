package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is a CatalogStore backed by MongoDB. Document ids are UUID
// strings stored in _id so both drivers hand out the same id shape.
type MongoStore struct {
	db *mongo.Database
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{db: db}
}

// EnsureIndexes creates the unique name indexes FindOrCreate relies on
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	for _, c := range []Collection{CollectionBrands, CollectionCategories} {
		_, err := s.db.Collection(string(c)).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		})
		if err != nil {
			return fmt.Errorf("failed to create %s name index: %w", c, err)
		}
	}
	_, err := s.db.Collection(string(CollectionProducts)).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "name", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create products name index: %w", err)
	}
	return nil
}

func (s *MongoStore) Find(ctx context.Context, collection Collection, filter Filter) ([]Document, error) {
	cursor, err := s.db.Collection(string(collection)).Find(ctx, mongoFilter(filter))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var raw []bson.M
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}

	docs := make([]Document, 0, len(raw))
	for _, m := range raw {
		docs = append(docs, fromBSON(m))
	}
	return docs, nil
}

func (s *MongoStore) Create(ctx context.Context, collection Collection, data Document) (Document, error) {
	doc := newMongoDocument(data)
	if _, err := s.db.Collection(string(collection)).InsertOne(ctx, doc); err != nil {
		return nil, err
	}
	return fromBSON(doc), nil
}

func (s *MongoStore) Update(ctx context.Context, collection Collection, id string, data Document) (Document, error) {
	set := bson.M{}
	for k, v := range data {
		if k == "id" || k == "_id" || k == "createdAt" {
			continue
		}
		set[k] = v
	}
	set["updatedAt"] = time.Now().UTC()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out bson.M
	err := s.db.Collection(string(collection)).
		FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).
		Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return fromBSON(out), nil
}

func (s *MongoStore) Delete(ctx context.Context, collection Collection, filter Filter) (int64, error) {
	res, err := s.db.Collection(string(collection)).DeleteMany(ctx, mongoFilter(filter))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// FindOrCreate upserts with $setOnInsert so an existing document is returned
// untouched. A duplicate key error from a concurrent upsert is resolved by
// reading the winner.
func (s *MongoStore) FindOrCreate(ctx context.Context, collection Collection, key Filter, data Document) (Document, bool, error) {
	coll := s.db.Collection(string(collection))
	filter := mongoFilter(key)

	insert := newMongoDocument(data)
	for field := range filter {
		delete(insert, field)
	}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var out bson.M
	err := coll.FindOneAndUpdate(ctx, filter, bson.M{"$setOnInsert": insert}, opts).Decode(&out)
	if mongo.IsDuplicateKeyError(err) {
		if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
			return nil, false, fmt.Errorf("failed to load existing document: %w", err)
		}
		return fromBSON(out), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return fromBSON(out), out["_id"] == insert["_id"], nil
}

func mongoFilter(filter Filter) bson.M {
	m := bson.M{}
	for k, v := range filter {
		if k == "id" {
			k = "_id"
		}
		m[k] = v
	}
	return m
}

func newMongoDocument(data Document) bson.M {
	now := time.Now().UTC()
	doc := bson.M{}
	for k, v := range data {
		if k == "id" || k == "createdAt" || k == "updatedAt" {
			continue
		}
		doc[k] = v
	}
	id := data.ID()
	if id == "" {
		id = uuid.New().String()
	}
	doc["_id"] = id
	doc["createdAt"] = now
	doc["updatedAt"] = now
	return doc
}

func fromBSON(m bson.M) Document {
	doc := make(Document, len(m))
	for k, v := range m {
		if k == "_id" {
			k = "id"
		}
		doc[k] = plainValue(v)
	}
	return doc
}

// plainValue converts driver types into the shapes encoding/json produces
func plainValue(v interface{}) interface{} {
	switch t := v.(type) {
	case primitive.M:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = plainValue(val)
		}
		return out
	case primitive.D:
		out := make(map[string]interface{}, len(t))
		for _, e := range t {
			out[e.Key] = plainValue(e.Value)
		}
		return out
	case primitive.A:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = plainValue(val)
		}
		return out
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	default:
		return v
	}
}
