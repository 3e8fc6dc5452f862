package dataset

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSource reads the relations and characters collections of a MongoDB
// database.
type MongoSource struct {
	URI      string
	Database string
	// Timeout bounds connecting and loading. Zero means 10 seconds.
	Timeout time.Duration
}

// Load reads both collections in natural order.
func (s MongoSource) Load(ctx context.Context) (*Raw, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(s.URI).SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(s.Database)
	raw := &Raw{}
	if err := findAll(ctx, db.Collection("relations"), &raw.Relations); err != nil {
		return nil, fmt.Errorf("relations: %w", err)
	}
	if err := findAll(ctx, db.Collection("characters"), &raw.Characters); err != nil {
		return nil, fmt.Errorf("characters: %w", err)
	}
	return raw, nil
}

func findAll(ctx context.Context, coll *mongo.Collection, out any) error {
	cur, err := coll.Find(ctx, bson.D{})
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}

// WriteMongo replaces both collections with raw rows.
func WriteMongo(ctx context.Context, uri, database string, raw *Raw) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(database)
	rels := make([]any, len(raw.Relations))
	for i, r := range raw.Relations {
		rels[i] = r
	}
	chars := make([]any, len(raw.Characters))
	for i, c := range raw.Characters {
		chars[i] = c
	}
	for name, docs := range map[string][]any{"relations": rels, "characters": chars} {
		coll := db.Collection(name)
		if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if len(docs) == 0 {
			continue
		}
		if _, err := coll.InsertMany(ctx, docs); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}
