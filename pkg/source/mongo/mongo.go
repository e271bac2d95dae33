// Package mongo stores ontology snapshots in a MongoDB collection.
//
// Each snapshot is one document keyed by its name:
//
//	{_id: "pizza", snapshot: {classes: [...], properties: [...], individuals: [...]}, updated_at: ISODate(...)}
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/matzehuels/ontograph/pkg/cache"
	errs "github.com/matzehuels/ontograph/pkg/errors"
	"github.com/matzehuels/ontograph/pkg/ontology"
)

// Kind is the source kind used in cache keys.
const Kind = "mongo"

// Defaults for Config.
const (
	DefaultDatabase   = "ontograph"
	DefaultCollection = "snapshots"
	connectTimeout    = 10 * time.Second
)

// Config holds connection settings.
type Config struct {
	URI        string
	Database   string
	Collection string
}

type document struct {
	Name      string            `bson:"_id"`
	Snapshot  ontology.Snapshot `bson:"snapshot"`
	UpdatedAt time.Time         `bson:"updated_at"`
}

// Source reads and writes snapshot documents.
type Source struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects to MongoDB and verifies the connection with a ping,
// retrying transient failures.
func Open(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.URI == "" {
		return nil, errs.New(errs.ErrCodeInvalidConfig, "mongo uri is empty")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	opts := options.Client().ApplyURI(cfg.URI).SetConnectTimeout(connectTimeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "connect %s", cfg.Database)
	}

	err = cache.RetryWithBackoff(ctx, func() error {
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			return cache.Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "ping mongo")
	}

	return &Source{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// Kind implements source.Source.
func (s *Source) Kind() string { return Kind }

// Load implements source.Source.
func (s *Source) Load(ctx context.Context, name string) (*ontology.Snapshot, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, errs.New(errs.ErrCodeSnapshotNotFound, "snapshot %s not found", name)
	}
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "load snapshot %s", name)
	}
	snap := doc.Snapshot
	if snap.Name == "" {
		snap.Name = doc.Name
	}
	return &snap, nil
}

// Put stores s under name, replacing any existing document.
func (s *Source) Put(ctx context.Context, name string, snap *ontology.Snapshot) error {
	if name == "" || snap == nil {
		return errs.New(errs.ErrCodeInvalidInput, "snapshot name and content are required")
	}
	doc := document{Name: name, Snapshot: *snap, UpdatedAt: time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": name}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "store snapshot %s", name)
	}
	return nil
}

// Delete removes the snapshot called name. Deleting a missing snapshot is
// not an error.
func (s *Source) Delete(ctx context.Context, name string) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": name}); err != nil {
		return errs.Wrap(errs.ErrCodeNetwork, err, "delete snapshot %s", name)
	}
	return nil
}

// List returns the stored snapshot names in ascending order.
func (s *Source) List(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "list snapshots")
	}
	defer cur.Close(ctx)

	var names []string
	for cur.Next(ctx) {
		var row struct {
			Name string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, errs.Wrap(errs.ErrCodeInternal, err, "decode snapshot name")
		}
		names = append(names, row.Name)
	}
	if err := cur.Err(); err != nil {
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "list snapshots")
	}
	return names, nil
}

// Close disconnects the client.
func (s *Source) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
