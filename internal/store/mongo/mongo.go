// Package mongo stores one document per transaction in a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"kakeibo/internal/core"
	"kakeibo/internal/store"
)

const backendName = "mongo"

// document is the persisted shape of a transaction.
type document struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Date     string             `bson:"date"`
	Amount   int64              `bson:"amount"`
	Content  string             `bson:"content"`
	Type     string             `bson:"type"`
	Category string             `bson:"category"`
}

func toDocument(f core.Fields) document {
	return document{
		Date:     string(f.Date),
		Amount:   f.Amount,
		Content:  f.Content,
		Type:     string(f.Type),
		Category: string(f.Category),
	}
}

func (d document) transaction() core.Transaction {
	return core.Transaction{
		ID:       d.ID.Hex(),
		Date:     core.Date(d.Date),
		Amount:   d.Amount,
		Content:  d.Content,
		Type:     core.Type(d.Type),
		Category: core.Category(d.Category),
	}
}

// collection is the subset of *mongo.Collection the store needs.
type collection interface {
	FindAll(ctx context.Context) ([]document, error)
	InsertOne(ctx context.Context, doc interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	UpdateByID(ctx context.Context, id interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// driverCollection adapts *mongo.Collection to collection.
type driverCollection struct {
	*mongo.Collection
}

func (c driverCollection) FindAll(ctx context.Context) ([]document, error) {
	cur, err := c.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

type Store struct {
	client *mongo.Client
	coll   collection
}

var _ store.TransactionStore = (*Store)(nil)

func newWithCollection(coll collection) *Store {
	return &Store{coll: coll}
}

// Connect dials uri, pings the server and binds database/collection.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	slog.DebugContext(ctx, "Connecting to MongoDB", "database", database, "collection", collection)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", classify(err))
	}

	slog.InfoContext(ctx, "Connected to MongoDB", "database", database, "collection", collection)
	return &Store{
		client: client,
		coll:   driverCollection{client.Database(database).Collection(collection)},
	}, nil
}

func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

func (s *Store) ListAll(ctx context.Context) ([]core.Transaction, error) {
	docs, err := s.coll.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", classify(err))
	}
	out := make([]core.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.transaction())
	}
	return out, nil
}

func (s *Store) Create(ctx context.Context, f core.Fields) (string, error) {
	doc := toDocument(f)
	doc.ID = primitive.NewObjectID()
	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("create transaction: %w", classify(err))
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		return oid.Hex(), nil
	}
	return doc.ID.Hex(), nil
}

func (s *Store) Update(ctx context.Context, id string, f core.Fields) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.NotFound(backendName, id)
	}
	res, err := s.coll.UpdateByID(ctx, oid, bson.M{"$set": toDocument(f)})
	if err != nil {
		return fmt.Errorf("update transaction: %w", classify(err))
	}
	if res.MatchedCount == 0 {
		return store.NotFound(backendName, id)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return store.NotFound(backendName, id)
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", classify(err))
	}
	if res.DeletedCount == 0 {
		return store.NotFound(backendName, id)
	}
	return nil
}

// classify maps server errors onto store.BackendError. Timeouts and
// network failures carry no server code and stay unclassified.
func classify(err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return err
	}
	var cmd mongo.CommandError
	if errors.As(err, &cmd) {
		return &store.BackendError{Backend: backendName, Code: strconv.Itoa(int(cmd.Code)), Message: cmd.Message, Err: err}
	}
	var we mongo.WriteException
	if errors.As(err, &we) && len(we.WriteErrors) > 0 {
		first := we.WriteErrors[0]
		return &store.BackendError{Backend: backendName, Code: strconv.Itoa(first.Code), Message: first.Message, Err: err}
	}
	return err
}
