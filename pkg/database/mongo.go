package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"airease-backend/pkg/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// WatchCollection is the collection watches are stored in.
const WatchCollection = "watchlists"

// MongoStore implements WatchStore on MongoDB.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to MongoDB and ensures the watch indexes exist.
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	if uri == "" {
		return nil, fmt.Errorf("opening mongo: empty URL")
	}
	if dbName == "" {
		dbName = "airease"
	}

	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(5).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	s := &MongoStore{
		client: client,
		coll:   client.Database(dbName).Collection(WatchCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "active", Value: 1}, {Key: "createdAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating mongo indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]models.Watch, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "id", Value: 1}})
	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying watches: %w", err)
	}
	defer cur.Close(ctx)

	watches := []models.Watch{}
	if err := cur.All(ctx, &watches); err != nil {
		return nil, fmt.Errorf("decoding watches: %w", err)
	}
	for i := range watches {
		normalizeMongoTimes(&watches[i])
	}
	return watches, nil
}

// normalizeMongoTimes converts decoded times to UTC.
func normalizeMongoTimes(w *models.Watch) {
	w.CreatedAt = w.CreatedAt.UTC()
	w.LastCheck = utcPtr(w.LastCheck)
	w.LastMatch = utcPtr(w.LastMatch)
	w.LastNotification = utcPtr(w.LastNotification)
}

// ListActive returns active watches in store order.
func (s *MongoStore) ListActive(ctx context.Context) ([]models.Watch, error) {
	return s.find(ctx, bson.M{"active": true})
}

// List returns all watches in store order.
func (s *MongoStore) List(ctx context.Context) ([]models.Watch, error) {
	return s.find(ctx, bson.M{})
}

// Get retrieves a single watch by ID.
func (s *MongoStore) Get(ctx context.Context, id string) (*models.Watch, error) {
	var w models.Watch
	if err := s.coll.FindOne(ctx, bson.M{"id": id}).Decode(&w); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("getting watch %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("getting watch %s: %w", id, err)
	}
	normalizeMongoTimes(&w)
	return &w, nil
}

// Insert stores a new watch. Generates a UUID if ID is empty.
func (s *MongoStore) Insert(ctx context.Context, w *models.Watch) error {
	newWatchDefaults(w, uuid.NewString)
	if _, err := s.coll.InsertOne(ctx, w); err != nil {
		return fmt.Errorf("inserting watch: %w", err)
	}
	return nil
}

func (s *MongoStore) updateOne(ctx context.Context, op, id string, update bson.M) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", op, id, ErrNotFound)
	}
	return nil
}

// RecordCheck sets lastCheck only.
func (s *MongoStore) RecordCheck(ctx context.Context, id string, at time.Time) error {
	return s.updateOne(ctx, "recording check", id, bson.M{
		"$set": bson.M{"lastCheck": at.UTC()},
	})
}

// RecordNoMatch sets lastCheck and clears matchedPrice.
func (s *MongoStore) RecordNoMatch(ctx context.Context, id string, at time.Time) error {
	return s.updateOne(ctx, "recording check", id, bson.M{
		"$set":   bson.M{"lastCheck": at.UTC()},
		"$unset": bson.M{"matchedPrice": ""},
	})
}

// RecordMatch records a dispatched notification for the watch.
func (s *MongoStore) RecordMatch(ctx context.Context, id string, matchedPrice int, at time.Time) error {
	at = at.UTC()
	return s.updateOne(ctx, "recording match", id, bson.M{
		"$set": bson.M{
			"lastMatch":        at,
			"lastNotification": at,
			"lastCheck":        at,
			"matchedPrice":     matchedPrice,
			"dispatchFailures": 0,
		},
		"$inc": bson.M{"notificationCount": 1},
	})
}

// RecordDispatchFailure increments dispatchFailures and deactivates the
// watch once maxAttempts is reached, in one pipeline update.
func (s *MongoStore) RecordDispatchFailure(ctx context.Context, id string, maxAttempts int) (bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "dispatchFailures", Value: bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$dispatchFailures", 0}}, 1}}},
		}}},
	}
	if maxAttempts > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$set", Value: bson.D{
			{Key: "active", Value: bson.M{"$cond": bson.A{
				bson.M{"$gte": bson.A{"$dispatchFailures", maxAttempts}}, false, "$active",
			}}},
		}}})
	}

	var w models.Watch
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"id": id}, pipeline,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&w)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return false, fmt.Errorf("recording dispatch failure %s: %w", id, ErrNotFound)
		}
		return false, fmt.Errorf("recording dispatch failure %s: %w", id, err)
	}
	return maxAttempts > 0 && !w.Active && w.DispatchFailures >= maxAttempts, nil
}

// SetActive toggles a watch.
func (s *MongoStore) SetActive(ctx context.Context, id string, active bool) error {
	return s.updateOne(ctx, "updating watch", id, bson.M{"$set": bson.M{"active": active}})
}

// Delete removes a watch by ID.
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("deleting watch %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("deleting watch %s: %w", id, ErrNotFound)
	}
	return nil
}

// Ping 健康检查
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Drop removes the watch collection. Used by tests.
func (s *MongoStore) Drop(ctx context.Context) error {
	return s.coll.Drop(ctx)
}
