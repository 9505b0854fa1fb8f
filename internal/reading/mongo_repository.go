package reading

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding readings.
const CollectionName = "device_readings"

// MongoRepository implements Repository on a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over db's readings collection.
// Call EnsureIndexes once at startup.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the {deviceId: 1, timestamp: -1} index.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "deviceId", Value: 1}, {Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("deviceId_timestamp"),
	})
	if err != nil {
		return fmt.Errorf("creating reading indexes: %w", err)
	}
	return nil
}

// Insert stores a reading.
func (r *MongoRepository) Insert(ctx context.Context, rd *Reading) error {
	if _, err := r.coll.InsertOne(ctx, rd); err != nil {
		return fmt.Errorf("inserting reading: %w", err)
	}
	return nil
}

// Latest returns the newest reading for deviceID.
func (r *MongoRepository) Latest(ctx context.Context, deviceID string) (*Reading, error) {
	opts := options.FindOne().SetSort(newestFirst())

	var rd Reading
	err := r.coll.FindOne(ctx, bson.D{{Key: "deviceId", Value: deviceID}}, opts).Decode(&rd)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoReadings
		}
		return nil, fmt.Errorf("querying latest reading: %w", err)
	}
	normalizeTimes(&rd)
	return &rd, nil
}

// History returns readings for deviceID, newest first.
func (r *MongoRepository) History(ctx context.Context, deviceID string, q Query) ([]Reading, error) {
	q = q.normalized()

	filter := bson.D{{Key: "deviceId", Value: deviceID}}
	window := bson.D{}
	if q.Start != nil {
		window = append(window, bson.E{Key: "$gte", Value: q.Start.UTC()})
	}
	if q.End != nil {
		window = append(window, bson.E{Key: "$lte", Value: q.End.UTC()})
	}
	if len(window) > 0 {
		filter = append(filter, bson.E{Key: "timestamp", Value: window})
	}

	opts := options.Find().SetSort(newestFirst()).SetLimit(int64(q.Limit))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("querying reading history: %w", err)
	}

	readings := []Reading{}
	if err := cursor.All(ctx, &readings); err != nil {
		return nil, fmt.Errorf("decoding readings: %w", err)
	}
	for i := range readings {
		normalizeTimes(&readings[i])
	}
	return readings, nil
}

func newestFirst() bson.D {
	return bson.D{{Key: "timestamp", Value: -1}, {Key: "createdAt", Value: -1}}
}

func normalizeTimes(rd *Reading) {
	rd.Timestamp = rd.Timestamp.UTC()
	rd.CreatedAt = rd.CreatedAt.UTC()
	rd.UpdatedAt = rd.UpdatedAt.UTC()
}
