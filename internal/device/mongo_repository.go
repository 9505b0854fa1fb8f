package device

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding devices.
const CollectionName = "devices"

// MongoRepository implements Repository on a MongoDB collection.
type MongoRepository struct {
	coll *mongo.Collection
}

// NewMongoRepository creates a repository over db's devices collection.
// Call EnsureIndexes once at startup.
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique deviceId index and the name sort index.
// It is idempotent.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "deviceId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("deviceId_unique"),
		},
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetName("name"),
		},
	})
	if err != nil {
		return fmt.Errorf("creating device indexes: %w", err)
	}
	return nil
}

// List returns all devices ordered by name.
func (r *MongoRepository) List(ctx context.Context) ([]Device, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "deviceId", Value: 1}})

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}

	devices := []Device{}
	if err := cursor.All(ctx, &devices); err != nil {
		return nil, fmt.Errorf("decoding devices: %w", err)
	}
	for i := range devices {
		normalizeTimes(&devices[i])
	}
	return devices, nil
}

// ListIDs returns every deviceId, ordered by device name.
func (r *MongoRepository) ListIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "deviceId", Value: 1}}).
		SetProjection(bson.D{{Key: "deviceId", Value: 1}, {Key: "_id", Value: 0}})

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("querying device ids: %w", err)
	}

	var docs []struct {
		DeviceID string `bson:"deviceId"`
	}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decoding device ids: %w", err)
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.DeviceID)
	}
	return ids, nil
}

// GetByID retrieves a device by its deviceId.
func (r *MongoRepository) GetByID(ctx context.Context, deviceID string) (*Device, error) {
	var d Device
	err := r.coll.FindOne(ctx, bson.D{{Key: "deviceId", Value: deviceID}}).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("querying device by id: %w", err)
	}
	normalizeTimes(&d)
	return &d, nil
}

// Create inserts a new device.
func (r *MongoRepository) Create(ctx context.Context, d *Device) error {
	// BSON dates carry millisecond precision.
	now := time.Now().UTC().Truncate(time.Millisecond)
	d.CreatedAt = now
	d.UpdatedAt = now
	d.InstallDate = d.InstallDate.UTC().Truncate(time.Millisecond)
	d.LastMaintenance = d.LastMaintenance.UTC().Truncate(time.Millisecond)

	if _, err := r.coll.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDeviceExists
		}
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// Update applies u with a single findOneAndUpdate and returns the result.
func (r *MongoRepository) Update(ctx context.Context, deviceID string, u Update) (*Device, error) {
	set, unset := updateDocument(u)
	set = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC().Truncate(time.Millisecond)})

	change := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		change = append(change, bson.E{Key: "$unset", Value: unset})
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var d Device
	err := r.coll.FindOneAndUpdate(ctx, bson.D{{Key: "deviceId", Value: deviceID}}, change, opts).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrDeviceNotFound
		}
		return nil, fmt.Errorf("updating device: %w", err)
	}
	normalizeTimes(&d)
	return &d, nil
}

// Delete removes a device by deviceId.
func (r *MongoRepository) Delete(ctx context.Context, deviceID string) error {
	result, err := r.coll.DeleteOne(ctx, bson.D{{Key: "deviceId", Value: deviceID}})
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// updateDocument translates u into $set and $unset documents. Applying u
// to a scratch device reuses its trimming rules.
func updateDocument(u Update) (set bson.D, unset bson.D) {
	var d Device
	u.Apply(&d)

	if u.Name != nil {
		set = append(set, bson.E{Key: "name", Value: d.Name})
	}
	if u.Type != nil {
		set = append(set, bson.E{Key: "type", Value: d.Type})
	}
	if u.Location != nil {
		set = append(set, bson.E{Key: "location", Value: d.Location})
	}
	if u.Active != nil {
		set = append(set, bson.E{Key: "active", Value: d.Active})
	}
	if u.InstallDate != nil {
		set = append(set, bson.E{Key: "installDate", Value: d.InstallDate.Truncate(time.Millisecond)})
	}
	if u.LastMaintenance != nil {
		set = append(set, bson.E{Key: "lastMaintenance", Value: d.LastMaintenance.Truncate(time.Millisecond)})
	}
	if u.IPAddress != nil {
		if d.IPAddress == nil {
			unset = append(unset, bson.E{Key: "ipAddress", Value: ""})
		} else {
			set = append(set, bson.E{Key: "ipAddress", Value: *d.IPAddress})
		}
	}
	if u.FirmwareVersion != nil {
		if d.FirmwareVersion == nil {
			unset = append(unset, bson.E{Key: "firmwareVersion", Value: ""})
		} else {
			set = append(set, bson.E{Key: "firmwareVersion", Value: *d.FirmwareVersion})
		}
	}
	return set, unset
}

// normalizeTimes converts decoded BSON dates (local zone) to UTC.
func normalizeTimes(d *Device) {
	d.InstallDate = d.InstallDate.UTC()
	d.LastMaintenance = d.LastMaintenance.UTC()
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
}
