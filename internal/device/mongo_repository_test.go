package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nerrad567/sensorhub-core/internal/infrastructure/config"
	"github.com/nerrad567/sensorhub-core/internal/infrastructure/mongodb"
)

// setupMongoRepo returns a repository on a throwaway database, skipping
// when no MongoDB server is reachable.
func setupMongoRepo(t *testing.T) *MongoRepository {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		uri = "mongodb://127.0.0.1:27017"
	}

	ctx := context.Background()
	client, err := mongodb.Connect(ctx, config.MongoDBConfig{
		URI:            uri,
		Database:       fmt.Sprintf("sensorhub_device_test_%d", time.Now().UnixNano()),
		ConnectTimeout: 2,
	})
	if err != nil {
		if os.Getenv("RUN_INTEGRATION") == "" {
			t.Skip("MongoDB not available, skipping integration test")
		}
		t.Fatalf("mongodb.Connect() error = %v", err)
	}
	t.Cleanup(func() {
		_ = client.Database().Drop(context.Background()) //nolint:errcheck // test cleanup
		client.Close()
	})

	repo := NewMongoRepository(client.Database())
	if err := repo.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes() error = %v", err)
	}
	return repo
}

func TestMongoRepository_CRUD(t *testing.T) {
	repo := setupMongoRepo(t)
	ctx := context.Background()

	for _, d := range []*Device{testDevice("m2", "Bravo"), testDevice("m1", "Alpha")} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.DeviceID, err)
		}
	}

	if err := repo.Create(ctx, testDevice("m1", "Again")); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("duplicate Create() = %v, want ErrDeviceExists", err)
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(devices) != 2 || devices[0].DeviceID != "m1" {
		t.Errorf("List() = %+v, want Alpha first", devices)
	}

	ids, err := repo.ListIDs(ctx)
	if err != nil || len(ids) != 2 || ids[0] != "m1" {
		t.Errorf("ListIDs() = %v, %v", ids, err)
	}

	got, err := repo.Update(ctx, "m1", Update{Location: strPtr("Barn"), IPAddress: strPtr("")})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Location != "Barn" || got.IPAddress != nil || got.Name != "Alpha" {
		t.Errorf("Update() = %+v", got)
	}

	if _, err := repo.Update(ctx, "missing", Update{Name: strPtr("x")}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update(missing) = %v, want ErrDeviceNotFound", err)
	}

	if err := repo.Delete(ctx, "m1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "m1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after Delete = %v", err)
	}
	if err := repo.Delete(ctx, "m1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() = %v", err)
	}
}

func TestUpdateDocument(t *testing.T) {
	set, unset := updateDocument(Update{
		Name:            strPtr(" Renamed "),
		FirmwareVersion: strPtr(""),
	})

	if len(set) != 1 || set[0].Key != "name" || set[0].Value != "Renamed" {
		t.Errorf("set = %v", set)
	}
	if len(unset) != 1 || unset[0].Key != "firmwareVersion" {
		t.Errorf("unset = %v", unset)
	}
}
