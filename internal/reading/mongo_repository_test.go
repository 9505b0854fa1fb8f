package reading

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
		Database:       fmt.Sprintf("sensorhub_reading_test_%d", time.Now().UnixNano()),
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

func TestMongoRepository_LatestAndHistory(t *testing.T) {
	repo := setupMongoRepo(t)
	ctx := context.Background()

	if _, err := repo.Latest(ctx, "d1"); !errors.Is(err, ErrNoReadings) {
		t.Fatalf("Latest() on empty collection error = %v, want ErrNoReadings", err)
	}

	for i := 0; i < 4; i++ {
		if err := repo.Insert(ctx, testReading("d1", time.Duration(i)*time.Hour)); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}

	latest, err := repo.Latest(ctx, "d1")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if want := baseTime.Add(3 * time.Hour); !latest.Timestamp.Equal(want) {
		t.Errorf("Latest().Timestamp = %v, want %v", latest.Timestamp, want)
	}
	if latest.Temperature == nil || *latest.Temperature != 21.5 {
		t.Errorf("Latest().Temperature = %v, want 21.5", latest.Temperature)
	}
	if latest.Humidity != nil {
		t.Errorf("Latest().Humidity = %v, want nil", latest.Humidity)
	}

	start := baseTime.Add(time.Hour)
	history, err := repo.History(ctx, "d1", Query{Start: &start, Limit: 2})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("History() returned %d readings, want 2", len(history))
	}
	if !history[0].Timestamp.Equal(baseTime.Add(3*time.Hour)) || !history[1].Timestamp.Equal(baseTime.Add(2*time.Hour)) {
		t.Errorf("History() timestamps = %v, %v", history[0].Timestamp, history[1].Timestamp)
	}

	empty, err := repo.History(ctx, "other", Query{})
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("History() for unknown device = %v, want empty slice", empty)
	}
}
