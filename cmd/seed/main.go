// Command seed registers a demo tourist in the SQLite database and, when
// asked, publishes a short sample journey to the location topic so the
// consumer has something to evaluate.
//
// Usage:
//
//	go run ./cmd/seed -db ./data/tourist-safety.db
//	go run ./cmd/seed -db ./data/tourist-safety.db -publish -brokers localhost:9092
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	kafkaadapter "github.com/couchcryptid/tourist-safety-service/internal/adapter/kafka"
	"github.com/couchcryptid/tourist-safety-service/internal/adapter/sqlite"
	"github.com/couchcryptid/tourist-safety-service/internal/domain"
	"github.com/couchcryptid/tourist-safety-service/internal/pipeline"
)

// journey runs from Guwahati up NH37 and ends inside the Tezpur military zone.
var journey = []domain.Coordinate{
	{Lon: 91.7362, Lat: 26.1445},
	{Lon: 92.0500, Lat: 26.2900},
	{Lon: 92.3800, Lat: 26.4100},
	{Lon: 92.7000, Lat: 26.5900},
	{Lon: 92.7933, Lat: 26.6337},
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dbPath := flag.String("db", "./data/tourist-safety.db", "path to the SQLite database")
	touristID := flag.String("tourist-id", "TID0001", "id of the demo tourist")
	publish := flag.Bool("publish", false, "publish the sample journey to Kafka")
	brokers := flag.String("brokers", "localhost:9092", "comma-separated Kafka brokers")
	topic := flag.String("topic", "tourist-locations", "location report topic")
	flag.Parse()

	store, err := sqlite.Open(*dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	now := time.Now().UTC()
	t := demoTourist(*touristID, now)
	if err := store.SaveTourist(ctx, t); err != nil {
		return fmt.Errorf("save tourist: %w", err)
	}
	log.Printf("registered tourist %s (%s), valid until %s", t.ID, t.Name, t.ValidTo.Format(time.DateOnly))

	if !*publish {
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := kafkaadapter.NewTopicWriter(strings.Split(*brokers, ","), *topic, logger)
	defer w.Close()

	for i, c := range journey {
		lat, lon := c.Lat, c.Lon
		report := pipeline.LocationReport{
			TouristID: t.ID,
			Latitude:  &lat,
			Longitude: &lon,
			Accuracy:  ptr(domain.DefaultAccuracyMeters),
		}
		if err := w.WriteJSON(ctx, t.ID, report); err != nil {
			return fmt.Errorf("publish report %d: %w", i, err)
		}
	}
	log.Printf("published %d location reports to %s", len(journey), *topic)
	return nil
}

func demoTourist(id string, now time.Time) domain.Tourist {
	return domain.Tourist{
		ID:          id,
		Name:        "Demo Tourist",
		PhoneNo:     "+91-90000-00001",
		Nationality: "Indian",
		Itinerary:   []string{"Guwahati", "Kaziranga", "Tezpur", "Tawang"},
		EmergencyContacts: []domain.EmergencyContact{
			{Name: "Priya Sharma", Relationship: "spouse", Phone: "+91-90000-00002"},
			{Name: "Arjun Sharma", Relationship: "brother", Phone: "+91-90000-00003"},
		},
		ValidFrom:   now.Add(-time.Hour),
		ValidTo:     now.AddDate(0, 0, 14),
		SafetyScore: domain.DefaultSafetyScore,
		Status:      domain.TouristActive,
	}
}

func ptr[T any](v T) *T { return &v }
