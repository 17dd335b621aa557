// Package kafka publishes computed building features to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/paulmach/orb/geojson"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/martibosch/swisstopopy/internal/config"
	"github.com/martibosch/swisstopopy/internal/domain"
	"github.com/martibosch/swisstopopy/internal/observability"
)

// Writer produces GeoJSON feature messages to a Kafka topic.
// It implements domain.FeatureSink.
type Writer struct {
	writer  *kafkago.Writer
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewWriter creates a Kafka producer for the configured export topic.
func NewWriter(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger, metrics: metrics}
}

// Publish serializes and publishes the run's building features in a single
// WriteMessages call so a batch is acknowledged as a whole.
func (w *Writer) Publish(ctx context.Context, run domain.RunInfo, features []domain.BuildingFeature) error {
	if len(features) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, len(features))
	for i := range features {
		msg, err := serializeToMessage(run, features[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}

	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write features: %w", err)
	}

	w.metrics.FeaturesExported.Add(float64(len(features)))
	w.logger.Info("features published", "run_id", run.ID, "count", len(features))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a building feature into a Kafka message whose
// value is a GeoJSON feature keyed by the OSM element id.
func serializeToMessage(run domain.RunInfo, feature domain.BuildingFeature) (kafkago.Message, error) {
	f := geojson.NewFeature(feature.Geometry)
	f.ID = feature.ID
	f.Properties["height"] = feature.Height

	data, err := json.Marshal(f)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize feature %s: %w", feature.ID, err)
	}

	return kafkago.Message{
		Key:   []byte(feature.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "run_id", Value: []byte(run.ID)},
			{Key: "computed_at", Value: []byte(run.StartedAt.Format(time.RFC3339))},
		},
	}, nil
}
