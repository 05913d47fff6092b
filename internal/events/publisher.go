package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catalog-service/internal/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
)

const (
	StreamCatalogImports = "CATALOG_IMPORTS"

	ImportCompleted = "catalog.import.completed"
	ImportFailed    = "catalog.import.failed"

	publishTimeout = 10 * time.Second
)

// ImportEvent is the payload published when an import job finishes
type ImportEvent struct {
	EventID   string                `json:"eventId"`
	EventType string                `json:"eventType"`
	JobID     string                `json:"jobId"`
	FilePath  string                `json:"filePath"`
	Timestamp time.Time             `json:"timestamp"`
	Summary   *models.ImportSummary `json:"summary,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// streamPublisher is the part of jetstream.JetStream the publisher needs
type streamPublisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends import job events to NATS JetStream
type Publisher struct {
	nc     *nats.Conn
	js     streamPublisher
	logger *logrus.Entry
}

// NewPublisher connects to NATS and makes sure the import stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	log := logger.WithField("component", "catalog-events")

	nc, err := nats.Connect(natsURL,
		nats.Name("catalog-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.WithError(err).Warn("NATS disconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamCatalogImports,
		Subjects:  []string{"catalog.import.>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour * 7,
		Storage:   jetstream.FileStorage,
		Replicas:  1,
	})
	if err != nil {
		log.WithError(err).Warn("Failed to ensure catalog imports stream (may already exist)")
	}

	return &Publisher{nc: nc, js: js, logger: log}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}

// PublishImportCompleted publishes catalog.import.completed for a finished job
func (p *Publisher) PublishImportCompleted(ctx context.Context, job *models.ImportJob) error {
	return p.publish(ctx, p.buildEvent(ImportCompleted, job))
}

// PublishImportFailed publishes catalog.import.failed for a failed job
func (p *Publisher) PublishImportFailed(ctx context.Context, job *models.ImportJob) error {
	return p.publish(ctx, p.buildEvent(ImportFailed, job))
}

func (p *Publisher) buildEvent(eventType string, job *models.ImportJob) *ImportEvent {
	return &ImportEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		JobID:     job.ID,
		FilePath:  job.FilePath,
		Timestamp: time.Now().UTC(),
		Summary:   job.Summary,
		Error:     job.Error,
	}
}

func (p *Publisher) publish(ctx context.Context, event *ImportEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := p.js.Publish(pubCtx, event.EventType, data, jetstream.WithMsgID(event.EventID)); err != nil {
		p.logger.WithFields(logrus.Fields{
			"eventType": event.EventType,
			"jobID":     event.JobID,
		}).WithError(err).Error("Failed to publish import event")
		return fmt.Errorf("failed to publish %s: %w", event.EventType, err)
	}

	p.logger.WithFields(logrus.Fields{
		"eventType": event.EventType,
		"jobID":     event.JobID,
	}).Info("Import event published")
	return nil
}
