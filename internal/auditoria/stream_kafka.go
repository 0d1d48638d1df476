package auditoria

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// KafkaStream publishes committed audit entries to a compact topic keyed by
// entity id, so downstream compliance consumers can rebuild per-entity trails.
type KafkaStream struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// streamRecord is the wire shape. Field names are part of the consumer
// contract; extend, never rename.
type streamRecord struct {
	ID          string          `json:"id"`
	Entidad     string          `json:"entidad"`
	EntidadID   string          `json:"entidad_id"`
	Accion      string          `json:"accion"`
	UsuarioID   string          `json:"usuario_id,omitempty"`
	Anteriores  json.RawMessage `json:"datos_anteriores,omitempty"`
	Nuevos      json.RawMessage `json:"datos_nuevos,omitempty"`
	IP          string          `json:"ip,omitempty"`
	Dispositivo string          `json:"dispositivo,omitempty"`
	Fecha       string          `json:"fecha"`
}

// NewKafkaStream connects to the brokers and ensures the topic exists.
func NewKafkaStream(seeds []string, topic string, logger *slog.Logger) (*KafkaStream, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(seeds...),
		kgo.ProducerLinger(50*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists is the normal case after first boot.
		logger.Debug("audit topic create", "topic", topic, "result", err.Error())
	}

	return &KafkaStream{client: client, topic: topic, logger: logger}, nil
}

// Publish produces the entry asynchronously. Failures are logged, not
// returned: the local store already holds the entry.
func (s *KafkaStream) Publish(ctx context.Context, entry Entry) {
	record := streamRecord{
		ID:          entry.ID.String(),
		Entidad:     entry.Entidad,
		EntidadID:   entry.EntidadID,
		Accion:      string(entry.Accion),
		Anteriores:  entry.DatosAnteriores,
		Nuevos:      entry.DatosNuevos,
		IP:          entry.IP,
		Dispositivo: entry.Dispositivo,
		Fecha:       entry.Fecha.Format(time.RFC3339Nano),
	}
	if entry.UsuarioID != nil {
		record.UsuarioID = entry.UsuarioID.String()
	}

	value, err := json.Marshal(record)
	if err != nil {
		s.logger.ErrorContext(ctx, "marshal audit stream record", "error", err)
		return
	}

	s.client.Produce(ctx, &kgo.Record{
		Topic: s.topic,
		Key:   []byte(entry.Entidad + ":" + entry.EntidadID),
		Value: value,
	}, func(_ *kgo.Record, err error) {
		if err != nil {
			s.logger.Error("produce audit stream record",
				"entidad", record.Entidad,
				"entidad_id", record.EntidadID,
				"error", err,
			)
		}
	})
}

// Close flushes pending records and releases the client.
func (s *KafkaStream) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.client.Flush(ctx)
	s.client.Close()
}
