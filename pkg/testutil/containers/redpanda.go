//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcredpanda "github.com/testcontainers/testcontainers-go/modules/redpanda"
)

// RedpandaContainer wraps a Kafka-compatible broker for stream tests.
type RedpandaContainer struct {
	Container testcontainers.Container
	Seeds     []string
}

// NewRedpandaContainer starts a single-node Redpanda broker.
func NewRedpandaContainer(t *testing.T) *RedpandaContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcredpanda.Run(ctx, "redpandadata/redpanda:v24.2.4")
	if err != nil {
		t.Fatalf("failed to start redpanda container: %v", err)
	}

	broker, err := container.KafkaSeedBroker(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get redpanda seed broker: %v", err)
	}

	return &RedpandaContainer{
		Container: container,
		Seeds:     []string{broker},
	}
}
