package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProviderNoopWithoutServiceName(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProviderRejectsUnknownExporter(t *testing.T) {
	_, err := NewProvider(context.Background(), Config{
		ServiceName:  "hackhub",
		ExporterType: "carrier-pigeon",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported exporter type")
}

func TestNewProviderGRPCExporter(t *testing.T) {
	// The gRPC exporter connects lazily, so construction succeeds without a
	// collector listening.
	p, err := NewProvider(context.Background(), Config{
		ServiceName:  "hackhub",
		ExporterType: "grpc",
		Endpoint:     "localhost:4317",
		SamplingRate: 0,
	})
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.NoError(t, p.Shutdown(context.Background()))
}
