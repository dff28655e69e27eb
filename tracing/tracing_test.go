package tracing

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_Stdout(t *testing.T) {
	var buf bytes.Buffer
	tp, shutdown, err := Setup(context.Background(), Config{Exporter: ExporterStdout, ServiceName: "test", Writer: &buf})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "orchestrator.parallel")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), "orchestrator.parallel")
}

func TestSetup_None(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), Config{})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetup_Unknown(t *testing.T) {
	_, _, err := Setup(context.Background(), Config{Exporter: "jaeger"})
	assert.Error(t, err)
}
