package tracer_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"firmgate/pkg/platform/tracer"
)

func TestNoopTracer(t *testing.T) {
	ctx := context.Background()
	newCtx, span := tracer.NewNoop().Start(ctx, tracer.SpanTokenGenerate, tracer.String(tracer.AttrFirmID, "f1"))
	assert.Equal(t, ctx, newCtx)
	require.NotNil(t, span)

	span.SetAttributes(tracer.Int64(tracer.AttrAttempts, 1))
	span.AddEvent(tracer.EventAuditRecorded)
	span.End(errors.New("boom"))
}

func TestOTelTracerWithInjectedProvider(t *testing.T) {
	tr := tracer.NewOTel(tracer.WithOTelTracer(noop.NewTracerProvider().Tracer("test")))
	_, span := tr.Start(context.Background(), tracer.SpanTokenConsume,
		tracer.Bool("flag", true),
		tracer.Duration("elapsed", 15*time.Millisecond),
	)
	span.SetAttributes(tracer.String(tracer.AttrOutcome, "consumed"))
	span.End(nil)
}

func TestHashEmail(t *testing.T) {
	assert.Empty(t, tracer.HashEmail("  "))
	a := tracer.HashEmail("firm@example.com")
	assert.Len(t, a, 16)
	assert.Equal(t, a, tracer.HashEmail(" firm@example.com "))
	assert.NotEqual(t, a, tracer.HashEmail("other@example.com"))
}
