package telemetry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScopedAPI(t *testing.T) {
	inner := NewTestAPI(t)
	scoped := NewScopedAPI("pipeline", NewScopedAPI("storybee", inner))

	scoped.ReportBroken("pipeline.run", "boom")
	scoped.ReportWarning("pipeline.download", 1)
	scoped.ReportDebug("slide written")
	scoped.ReportCount("slides", 3)

	reports := inner.Reports("")
	require.Len(t, reports, 4)
	require.Equal(t, "storybee: pipeline: pipeline.run", reports[0].Id)
	require.Equal(t, []any{"boom"}, reports[0].Params)
	require.Equal(t, "warning", reports[1].Kind)
	require.Equal(t, "storybee: pipeline: slide written", reports[2].Id)
	require.Equal(t, []any{int64(3)}, reports[3].Params)
}

func TestParseLevel(t *testing.T) {
	table := []struct {
		input    string
		expected slog.Level
	}{
		{input: "debug", expected: slog.LevelDebug},
		{input: " WARN ", expected: slog.LevelWarn},
		{input: "warning", expected: slog.LevelWarn},
		{input: "error", expected: slog.LevelError},
		{input: "", expected: slog.LevelInfo},
		{input: "verbose", expected: slog.LevelInfo},
	}

	for _, row := range table {
		require.Equal(t, row.expected, ParseLevel(row.input), row.input)
	}
}

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "test:telemetry", OtlpConfig{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}
