// SPDX-License-Identifier: MIT

package log

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextWithRunID(t *testing.T) {
	tests := []struct {
		name  string
		ctx   context.Context
		runID string
		want  string
	}{
		{name: "nil context", ctx: nil, runID: "run-123", want: "run-123"},
		{name: "background context", ctx: context.Background(), runID: "run-456", want: "run-456"},
		{name: "empty run ID", ctx: context.Background(), runID: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := ContextWithRunID(tt.ctx, tt.runID)
			assert.Equal(t, tt.want, RunIDFromContext(ctx))
		})
	}
}

func TestRunIDFromContextMissing(t *testing.T) {
	assert.Empty(t, RunIDFromContext(nil)) //nolint:staticcheck // nil context is part of the contract
	assert.Empty(t, RunIDFromContext(context.Background()))
	assert.Empty(t, TaskFromContext(context.Background()))
}

func TestNewRunIDIsUnique(t *testing.T) {
	a, b := NewRunID(), NewRunID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestWithContextAddsCorrelationFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	ctx := ContextWithRunID(context.Background(), "run-1")
	ctx = ContextWithTask(ctx, "sort-scanned")

	l := WithContext(ctx, logger)
	l.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry[FieldRunID])
	assert.Equal(t, "sort-scanned", entry[FieldTask])
}

func TestFromContextUsesStoredLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).With().Str("origin", "stored").Logger()

	ctx := IntoContext(context.Background(), logger)
	ctx = ContextWithRunID(ctx, "run-2")

	l := WithComponentFromContext(ctx, "identify")
	l.Info().Msg("processing")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "stored", entry["origin"])
	assert.Equal(t, "run-2", entry[FieldRunID])
	assert.Equal(t, "identify", entry[FieldComponent])
}
