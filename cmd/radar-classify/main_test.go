package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-radar-alerts/internal/registry"
)

type cannedOracle string

func (o cannedOracle) Classify(ctx context.Context, text, source string) string {
	return string(o)
}

func TestRun(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	var out bytes.Buffer
	err = run(context.Background(), &out, reg, cannedOracle("HD/Курская область/UAV, XX/Курская область/AIR, broken"), "БПЛА над Курском", "chan")
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "answer: HD/Курская область/UAV")
	assert.Contains(t, got, "Курская область UAV -> HD")
	assert.Contains(t, got, "discarded (severity)")
	assert.Contains(t, got, `malformed: "broken"`)
}

func TestRun_Denylisted(t *testing.T) {
	reg, err := registry.Default()
	require.NoError(t, err)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), &out, reg, cannedOracle("unused"), "Большой розыгрыш призов", "chan"))
	assert.Contains(t, out.String(), "denylisted")
}
