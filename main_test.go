package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	for _, v := range []string{"true", "1"} {
		got, err := parseBool(v)
		require.NoError(t, err)
		assert.True(t, got)
	}
	for _, v := range []string{"false", "0"} {
		got, err := parseBool(v)
		require.NoError(t, err)
		assert.False(t, got)
	}
	_, err := parseBool("yes")
	assert.Error(t, err)
}

func TestValueOrDefault(t *testing.T) {
	assert.Equal(t, "x", valueOrDefault("x", "d"))
	assert.Equal(t, "d", valueOrDefault("", "d"))
}

func TestRootCommandWiring(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"normalize", "project", "tokens", "refresh", "config", "version", "completion"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
