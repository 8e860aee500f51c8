package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/convrep/client"
	"github.com/otherjamesbrown/convrep/pkg/tokens"
)

// usageItems returns raw records inside the default analysis window.
func usageItems() []map[string]any {
	return []map[string]any{
		{
			"PK":         map[string]any{"S": "USER#1"},
			"SK":         map[string]any{"S": "CONVERSATION#1"},
			"CreateTime": map[string]any{"N": "1755000000000"},
			"MessageMap": map[string]any{
				"user":      map[string]any{"role": "user", "content": "hola, necesito ayuda"},
				"assistant": map[string]any{"role": "assistant", "content": "claro, con gusto"},
			},
		},
	}
}

func fixedClock() time.Time {
	return time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)
}

func TestTokensCommand_PublishesUsageCSV(t *testing.T) {
	loadConfig := testConfig(t)
	cfg, _ := loadConfig()

	deps := &TokensCommandDeps{
		LoadConfig: loadConfig,
		Store:      &client.StaticRecordStore{Items: usageItems()},
		Now:        fixedClock,
	}

	var buf bytes.Buffer
	c := NewTokensCommand(deps)
	c.SetOut(&buf)
	c.SetArgs([]string{})

	require.NoError(t, c.Execute())
	assert.Contains(t, buf.String(), "Records:  1 analyzed")

	data, err := os.ReadFile(filepath.Join(cfg.OutputDir, tokens.KeyPrefix, tokens.FileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), "2025-08-12")
}

func TestTokensCommand_DryRun(t *testing.T) {
	loadConfig := testConfig(t)
	cfg, _ := loadConfig()

	deps := &TokensCommandDeps{
		LoadConfig: loadConfig,
		Store:      &client.StaticRecordStore{Items: usageItems()},
		Now:        fixedClock,
	}

	var buf bytes.Buffer
	c := NewTokensCommand(deps)
	c.SetOut(&buf)
	c.SetArgs([]string{"--dry-run"})
	t.Cleanup(func() { tokensDryRun = false })

	require.NoError(t, c.Execute())
	assert.NotContains(t, buf.String(), "CSV:")

	_, err := os.Stat(filepath.Join(cfg.OutputDir, tokens.KeyPrefix, tokens.FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestTokensCommand_JSONOutput(t *testing.T) {
	deps := &TokensCommandDeps{
		LoadConfig: testConfig(t),
		Store:      &client.StaticRecordStore{Items: usageItems()},
		Now:        fixedClock,
	}

	var buf bytes.Buffer
	c := NewTokensCommand(deps)
	c.SetOut(&buf)
	c.SetArgs([]string{"--output", "json"})
	t.Cleanup(func() { tokensOutput = "" })

	require.NoError(t, c.Execute())

	var result tokensResult
	require.NoError(t, json.Unmarshal(buf.Bytes(), &result))
	assert.Equal(t, 1, result.Processed)
	assert.Positive(t, result.Stats.TotalTokens)
	assert.Positive(t, result.Stats.TotalCost)
}

func TestTokensCommand_WindowFiltersRecords(t *testing.T) {
	deps := &TokensCommandDeps{
		LoadConfig: testConfig(t),
		Store:      &client.StaticRecordStore{Items: usageItems()},
		Now:        fixedClock,
	}

	var buf bytes.Buffer
	c := NewTokensCommand(deps)
	c.SetOut(&buf)
	c.SetArgs([]string{"--start", "2025-08-15", "--dry-run"})
	t.Cleanup(func() {
		tokensStart = ""
		tokensDryRun = false
	})

	require.NoError(t, c.Execute())
	assert.Contains(t, buf.String(), "Records:  0 analyzed, 1 outside window")
}

func TestTokensCommand_BadEndDate(t *testing.T) {
	deps := &TokensCommandDeps{
		LoadConfig: testConfig(t),
		Store:      &client.StaticRecordStore{Items: usageItems()},
	}

	c := NewTokensCommand(deps)
	c.SetOut(&bytes.Buffer{})
	c.SetErr(&bytes.Buffer{})
	c.SetArgs([]string{"--end", "ayer"})
	t.Cleanup(func() { tokensEnd = "" })

	err := c.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --end")
}
