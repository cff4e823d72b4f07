package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xab-mack/anchorscan/internal/model"
	"github.com/xab-mack/anchorscan/internal/query"
)

func writeTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAMLSingleFile(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "custom.yaml", `
id: team-public-functions
title: Public Function Inventory
description: Lists every exported function.
severity: low
type: solana
tags:
  - inventory
query: public-functions
`)

	rules, err := LoadYAML(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	r := rules[0]
	assert.Equal(t, "team-public-functions", r.ID())
	assert.Equal(t, model.SeverityLow, r.Severity())
	assert.Equal(t, []string{"inventory"}, r.Tags())
	assert.True(t, r.Enabled())
}

func TestLoadYAMLDirectorySkipsBadTemplates(t *testing.T) {
	dir := t.TempDir()
	writeTemplate(t, dir, "good.yaml", `
id: good-rule
title: Good
severity: medium
query: derives-accounts
`)
	writeTemplate(t, dir, "no-id.yaml", `
title: Missing ID
query: public-functions
`)
	writeTemplate(t, dir, "bad-severity.yml", `
id: bad-severity
severity: catastrophic
query: public-functions
`)
	writeTemplate(t, dir, "bad-query.yaml", `
id: bad-query
query: does-not-exist
`)
	writeTemplate(t, dir, "notes.txt", "not a template")

	rules, err := LoadYAML(dir)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "good-rule", rules[0].ID())
}

func TestLoadYAMLMissingPath(t *testing.T) {
	_, err := LoadYAML(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadYAMLDisabledTemplate(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "off.yaml", `
id: off-rule
enabled: false
query: public-functions
`)
	rules, err := LoadYAML(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].Enabled())
}

func TestCallsToPipeline(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "transfer.yaml", `
id: watch-transfer
title: Transfer Caller
severity: informational
query: "calls-to:transfer"
`)
	rules, err := LoadYAML(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	src := `
fn moves() { transfer(1); }
fn idle() {}
`
	findings, err := rules[0].Check(mustParse(t, src), "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Description, "moves")
}

func TestWithNamePipeline(t *testing.T) {
	dir := t.TempDir()
	path := writeTemplate(t, dir, "named.yaml", `
id: watch-init
query: "with-name:initialize"
`)
	rules, err := LoadYAML(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	src := `
pub fn initialize() {}
pub fn other() {}
`
	findings, err := rules[0].Check(mustParse(t, src), "lib.rs", query.NewSpanExtractor(src, "lib.rs"))
	require.NoError(t, err)
	require.Len(t, findings, 1)
}
