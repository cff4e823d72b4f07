package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocationFormat(t *testing.T) {
	cases := []struct {
		name string
		loc  Location
		want string
	}{
		{
			"line only",
			Location{File: "lib.rs", Line: 3},
			"lib.rs:3",
		},
		{
			"line and column",
			Location{File: "lib.rs", Line: 3, Column: 5},
			"lib.rs:3:5",
		},
		{
			"single line span",
			Location{File: "lib.rs", Line: 3, Column: 5, EndLine: 3, EndColumn: 12},
			"lib.rs:3:5-12",
		},
		{
			"multi line span",
			Location{File: "lib.rs", Line: 3, Column: 5, EndLine: 7, EndColumn: 2},
			"lib.rs:3:5-7:2",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.loc.Format())
		})
	}
}

func TestParseSeverity(t *testing.T) {
	for _, s := range Severities {
		got, ok := ParseSeverity(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}
	_, ok := ParseSeverity("critical")
	assert.False(t, ok)
	_, ok = ParseSeverity("")
	assert.False(t, ok)
}

func TestParseRuleType(t *testing.T) {
	for _, rt := range RuleTypes {
		got, ok := ParseRuleType(string(rt))
		assert.True(t, ok)
		assert.Equal(t, rt, got)
	}
	_, ok := ParseRuleType("ethereum")
	assert.False(t, ok)
}

func TestSeverityOrdering(t *testing.T) {
	assert.Equal(t, 0, SeverityHigh.Rank())
	assert.Equal(t, 3, SeverityInformational.Rank())

	assert.True(t, SeverityHigh.GTE(SeverityMedium))
	assert.True(t, SeverityMedium.GTE(SeverityMedium))
	assert.False(t, SeverityLow.GTE(SeverityMedium))
}
