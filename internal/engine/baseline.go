package engine

import (
	"encoding/json"
	"os"
	"sort"
	"time"

	"github.com/xab-mack/anchorscan/internal/model"
)

type baseline struct {
	GeneratedAt  time.Time       `json:"generatedAt"`
	Fingerprints map[string]bool `json:"fingerprints"`
}

// loadBaseline accepts either the full baseline struct or a bare JSON array
// of fingerprints (the format of older baselines).
func loadBaseline(path string) (baseline, error) {
	var b baseline
	data, err := os.ReadFile(path)
	if err != nil {
		return b, err
	}
	var fp []string
	if err := json.Unmarshal(data, &fp); err == nil {
		m := make(map[string]bool, len(fp))
		for _, f := range fp {
			m[f] = true
		}
		b.Fingerprints = m
		return b, nil
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, err
	}
	if b.Fingerprints == nil {
		b.Fingerprints = map[string]bool{}
	}
	return b, nil
}

func filterByBaseline(findings []model.Finding, b baseline) []model.Finding {
	if len(b.Fingerprints) == 0 {
		return findings
	}
	out := findings[:0]
	for _, f := range findings {
		if f.Fingerprint != "" && b.Fingerprints[f.Fingerprint] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func writeBaseline(path string, findings []model.Finding) error {
	m := make(map[string]bool)
	for _, f := range findings {
		if f.Fingerprint != "" {
			m[f.Fingerprint] = true
		}
	}
	b := baseline{GeneratedAt: time.Now().UTC(), Fingerprints: m}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Fingerprints returns the sorted fingerprint set of a finding list, used by
// tests and tooling that diff runs.
func Fingerprints(findings []model.Finding) []string {
	var out []string
	seen := map[string]bool{}
	for _, f := range findings {
		if f.Fingerprint != "" && !seen[f.Fingerprint] {
			seen[f.Fingerprint] = true
			out = append(out, f.Fingerprint)
		}
	}
	sort.Strings(out)
	return out
}
