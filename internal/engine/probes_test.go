package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orafinite/scan-api/internal/domain/model"
)

func TestCatalogIntegrity(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range catalog {
		assert.False(t, seen[p.ID], "duplicate probe id %q", p.ID)
		seen[p.ID] = true
		assert.NotEmpty(t, p.Name, "probe %q has no name", p.ID)
		assert.NotEmpty(t, p.Category, "probe %q has no category", p.ID)
		assert.NotEmpty(t, p.Prompts, "probe %q has no prompts", p.ID)
	}

	// Every category's probe list points at real probes.
	for _, c := range Categories() {
		for _, id := range c.ProbeIDs {
			p, ok := LookupProbe(id)
			require.True(t, ok, "category %q references unknown probe %q", c.ID, id)
			assert.Equal(t, c.ID, p.Category)
		}
	}
}

func TestResolveProbes_Presets(t *testing.T) {
	quick := ResolveProbes(model.PresetQuick, nil)
	assert.Len(t, quick, 4)

	standard := ResolveProbes(model.PresetStandard, nil)
	assert.Len(t, standard, 9)

	comprehensive := ResolveProbes(model.PresetComprehensive, nil)
	assert.Len(t, comprehensive, len(catalog))

	// Quick set is a subset of standard.
	inStandard := map[string]bool{}
	for _, p := range standard {
		inStandard[p.ID] = true
	}
	for _, p := range quick {
		assert.True(t, inStandard[p.ID], "quick probe %q missing from standard", p.ID)
	}
}

func TestResolveProbes_ExplicitList(t *testing.T) {
	probes := ResolveProbes(model.PresetCustom, []string{"dan", "malwaregen"})
	require.Len(t, probes, 2)
	ids := []string{probes[0].ID, probes[1].ID}
	assert.Contains(t, ids, "dan")
	assert.Contains(t, ids, "malwaregen")

	// Unknown ids are dropped.
	probes = ResolveProbes(model.PresetCustom, []string{"dan", "nonexistent"})
	require.Len(t, probes, 1)
	assert.Equal(t, "dan", probes[0].ID)

	// An entirely unknown list falls back to the preset.
	probes = ResolveProbes(model.PresetQuick, []string{"nonexistent"})
	assert.Len(t, probes, 4)
}

func TestSeverityFor(t *testing.T) {
	injection, ok := LookupProbe("promptinject")
	require.True(t, ok)
	misleading, ok := LookupProbe("misleading")
	require.True(t, ok)
	encoding, ok := LookupProbe("encoding")
	require.True(t, ok)

	tests := []struct {
		name  string
		probe Probe
		score float64
		want  model.Severity
	}{
		{"critical ceiling at high score", injection, 0.95, model.SeverityCritical},
		{"high tier below critical", injection, 0.8, model.SeverityHigh},
		{"floor for moderate score", injection, 0.6, model.SeverityHigh},
		{"flat medium range stays medium", misleading, 0.95, model.SeverityMedium},
		{"medium-high range escalates", encoding, 0.8, model.SeverityHigh},
		{"medium-high range floor", encoding, 0.6, model.SeverityMedium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, severityFor(tt.probe, tt.score))
		})
	}
}

func TestRecommendationFor(t *testing.T) {
	for _, c := range Categories() {
		assert.NotEmpty(t, recommendationFor(c.ID))
	}
	assert.Contains(t, recommendationFor("unknown-category"), "guardrails")
}
