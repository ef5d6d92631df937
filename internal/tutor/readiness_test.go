package tutor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var unitTopics = []string{"allergen menu", "guest handling"}

func TestComputeReadiness(t *testing.T) {
	tests := []struct {
		name      string
		exchanges []Exchange
		topics    []string
		want      int
	}{
		{"no exchanges", nil, unitTopics, 0},
		{"single exchange is damped", []Exchange{{90, "allergen menu"}}, unitTopics, 23},
		{"two exchanges, full coverage", []Exchange{{80, "allergen menu"}, {90, "guest handling"}}, unitTopics, 58},
		{"three exchanges, full coverage", []Exchange{{60, "allergen menu"}, {80, "guest handling"}, {100, "guest handling"}}, unitTopics, 87},
		{"half coverage", []Exchange{{100, "allergen menu"}, {100, "allergen menu"}, {100, "allergen menu"}}, unitTopics, 75},
		{"unknown topic does not count", []Exchange{{100, "wine"}, {100, "wine"}, {100, ""}}, unitTopics, 50},
		{"no topic list", []Exchange{{70, ""}, {70, ""}, {70, ""}}, nil, 70},
		{"scores are clamped", []Exchange{{150, ""}, {150, ""}, {-20, ""}}, nil, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeReadiness(tt.exchanges, tt.topics))
		})
	}
}

func TestComputeReadiness_RecentWeighsMore(t *testing.T) {
	improving := []Exchange{{40, "allergen menu"}, {70, "guest handling"}, {100, "guest handling"}}
	slipping := []Exchange{{100, "allergen menu"}, {70, "guest handling"}, {40, "guest handling"}}

	assert.Greater(t, ComputeReadiness(improving, unitTopics), ComputeReadiness(slipping, unitTopics))
}

func TestComputeReadiness_Deterministic(t *testing.T) {
	ex := []Exchange{{55, "allergen menu"}, {81, "guest handling"}, {67, "allergen menu"}, {92, "guest handling"}}
	first := ComputeReadiness(ex, unitTopics)
	for range 10 {
		assert.Equal(t, first, ComputeReadiness(ex, unitTopics))
	}
}
