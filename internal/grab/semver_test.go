package grab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"grab-go/internal/grab"
)

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"0.9.9", "1.0.0", -1},
		{"2.0.0", "1.9.9", 1},
		{"1.10.0", "1.9.0", 1},
		{"1.2", "1.2.0", 0},
		{"1", "1.0.1", -1},
		{"1.2.3.4", "1.2.3", 0},
		{"invalid", "0.0.0", 0},
		{"1.x.3", "1.0.3", 0},
		{"", "0.0.1", -1},
		{"-1.0.0", "0.0.0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, grab.CompareVersions(tt.a, tt.b), "CompareVersions(%q, %q)", tt.a, tt.b)
		})
	}
}

func TestIsVersionBelowAndNewer(t *testing.T) {
	assert.False(t, grab.IsVersionBelow("1.0.0", "1.0.0"))
	assert.False(t, grab.IsVersionNewer("1.0.0", "1.0.0"))
	assert.True(t, grab.IsVersionBelow("0.9.9", "1.0.0"))
	assert.True(t, grab.IsVersionNewer("2.0.0", "1.9.9"))
	assert.False(t, grab.IsVersionNewer("0.9.9", "1.0.0"))
}
