package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathFilter_Match(t *testing.T) {
	tests := []struct {
		name    string
		include []string
		exclude []string
		path    string
		want    bool
	}{
		{name: "no patterns", path: "main.go", want: true},
		{name: "include matches", include: []string{"internal/**/*.go"}, path: "internal/a/b.go", want: true},
		{name: "include misses", include: []string{"internal/**/*.go"}, path: "cmd/main.go", want: false},
		{name: "exclude wins", include: []string{"**/*.go"}, exclude: []string{"**/*_gen.go"}, path: "pkg/api_gen.go", want: false},
		{name: "exclude only", exclude: []string{"vendor/**"}, path: "vendor/x/y.go", want: false},
		{name: "exclude misses", exclude: []string{"vendor/**"}, path: "pkg/y.go", want: true},
		{name: "any include", include: []string{"cmd/**", "pkg/**"}, path: "pkg/y.go", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			filter, err := NewPathFilter(tt.include, tt.exclude)
			require.NoError(t, err)
			assert.Equal(t, tt.want, filter.Match(tt.path))
		})
	}
}

func TestNewPathFilter_InvalidPattern(t *testing.T) {
	_, err := NewPathFilter([]string{"internal/[a-"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid include pattern")

	_, err = NewPathFilter(nil, []string{"{unclosed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}
