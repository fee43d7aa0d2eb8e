package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeProfiles(t *testing.T) {
	tests := []struct {
		name     string
		profiles []*Profile
		validate func(t *testing.T, merged []*Profile)
	}{
		{
			name: "different files are kept and sorted",
			profiles: []*Profile{
				{FileName: "b.go", Mode: "set", Blocks: []ProfileBlock{{StartLine: 1, EndLine: 2, NumStmt: 1, Count: 1}}},
				{FileName: "a.go", Mode: "set", Blocks: []ProfileBlock{{StartLine: 5, EndLine: 7, NumStmt: 1, Count: 0}}},
			},
			validate: func(t *testing.T, merged []*Profile) {
				require.Len(t, merged, 2)
				assert.Equal(t, "a.go", merged[0].FileName)
				assert.Equal(t, "b.go", merged[1].FileName)
			},
		},
		{
			name: "set mode takes the max",
			profiles: []*Profile{
				{FileName: "main.go", Mode: "set", Blocks: []ProfileBlock{
					{StartLine: 10, StartCol: 13, EndLine: 12, EndCol: 2, NumStmt: 1, Count: 1},
					{StartLine: 14, StartCol: 15, EndLine: 16, EndCol: 2, NumStmt: 1, Count: 0},
				}},
				{FileName: "main.go", Mode: "set", Blocks: []ProfileBlock{
					{StartLine: 14, StartCol: 15, EndLine: 16, EndCol: 2, NumStmt: 1, Count: 1},
					{StartLine: 10, StartCol: 13, EndLine: 12, EndCol: 2, NumStmt: 1, Count: 1},
				}},
			},
			validate: func(t *testing.T, merged []*Profile) {
				require.Len(t, merged, 1)
				require.Len(t, merged[0].Blocks, 2)
				assert.Equal(t, 10, merged[0].Blocks[0].StartLine)
				assert.Equal(t, 1, merged[0].Blocks[0].Count)
				assert.Equal(t, 1, merged[0].Blocks[1].Count)
			},
		},
		{
			name: "count mode sums",
			profiles: []*Profile{
				{FileName: "main.go", Mode: "count", Blocks: []ProfileBlock{{StartLine: 1, EndLine: 3, NumStmt: 2, Count: 4}}},
				{FileName: "main.go", Mode: "count", Blocks: []ProfileBlock{{StartLine: 1, EndLine: 3, NumStmt: 2, Count: 3}}},
			},
			validate: func(t *testing.T, merged []*Profile) {
				require.Len(t, merged, 1)
				require.Len(t, merged[0].Blocks, 1)
				assert.Equal(t, 7, merged[0].Blocks[0].Count)
			},
		},
		{
			name: "atomic mode sums",
			profiles: []*Profile{
				{FileName: "main.go", Mode: "atomic", Blocks: []ProfileBlock{{StartLine: 1, EndLine: 3, NumStmt: 2, Count: 1}}},
				{FileName: "main.go", Mode: "atomic", Blocks: []ProfileBlock{{StartLine: 1, EndLine: 3, NumStmt: 2, Count: 1}}},
			},
			validate: func(t *testing.T, merged []*Profile) {
				assert.Equal(t, 2, merged[0].Blocks[0].Count)
			},
		},
		{
			name: "blocks sorted by position",
			profiles: []*Profile{
				{FileName: "main.go", Mode: "set", Blocks: []ProfileBlock{
					{StartLine: 20, StartCol: 1, EndLine: 21, NumStmt: 1},
					{StartLine: 5, StartCol: 9, EndLine: 6, NumStmt: 1},
					{StartLine: 5, StartCol: 2, EndLine: 5, EndCol: 8, NumStmt: 1},
				}},
			},
			validate: func(t *testing.T, merged []*Profile) {
				blocks := merged[0].Blocks
				require.Len(t, blocks, 3)
				assert.Equal(t, 2, blocks[0].StartCol)
				assert.Equal(t, 9, blocks[1].StartCol)
				assert.Equal(t, 20, blocks[2].StartLine)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			merged, err := MergeProfiles(tt.profiles)
			require.NoError(t, err)
			tt.validate(t, merged)
		})
	}
}

func TestMergeProfiles_Errors(t *testing.T) {
	_, err := MergeProfiles(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no profiles to merge")

	_, err = MergeProfiles([]*Profile{
		{FileName: "a.go", Mode: "set"},
		{FileName: "b.go", Mode: "count"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `has mode "count", expected "set"`)
}

func TestMergeProfiles_DoesNotMutateInput(t *testing.T) {
	first := &Profile{FileName: "a.go", Mode: "count", Blocks: []ProfileBlock{{StartLine: 1, EndLine: 2, Count: 2}}}
	second := &Profile{FileName: "a.go", Mode: "count", Blocks: []ProfileBlock{{StartLine: 1, EndLine: 2, Count: 3}}}

	merged, err := MergeProfiles([]*Profile{first, second})
	require.NoError(t, err)
	assert.Equal(t, 5, merged[0].Blocks[0].Count)
	assert.Equal(t, 2, first.Blocks[0].Count)
	assert.Equal(t, 3, second.Blocks[0].Count)
}
