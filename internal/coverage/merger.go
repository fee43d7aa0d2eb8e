package coverage

import (
	"fmt"
	"sort"
)

// blockKey identifies a coverage block by its position.
type blockKey struct {
	startLine, startCol int
	endLine, endCol     int
	numStmt             int
}

// MergeProfiles merges profiles from several test runs the way gocovmerge
// does: identical blocks are combined (max in set mode, sum in count and
// atomic mode) and the result is sorted by file name, then block position.
// All profiles must share the same mode.
func MergeProfiles(profiles []*Profile) ([]*Profile, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no profiles to merge")
	}

	mode := profiles[0].Mode
	for i, p := range profiles {
		if p.Mode != mode {
			return nil, fmt.Errorf("profile %d (%s) has mode %q, expected %q", i, p.FileName, p.Mode, mode)
		}
	}

	byFile := make(map[string]map[blockKey]ProfileBlock)
	for _, p := range profiles {
		blocks, ok := byFile[p.FileName]
		if !ok {
			blocks = make(map[blockKey]ProfileBlock)
			byFile[p.FileName] = blocks
		}
		for _, b := range p.Blocks {
			key := blockKey{b.StartLine, b.StartCol, b.EndLine, b.EndCol, b.NumStmt}
			if existing, ok := blocks[key]; ok {
				existing.Count = mergeCount(mode, existing.Count, b.Count)
				blocks[key] = existing
				continue
			}
			blocks[key] = b
		}
	}

	result := make([]*Profile, 0, len(byFile))
	for fileName, blocks := range byFile {
		merged := &Profile{
			FileName: fileName,
			Mode:     mode,
			Blocks:   make([]ProfileBlock, 0, len(blocks)),
		}
		for _, b := range blocks {
			merged.Blocks = append(merged.Blocks, b)
		}
		sort.Slice(merged.Blocks, func(i, j int) bool {
			a, b := merged.Blocks[i], merged.Blocks[j]
			if a.StartLine != b.StartLine {
				return a.StartLine < b.StartLine
			}
			return a.StartCol < b.StartCol
		})
		result = append(result, merged)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FileName < result[j].FileName
	})

	return result, nil
}

func mergeCount(mode string, a, b int) int {
	if mode == "set" {
		return max(a, b)
	}
	return a + b
}
