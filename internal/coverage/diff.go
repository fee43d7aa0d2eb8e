package coverage

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	diffHeaderRe = regexp.MustCompile(`^diff --git a/(.+) b/(.+)$`)
	hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)
)

// FileDiff represents the changes to a single file in a diff.
type FileDiff struct {
	// OldName is the path before the change, without the a/ prefix.
	OldName string
	// NewName is the path after the change, without the b/ prefix.
	NewName string
	// AddedLines holds the new-file line numbers of added lines, ascending.
	AddedLines []int
	IsBinary   bool
	IsNew      bool
	IsRenamed  bool
	IsDeleted  bool
}

// ParseDiff parses `git diff` output (with a/ and b/ prefixes) and returns
// the files it touches along with their added lines.
// Empty input is a valid diff with no files.
func ParseDiff(diffData []byte) ([]*FileDiff, error) {
	if len(bytes.TrimSpace(diffData)) == 0 {
		return nil, nil
	}

	scanner := bufio.NewScanner(bytes.NewReader(diffData))
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	var (
		fileDiffs []*FileDiff
		current   *FileDiff
		inHunk    bool
		newLine   int
	)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.HasPrefix(line, "diff --git ") {
			inHunk = false
			oldName, newName, ok := parseDiffGitHeader(line)
			if !ok {
				// Unknown header form: drop its hunks rather than charge them to the previous file.
				current = nil
				continue
			}
			current = &FileDiff{OldName: oldName, NewName: newName}
			fileDiffs = append(fileDiffs, current)
			continue
		}

		if current == nil {
			continue
		}

		if m := hunkHeaderRe.FindStringSubmatch(line); m != nil {
			start, err := strconv.Atoi(m[3])
			if err != nil {
				return nil, fmt.Errorf("invalid hunk header %q: %w", line, err)
			}
			newLine = start
			inHunk = true
			continue
		}

		if !inHunk {
			parseExtendedHeader(current, line)
			continue
		}

		if line == "" {
			// Some tools strip the leading space from blank context lines.
			newLine++
			continue
		}

		switch line[0] {
		case '+':
			current.AddedLines = append(current.AddedLines, newLine)
			newLine++
		case ' ':
			newLine++
		case '-', '\\':
			// Removed lines and "\ No newline at end of file" do not advance the new file.
		default:
			inHunk = false
			parseExtendedHeader(current, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading diff: %w", err)
	}

	return fileDiffs, nil
}

// parseDiffGitHeader returns the old and new paths of a `diff --git` line.
// Paths git C-quotes (non-ASCII or special characters) are decoded.
func parseDiffGitHeader(line string) (oldName, newName string, ok bool) {
	rest := strings.TrimPrefix(line, "diff --git ")

	switch {
	case strings.HasPrefix(rest, `"`):
		quoted, remaining, found := cutQuoted(rest)
		if !found {
			return "", "", false
		}
		oldName = quoted
		newName = unquotePath(strings.TrimPrefix(remaining, " "))
	case strings.HasSuffix(rest, `"`):
		idx := strings.LastIndex(rest, ` "`)
		if idx < 0 {
			return "", "", false
		}
		oldName = rest[:idx]
		newName = unquotePath(rest[idx+1:])
	default:
		m := diffHeaderRe.FindStringSubmatch(line)
		if m == nil {
			return "", "", false
		}
		return m[1], m[2], true
	}

	if !strings.HasPrefix(oldName, "a/") || !strings.HasPrefix(newName, "b/") {
		return "", "", false
	}
	return oldName[2:], newName[2:], true
}

// cutQuoted decodes the C-quoted string at the start of s and returns it with
// the text after the closing quote.
func cutQuoted(s string) (unquoted, rest string, ok bool) {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			u, err := strconv.Unquote(s[:i+1])
			if err != nil {
				return "", "", false
			}
			return u, s[i+1:], true
		}
	}
	return "", "", false
}

// unquotePath decodes a C-quoted path. Unquoted paths are returned as is.
func unquotePath(s string) string {
	if !strings.HasPrefix(s, `"`) {
		return s
	}
	if u, rest, ok := cutQuoted(s); ok && rest == "" {
		return u
	}
	return s
}

// headerPath returns the decoded path of a `---` or `+++` line. Git appends
// a tab to paths containing spaces.
func headerPath(line string) string {
	return unquotePath(strings.TrimSuffix(line[4:], "\t"))
}

// parseExtendedHeader applies a header line between `diff --git` and the first hunk.
func parseExtendedHeader(fd *FileDiff, line string) {
	switch {
	case strings.HasPrefix(line, "new file mode"):
		fd.IsNew = true
	case strings.HasPrefix(line, "deleted file mode"):
		fd.IsDeleted = true
	case strings.HasPrefix(line, "rename from "):
		fd.IsRenamed = true
		fd.OldName = unquotePath(strings.TrimPrefix(line, "rename from "))
	case strings.HasPrefix(line, "rename to "):
		fd.IsRenamed = true
		fd.NewName = unquotePath(strings.TrimPrefix(line, "rename to "))
	case strings.HasPrefix(line, "Binary files ") && strings.HasSuffix(line, " differ"):
		fd.IsBinary = true
	case line == "--- /dev/null":
		fd.IsNew = true
	case strings.HasPrefix(line, "--- "):
		if name, ok := strings.CutPrefix(headerPath(line), "a/"); ok {
			fd.OldName = name
		}
	case line == "+++ /dev/null":
		fd.IsDeleted = true
	case strings.HasPrefix(line, "+++ "):
		if name, ok := strings.CutPrefix(headerPath(line), "b/"); ok {
			fd.NewName = name
		}
	}
}

// AddedLines returns Go file paths mapped to their added lines.
// Binary and deleted files, files without additions and paths rejected by
// filter are left out. A nil filter accepts every path.
func AddedLines(fileDiffs []*FileDiff, filter *PathFilter) map[string][]int {
	result := make(map[string][]int)

	for _, fd := range fileDiffs {
		if fd.IsBinary || fd.IsDeleted || len(fd.AddedLines) == 0 {
			continue
		}
		if !strings.HasSuffix(fd.NewName, ".go") {
			continue
		}
		if filter != nil && !filter.Match(fd.NewName) {
			continue
		}
		// The same file can appear more than once in a combined diff.
		result[fd.NewName] = mergeLines(result[fd.NewName], fd.AddedLines)
	}

	return result
}

// mergeLines returns the sorted union of two ascending line lists.
func mergeLines(a, b []int) []int {
	if len(a) == 0 {
		return append([]int(nil), b...)
	}
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			out = append(out, a[i])
			i++
		case i >= len(a) || b[j] < a[i]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}
