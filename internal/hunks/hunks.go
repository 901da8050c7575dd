package hunks

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/qreviewer/qrev/internal/model"
)

// LineOp tags a hunk line as context, addition, or removal.
type LineOp int

const (
	OpContext LineOp = iota
	OpAdd
	OpDelete
	// OpMeta marks non-diff lines inside a hunk, such as the
	// "\ No newline at end of file" note. Meta lines advance neither
	// line counter.
	OpMeta
)

func (op LineOp) String() string {
	switch op {
	case OpContext:
		return "context"
	case OpAdd:
		return "add"
	case OpDelete:
		return "delete"
	case OpMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// Line is a single entry of a hunk with its resolved line numbers.
// OldLine is zero for additions; NewLine is zero for removals.
type Line struct {
	Op      LineOp
	Content string
	OldLine int
	NewLine int
}

// Hunk is one contiguous changed region of a file. Hunks are immutable
// once produced by Split; callers must not modify Lines.
type Hunk struct {
	FilePath string
	Status   string
	// Header is the full @@ line, including any trailing section heading.
	Header   string
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	// StartLine and EndLine are the new-side line range, used as the
	// default location hint for findings.
	StartLine int
	EndLine   int
	Language  string
	Lines     []Line

	text string
}

// Text returns the hunk's exact source text, header line included.
// Concatenating Text over a file's hunks reproduces the file patch.
func (h *Hunk) Text() string { return h.text }

// Body returns the hunk content without the header line.
func (h *Hunk) Body() string {
	if i := strings.IndexByte(h.text, '\n'); i >= 0 {
		return h.text[i+1:]
	}
	return ""
}

// Ref renders a short file@header reference for diagnostics.
func (h *Hunk) Ref() string {
	return fmt.Sprintf("%s %s", h.FilePath, h.Header)
}

// MalformedDiffError reports an unparseable hunk header. It is scoped to a
// single file; extraction of other files continues.
type MalformedDiffError struct {
	Path   string
	Header string
}

func (e *MalformedDiffError) Error() string {
	return fmt.Sprintf("malformed hunk header in %s: %q", e.Path, e.Header)
}

// FileHunks is the extraction result for one file. Err is non-nil when the
// file's patch had an unparseable header; Hunks is then empty.
type FileHunks struct {
	Path   string
	Status string
	Hunks  []*Hunk
	Err    error
}

// headerPattern matches @@ -oldStart[,oldLines] +newStart[,newLines] @@.
// A missing count defaults to 1.
var headerPattern = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Extract splits every file's patch into hunks. Files without patch text
// (binary, rename-only) are reported with zero hunks and no error. A
// malformed patch fails only its own file entry.
func Extract(files []model.FilePatch) []FileHunks {
	out := make([]FileHunks, 0, len(files))
	for _, f := range files {
		fh := FileHunks{Path: f.Path, Status: f.Status}
		if f.Patch != "" {
			hs, err := Split(f.Patch, f.Path, f.Status)
			if err != nil {
				fh.Err = err
			} else {
				fh.Hunks = hs
			}
		}
		out = append(out, fh)
	}
	return out
}

// Flatten collects the hunks of all successfully extracted files in input
// order.
func Flatten(files []FileHunks) []*Hunk {
	var all []*Hunk
	for _, fh := range files {
		all = append(all, fh.Hunks...)
	}
	return all
}

// Split parses one file's patch text into ordered hunks. It returns a
// *MalformedDiffError if any @@ line fails to parse or if non-header text
// precedes the first header.
func Split(patch, path, status string) ([]*Hunk, error) {
	var (
		hunks   []*Hunk
		cur     *Hunk
		nextOld int
		nextNew int
	)
	lang := inferLanguage(path)

	for rest := patch; rest != ""; {
		raw := rest
		line := rest
		if i := strings.IndexByte(rest, '\n'); i >= 0 {
			raw = rest[:i+1]
			line = rest[:i]
			rest = rest[i+1:]
		} else {
			rest = ""
		}

		if strings.HasPrefix(line, "@@") {
			h, err := parseHeader(line, path)
			if err != nil {
				return nil, err
			}
			h.FilePath = path
			h.Status = status
			h.Language = lang
			h.text = raw
			hunks = append(hunks, h)
			cur = h
			nextOld = h.OldStart
			nextNew = h.NewStart
			continue
		}
		if cur == nil {
			return nil, &MalformedDiffError{Path: path, Header: line}
		}

		cur.text += raw
		var entry Line
		switch {
		case strings.HasPrefix(line, "+"):
			entry = Line{Op: OpAdd, Content: line[1:], NewLine: nextNew}
			nextNew++
		case strings.HasPrefix(line, "-"):
			entry = Line{Op: OpDelete, Content: line[1:], OldLine: nextOld}
			nextOld++
		case strings.HasPrefix(line, `\`):
			entry = Line{Op: OpMeta, Content: strings.TrimPrefix(line[1:], " ")}
		case strings.HasPrefix(line, " "):
			entry = Line{Op: OpContext, Content: line[1:], OldLine: nextOld, NewLine: nextNew}
			nextOld++
			nextNew++
		default:
			// Some transports strip the leading space from blank
			// context lines.
			entry = Line{Op: OpContext, Content: line, OldLine: nextOld, NewLine: nextNew}
			nextOld++
			nextNew++
		}
		cur.Lines = append(cur.Lines, entry)
	}

	return hunks, nil
}

// Reassemble concatenates hunk texts back into the original file patch.
func Reassemble(hunks []*Hunk) string {
	var b strings.Builder
	for _, h := range hunks {
		b.WriteString(h.text)
	}
	return b.String()
}

func parseHeader(line, path string) (*Hunk, error) {
	m := headerPattern.FindStringSubmatch(line)
	if m == nil {
		return nil, &MalformedDiffError{Path: path, Header: line}
	}
	oldStart, _ := strconv.Atoi(m[1])
	newStart, _ := strconv.Atoi(m[3])
	oldLines := 1
	if m[2] != "" {
		oldLines, _ = strconv.Atoi(m[2])
	}
	newLines := 1
	if m[4] != "" {
		newLines, _ = strconv.Atoi(m[4])
	}

	endLine := newStart
	if newLines > 0 {
		endLine = newStart + newLines - 1
	}
	return &Hunk{
		Header:    line,
		OldStart:  oldStart,
		OldLines:  oldLines,
		NewStart:  newStart,
		NewLines:  newLines,
		StartLine: newStart,
		EndLine:   endLine,
	}, nil
}

// languageByExt maps file extensions to language names for prompt hints.
var languageByExt = map[string]string{
	".go":   "go",
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".kt":   "kotlin",
	".c":    "c",
	".h":    "c",
	".cc":   "cpp",
	".cpp":  "cpp",
	".hpp":  "cpp",
	".rs":   "rust",
	".rb":   "ruby",
	".php":  "php",
	".sh":   "bash",
	".bash": "bash",
	".html": "html",
	".css":  "css",
	".scss": "scss",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".toml": "toml",
	".sql":  "sql",
	".md":   "markdown",
}

func inferLanguage(path string) string {
	lower := strings.ToLower(path)
	if i := strings.LastIndexByte(lower, '.'); i >= 0 {
		return languageByExt[lower[i:]]
	}
	return ""
}
