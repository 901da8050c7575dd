// Package localdiff turns git diff output into the same diff document the
// GitHub fetcher produces, so local changes can be reviewed without a PR.
package localdiff

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"

	"github.com/qreviewer/qrev/internal/model"
)

// Parse reads a unified diff string and returns a diff document whose
// per-file patches match the GitHub API patch format: hunk headers and
// hunk bodies, no file headers. Binary files are skipped.
func Parse(raw string) (model.PRDiff, error) {
	parsed, _, err := gitdiff.Parse(strings.NewReader(raw))
	if err != nil {
		return model.PRDiff{}, fmt.Errorf("parsing diff: %w", err)
	}

	doc := model.PRDiff{PR: model.PRInfo{URL: "local"}}
	for _, f := range parsed {
		if f.IsBinary {
			continue
		}

		fp := model.FilePatch{
			Path:   fileName(f),
			Status: fileStatus(f),
		}

		var b strings.Builder
		for _, frag := range f.TextFragments {
			b.WriteString(frag.Header())
			b.WriteString("\n")
			for _, line := range frag.Lines {
				b.WriteString(line.Op.String())
				b.WriteString(line.Line)
				if !strings.HasSuffix(line.Line, "\n") {
					b.WriteString("\n")
				}
				switch line.Op {
				case gitdiff.OpAdd:
					fp.Additions++
				case gitdiff.OpDelete:
					fp.Deletions++
				}
			}
		}
		fp.Patch = strings.TrimSuffix(b.String(), "\n")

		doc.Files = append(doc.Files, fp)
	}

	return doc, nil
}

func fileName(f *gitdiff.File) string {
	if f.NewName != "" {
		return f.NewName
	}
	return f.OldName
}

func fileStatus(f *gitdiff.File) string {
	switch {
	case f.IsNew:
		return "added"
	case f.IsDelete:
		return "removed"
	case f.IsRename:
		return "renamed"
	default:
		return "modified"
	}
}

// GitDiff runs git diff in repoDir with the given arguments and returns
// the raw unified diff text.
func GitDiff(repoDir string, args ...string) (string, error) {
	cmdArgs := append([]string{"diff"}, args...)
	cmd := exec.Command("git", cmdArgs...)
	cmd.Dir = repoDir
	cmd.Stderr = os.Stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git diff: %w", err)
	}
	return string(out), nil
}

// GitDiffRange returns the diff for a commit range such as "main...HEAD".
// An empty range diffs the working tree against HEAD.
func GitDiffRange(repoDir, commitRange string) (string, error) {
	if commitRange == "" {
		return GitDiff(repoDir, "HEAD")
	}
	return GitDiff(repoDir, commitRange)
}
