package localdiff

import (
	"strings"
	"testing"

	"github.com/qreviewer/qrev/internal/hunks"
)

const sampleDiff = `diff --git a/greet.go b/greet.go
index 1234567..89abcde 100644
--- a/greet.go
+++ b/greet.go
@@ -1,5 +1,6 @@
 package main

+import "fmt"
+
 func greet() {
-	println("hi")
 }
diff --git a/removed.go b/removed.go
deleted file mode 100644
index 1234567..0000000
--- a/removed.go
+++ /dev/null
@@ -1,1 +0,0 @@
-package gone
`

func TestParse(t *testing.T) {
	doc, err := Parse(sampleDiff)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if doc.PR.URL != "local" {
		t.Errorf("PR.URL = %q, want local", doc.PR.URL)
	}
	if len(doc.Files) != 2 {
		t.Fatalf("len(Files) = %d, want 2", len(doc.Files))
	}

	f := doc.Files[0]
	if f.Path != "greet.go" || f.Status != "modified" {
		t.Errorf("Files[0] = %s (%s)", f.Path, f.Status)
	}
	if f.Additions != 2 || f.Deletions != 1 {
		t.Errorf("Additions/Deletions = %d/%d, want 2/1", f.Additions, f.Deletions)
	}
	if !strings.HasPrefix(f.Patch, "@@ -1,5 +1,6 @@") {
		t.Errorf("Patch does not start with hunk header: %q", f.Patch)
	}
	if strings.Contains(f.Patch, "diff --git") || strings.Contains(f.Patch, "+++") {
		t.Errorf("Patch carries file headers: %q", f.Patch)
	}

	if doc.Files[1].Status != "removed" {
		t.Errorf("Files[1].Status = %q, want removed", doc.Files[1].Status)
	}
}

func TestParse_OutputFeedsHunkExtraction(t *testing.T) {
	doc, err := Parse(sampleDiff)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	extracted := hunks.Extract(doc.Files)
	for _, fh := range extracted {
		if fh.Err != nil {
			t.Errorf("%s: extraction failed: %v", fh.Path, fh.Err)
		}
	}
	all := hunks.Flatten(extracted)
	if len(all) != 2 {
		t.Fatalf("len(hunks) = %d, want 2", len(all))
	}
	h := all[0]
	if h.OldStart != 1 || h.OldLines != 5 || h.NewStart != 1 || h.NewLines != 6 {
		t.Errorf("hunk = -%d,%d +%d,%d, want -1,5 +1,6", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
	}
}

func TestParse_EmptyDiff(t *testing.T) {
	doc, err := Parse("")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(doc.Files) != 0 {
		t.Errorf("len(Files) = %d, want 0", len(doc.Files))
	}
}

func TestFileStatus(t *testing.T) {
	newFile := `diff --git a/new.go b/new.go
new file mode 100644
index 0000000..1234567
--- /dev/null
+++ b/new.go
@@ -0,0 +1,1 @@
+package fresh
`
	doc, err := Parse(newFile)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if len(doc.Files) != 1 || doc.Files[0].Status != "added" {
		t.Errorf("Files = %+v, want one added file", doc.Files)
	}
}
