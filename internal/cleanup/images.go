// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pdiddy/kbconvert/internal/citation"
	"github.com/pdiddy/kbconvert/internal/workspace"
)

// ImageFinder resolves an image reference relative to a document
// directory. workspace.FindImage implements it.
type ImageFinder func(dir, ref string) (string, error)

// ImageFix records one rewritten image line.
type ImageFix struct {
	Line   int
	Before string
	After  string
}

// FixImageLinks rewrites figure lines whose target lives in one of
// folders ("figures/plot" from LaTeX, which has no extension) to the real
// file found by find, and cleans the caption so it renders as alt text.
// Lines whose image cannot be found are left unchanged.
func FixImageLinks(lines []string, dir string, folders []string, find ImageFinder) ([]string, []ImageFix) {
	out := make([]string, len(lines))
	var fixes []ImageFix
	for i, line := range lines {
		out[i] = line
		fixed, ok := fixImageLink(line, dir, folders, find)
		if ok && fixed != line {
			out[i] = fixed
			fixes = append(fixes, ImageFix{Line: i, Before: line, After: fixed})
		}
	}
	return out, fixes
}

func fixImageLink(line, dir string, folders []string, find ImageFinder) (string, bool) {
	start, end, ok := citation.CaptionSpan(line)
	if !ok || !strings.HasPrefix(line[end:], "](") {
		return line, false
	}
	targetStart := end + 2
	targetEnd := strings.IndexByte(line[targetStart:], ')')
	if targetEnd < 0 {
		return line, false
	}
	targetEnd += targetStart
	target := line[targetStart:targetEnd]

	inFolder := false
	for _, f := range folders {
		if strings.HasPrefix(target, strings.TrimSuffix(f, "/")+"/") {
			inFolder = true
			break
		}
	}
	if !inFolder {
		return line, false
	}

	resolved, err := find(dir, target)
	if err != nil {
		return line, false
	}
	caption := CleanCaption(line[start:end])
	return line[:start] + caption + "](" + filepath.ToSlash(resolved) + line[targetEnd:], true
}

var (
	wikiImage     = regexp.MustCompile(`!\[\[([^\]|]+)(?:\|[^\]]*)?\]\]`)
	markdownImage = regexp.MustCompile(`!\[[^\]]*\]\(\s*<?([^)\s>]+)>?(?:\s+"[^"]*")?\s*\)`)
)

// ImageRefs returns the image paths referenced on a line, both Obsidian
// embeds "![[x.png]]" and Markdown images "![](dir/x.png)". URL-encoded
// spaces are decoded.
func ImageRefs(line string) []string {
	line = StripQuoteMarker(line)
	var refs []string
	for _, m := range wikiImage.FindAllStringSubmatch(line, -1) {
		refs = append(refs, strings.ReplaceAll(m[1], "%20", " "))
	}
	for _, m := range markdownImage.FindAllStringSubmatch(line, -1) {
		refs = append(refs, strings.ReplaceAll(m[1], "%20", " "))
	}
	return refs
}

// UnusedImages lists image files under root that no Markdown file under
// root references. Images are matched by base name, as knowledge-base
// tools resolve embeds by name. A file counts as referenced when its
// base name appears anywhere in a Markdown file, which also covers
// references ImageRefs does not parse.
func UnusedImages(root string) ([]string, error) {
	mdFiles, err := workspace.FindFiles(root, true, ".md")
	if err != nil {
		return nil, err
	}
	imgFiles, err := workspace.FindFiles(root, true, workspace.ImageExtensions...)
	if err != nil {
		return nil, err
	}

	referenced := make(map[string]bool)
	var corpus strings.Builder
	for _, md := range mdFiles {
		text, _, err := workspace.ReadText(md)
		if err != nil {
			return nil, err
		}
		corpus.WriteString(text)
		for _, line := range citation.SplitLines(text) {
			for _, ref := range ImageRefs(line) {
				referenced[filepath.Base(ref)] = true
			}
		}
	}
	all := corpus.String()

	var unused []string
	for _, img := range imgFiles {
		base := filepath.Base(img)
		if referenced[base] {
			continue
		}
		if strings.Contains(all, base) || strings.Contains(all, strings.ReplaceAll(base, " ", "%20")) {
			continue
		}
		unused = append(unused, img)
	}
	return unused, nil
}

// MoveImages moves files into dest, creating it. Name clashes in dest
// are an error so nothing is overwritten.
func MoveImages(files []string, dest string) ([]string, error) {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dest, err)
	}
	moved := make([]string, 0, len(files))
	for _, f := range files {
		target := filepath.Join(dest, filepath.Base(f))
		if _, err := os.Stat(target); err == nil {
			return moved, fmt.Errorf("moving %s: %s already exists", f, target)
		}
		if err := os.Rename(f, target); err != nil {
			return moved, fmt.Errorf("moving %s: %w", f, err)
		}
		moved = append(moved, target)
	}
	return moved, nil
}
