// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package citation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pdiddy/kbconvert/pkg/types"
)

// Mode selects what a resolved citation becomes.
type Mode string

const (
	// ModeLink replaces @key with a rendered hyperlink.
	ModeLink Mode = "link"

	// ModeRekey replaces @docKey with @masterKey and leaves the citation
	// for a later link pass.
	ModeRekey Mode = "rekey"
)

// ParseMode validates a mode name. The empty string selects ModeLink.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeLink:
		return ModeLink, nil
	case ModeRekey:
		return ModeRekey, nil
	default:
		return "", fmt.Errorf("unknown citation mode %q (want %q or %q)", s, ModeLink, ModeRekey)
	}
}

// Lookup resolves a cited key. *bibliography.LookupTable implements it.
type Lookup interface {
	Resolve(key string) (types.LookupEntry, bool)
}

// ResolvedPair records one citation that was rewritten in a line.
type ResolvedPair struct {
	Key         string
	Replacement string
}

// Result is the outcome of rewriting one line.
type Result struct {
	Line       string
	Resolved   []ResolvedPair
	Unresolved []string
	Warnings   []types.Warning
}

// Rewriter rewrites citation tokens line by line against a lookup table.
// It holds no per-line state and is safe for concurrent use when its
// Lookup is.
type Rewriter struct {
	lookup Lookup
	mode   Mode
}

// NewRewriter returns a Rewriter. An empty mode means ModeLink.
func NewRewriter(lookup Lookup, mode Mode) *Rewriter {
	if mode == "" {
		mode = ModeLink
	}
	return &Rewriter{lookup: lookup, mode: mode}
}

// Mode returns the rewriting mode.
func (r *Rewriter) Mode() Mode {
	return r.mode
}

// edit replaces line[start:end] with text.
type edit struct {
	start, end int
	text       string
}

// RewriteLine rewrites every resolvable token in line. A line is wholly a
// figure caption or wholly body text. In a caption only tokens inside the
// caption text are touched, and bracket groups in the caption that wrap a
// rewritten citation are removed. Unresolved tokens stay byte-identical.
func (r *Rewriter) RewriteLine(line string) Result {
	res := Result{Line: line}

	tokens := Scan(line)
	if len(tokens) == 0 {
		return res
	}

	var edits []edit
	var rewritten []Token
	for _, tok := range tokens {
		if tok.IsFigureCaption && !tok.InCaption {
			continue
		}

		entry, ok := r.lookup.Resolve(tok.Key)
		if !ok || entry.Match == nil {
			res.Unresolved = append(res.Unresolved, tok.Key)
			continue
		}

		e, warnings := r.replace(line, tok, entry)
		edits = append(edits, e)
		rewritten = append(rewritten, tok)
		res.Resolved = append(res.Resolved, ResolvedPair{Key: tok.Key, Replacement: e.text})
		res.Warnings = append(res.Warnings, warnings...)
	}

	if len(edits) == 0 {
		return res
	}
	if r.mode == ModeLink && tokens[0].IsFigureCaption {
		edits = append(edits, unbracketEdits(line, rewritten, edits)...)
	}
	res.Line = apply(line, edits)
	return res
}

// replace computes the edit for one resolved token.
func (r *Rewriter) replace(line string, tok Token, entry types.LookupEntry) (edit, []types.Warning) {
	if r.mode == ModeRekey {
		return edit{start: tok.Start + 1, end: tok.KeyEnd, text: entry.MasterKey}, nil
	}

	rendering := Render(*entry.Match, tok.InCaption)

	if tok.LinkText {
		// "[@key](url)": the token is already link text.
		if tok.InCaption {
			if end := linkEnd(line, tok.KeyEnd+1); end > 0 {
				return edit{start: tok.Start - 1, end: end, text: rendering.Text}, rendering.Warnings
			}
		}
		return edit{start: tok.Start, end: tok.KeyEnd, text: rendering.Label}, rendering.Warnings
	}

	return edit{start: tok.Start, end: tok.KeyEnd, text: rendering.Text}, rendering.Warnings
}

// unbracketEdits removes the brackets of caption groups "[...]" that
// contain a rewritten token. Groups already covered by an edit are left
// alone.
func unbracketEdits(line string, rewritten []Token, existing []edit) []edit {
	start, end, ok := CaptionSpan(line)
	if !ok {
		return nil
	}

	type group struct{ open, close int }
	var groups []group
	var stack []int
	for i := start; i < end; i++ {
		switch line[i] {
		case '[':
			stack = append(stack, i)
		case ']':
			if len(stack) > 0 {
				groups = append(groups, group{open: stack[len(stack)-1], close: i})
				stack = stack[:len(stack)-1]
			}
		}
	}

	covered := func(pos int) bool {
		for _, e := range existing {
			if pos >= e.start && pos < e.end {
				return true
			}
		}
		return false
	}

	var edits []edit
	for _, g := range groups {
		if covered(g.open) || covered(g.close) {
			continue
		}
		for _, tok := range rewritten {
			if tok.Start > g.open && tok.Start < g.close {
				edits = append(edits,
					edit{start: g.open, end: g.open + 1},
					edit{start: g.close, end: g.close + 1})
				break
			}
		}
	}
	return edits
}

// apply builds the output in a fresh buffer. Edits never overlap.
func apply(line string, edits []edit) string {
	sort.Slice(edits, func(i, j int) bool { return edits[i].start < edits[j].start })

	var b strings.Builder
	b.Grow(len(line) + 64*len(edits))
	pos := 0
	for _, e := range edits {
		b.WriteString(line[pos:e.start])
		b.WriteString(e.text)
		pos = e.end
	}
	b.WriteString(line[pos:])
	return b.String()
}
