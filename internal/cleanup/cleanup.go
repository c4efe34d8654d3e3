// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cleanup holds the line-level Markdown and LaTeX fixes applied
// around conversion: quote markers, comment lines, width attributes,
// bracketed citation groups, caption links and doubled styling markers.
//
// Every function takes lines that keep their "\n" terminators and returns
// new lines. Inputs are never modified.
package cleanup

import (
	"regexp"
	"strings"

	"github.com/pdiddy/kbconvert/internal/citation"
)

// Func is one cleanup step.
type Func func(lines []string) []string

// Chain runs steps in order.
func Chain(steps ...Func) Func {
	return func(lines []string) []string {
		for _, step := range steps {
			lines = step(lines)
		}
		return lines
	}
}

// mapLines applies f to every line.
func mapLines(lines []string, f func(string) string) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = f(l)
	}
	return out
}

// StripQuoteMarker removes leading "> " block-quote markers from a line.
func StripQuoteMarker(line string) string {
	rest := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(rest, ">") {
		return line
	}
	for strings.HasPrefix(rest, ">") {
		rest = strings.TrimLeft(rest[1:], " ")
	}
	return rest
}

// StripQuoteMarkers removes block-quote markers from every line.
func StripQuoteMarkers(lines []string) []string {
	return mapLines(lines, StripQuoteMarker)
}

// RemoveCommentLines drops LaTeX comment lines. A trailing "%" before the
// newline (which LyX emits) is removed; lines with escaped or
// command-related percent signs are kept.
func RemoveCommentLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		switch {
		case strings.HasPrefix(strings.TrimLeft(line, " \t"), "%"):
			continue
		case strings.HasSuffix(line, "%\n") && !strings.HasSuffix(line, `\%`+"\n"):
			out = append(out, strings.TrimSuffix(line, "%\n")+"\n")
		default:
			out = append(out, line)
		}
	}
	return out
}

var widthAttr = regexp.MustCompile(`\{width="[0-9.]*\\(?:columnwidth|textwidth|linewidth)"\}`)

// RemoveWidthAttributes drops pandoc image size attributes such as
// {width="0.8\columnwidth"} that knowledge-base viewers print verbatim.
func RemoveWidthAttributes(lines []string) []string {
	return mapLines(lines, func(l string) string {
		return widthAttr.ReplaceAllString(l, "")
	})
}

// UnbracketCitations turns pandoc citation groups "[@a; @b]" into
// "@a; @b" in body lines. Markdown links "[@a](url)" and figure captions
// are left alone.
func UnbracketCitations(lines []string) []string {
	return mapLines(lines, func(line string) string {
		if citation.IsCaptionLine(line) || !strings.Contains(line, "[@") {
			return line
		}
		var b strings.Builder
		pos := 0
		for {
			open := strings.Index(line[pos:], "[@")
			if open < 0 {
				break
			}
			open += pos
			end := strings.IndexByte(line[open:], ']')
			if end < 0 {
				break
			}
			end += open
			if inner := line[open+1 : end]; strings.ContainsRune(inner, '[') ||
				strings.HasPrefix(line[end+1:], "(") {
				b.WriteString(line[pos : open+2])
				pos = open + 2
				continue
			}
			b.WriteString(line[pos:open])
			b.WriteString(line[open+1 : end])
			pos = end + 1
		}
		b.WriteString(line[pos:])
		return b.String()
	})
}

var captionLink = regexp.MustCompile(`\[([^\[\]]+)\]\(([^()\s]+)\)`)

// FixCaptionLink rewrites a single Markdown link inside a caption to the
// caption-safe "name||url" form. Captions with several links are left as
// they are.
func FixCaptionLink(caption string) string {
	if len(captionLink.FindAllStringIndex(caption, 2)) != 1 {
		return caption
	}
	return captionLink.ReplaceAllString(caption, "$1||$2")
}

var captionStyling = strings.NewReplacer("**", "", "__", "", "*", "", "[", "", "]", "")

// StripCaptionStyling removes emphasis markers and brackets, which break
// image rendering when they appear in alt text.
func StripCaptionStyling(caption string) string {
	return captionStyling.Replace(caption)
}

// CleanCaption applies FixCaptionLink then StripCaptionStyling.
func CleanCaption(caption string) string {
	return StripCaptionStyling(FixCaptionLink(caption))
}

// styleFixes are applied in order. The first group collapses doubled
// markers left by adjacent styled spans; the second removes orphan
// markers around whitespace.
var styleFixes = []struct{ from, to string }{
	{"****", "**"},
	{"***", "**"},
	{"====", "=="},
	{"===", "=="},
	{"**== **", ""},
	{"** **", ""},
	{"==**==", ""},
	{"==** ==**", ""},
	{"**==** ==", " "},
	{"**_**", " "},
	{"*_**_*", " "},
}

// DedupeStyling collapses repeated bold and highlight markers.
func DedupeStyling(lines []string) []string {
	return mapLines(lines, func(l string) string {
		for _, f := range styleFixes {
			l = strings.ReplaceAll(l, f.from, f.to)
		}
		return l
	})
}
