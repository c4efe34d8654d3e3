// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"regexp"
	"strings"
)

var (
	htmlImage     = regexp.MustCompile(`<img\s[^>]*src="([^"]+)"[^>]*>`)
	underline     = strings.NewReplacer("<u>", "", "</u>", "")
	notionFigure  = regexp.MustCompile(`^\[(!\[[^\]]*\]\([^)]*\))\]\(%[^)]*\)`)
	numberedQuote = regexp.MustCompile(`^(\d+)\. `)
)

// CleanDOCX fixes Markdown produced from Word documents: "style=" residue
// lines are dropped, raw <img> tags become Markdown images, underline tags
// and quote markers are removed, and soft line breaks inside paragraphs
// are joined with a space.
func CleanDOCX(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = StripQuoteMarker(line)
		if strings.HasPrefix(line, "style=") {
			continue
		}
		if m := htmlImage.FindStringSubmatch(line); m != nil {
			line = "![''](" + m[1] + ")\n"
		}
		line = underline.Replace(line)
		if line != "\n" {
			line = strings.ReplaceAll(line, "\n", " ")
		}
		out = append(out, line)
	}
	return out
}

// CleanNotion fixes Markdown exported from Notion: quote markers are
// removed and linked figures "[![caption](img)](%...)" lose the outer
// link to the page anchor.
func CleanNotion(lines []string) []string {
	return mapLines(lines, func(line string) string {
		line = StripQuoteMarker(line)
		if m := notionFigure.FindStringSubmatchIndex(line); m != nil {
			return line[m[2]:m[3]] + line[m[1]:]
		}
		return line
	})
}

// QuotePlaceholder marks paragraphs that Google Docs indented; the gdocs
// HTML fixer inserts it and ReplaceQuotePlaceholders turns it into ">".
const QuotePlaceholder = "$QUOTETOBEREPLACED$"

// ReplaceQuotePlaceholders converts placeholders left by the Google Docs
// HTML fixer into Markdown block quotes. Quote markers that landed after
// a bullet or list number are moved in front of it, lines holding only a
// placeholder are dropped, and blank lines between two quoted lines are
// removed so the quote stays one block. Lines that end up as an empty
// quote (">") are dropped along with the blank line that follows.
func ReplaceQuotePlaceholders(lines []string) []string {
	var out []string
	pendingBlank := false
	for i, line := range lines {
		if line == "\n" {
			if pendingBlank && i+1 < len(lines) && strings.Contains(lines[i+1], QuotePlaceholder) {
				pendingBlank = false
				continue
			}
			pendingBlank = false
			out = append(out, line)
			continue
		}
		if !strings.Contains(line, QuotePlaceholder) {
			pendingBlank = false
			out = append(out, line)
			continue
		}

		pendingBlank = true
		if strings.TrimSpace(line) == QuotePlaceholder {
			continue
		}
		out = append(out, movePlaceholders(line))
	}
	return dropEmptyQuotes(out)
}

func movePlaceholders(line string) string {
	double := QuotePlaceholder + " " + QuotePlaceholder
	switch {
	case strings.HasPrefix(line, "- "):
		line = strings.Replace(line, "- "+double, "> > -", 1)
		line = strings.Replace(line, "- "+QuotePlaceholder, "> -", 1)
	case numberedQuote.MatchString(line):
		n := numberedQuote.FindStringSubmatch(line)[1]
		line = strings.Replace(line, n+". "+double, "> > "+n+".", 1)
		line = strings.Replace(line, n+". "+QuotePlaceholder, "> "+n+".", 1)
	}
	return strings.ReplaceAll(line, QuotePlaceholder, ">")
}

func dropEmptyQuotes(lines []string) []string {
	out := make([]string, 0, len(lines))
	dropped := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed != "" && strings.Trim(trimmed, "> ") == "" {
			dropped = true
			continue
		}
		if dropped && trimmed == "" {
			dropped = false
			continue
		}
		dropped = false
		out = append(out, line)
	}
	return out
}
