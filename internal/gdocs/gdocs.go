// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gdocs prepares Google Docs HTML exports for Markdown import.
//
// Google Docs expresses highlight, italic, bold and indentation through
// generated CSS classes (".c12{background-color:#ffff00}") that Markdown
// importers ignore. Fix resolves those classes and writes the styling into
// the text itself: "==highlight==", "_italic_", "**bold**", and a quote
// placeholder in front of indented paragraphs that the Markdown cleanup
// later turns into ">".
package gdocs

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/pdiddy/kbconvert/internal/cleanup"
)

// Style markers written around styled span text, innermost first.
const (
	MarkHighlight = "=="
	MarkItalic    = "_"
	MarkBold      = "**"
)

// Report counts the fixes applied to one document.
type Report struct {
	Highlighted int
	Italic      int
	Bold        int
	Quotes      int
}

// Total returns the number of fixes.
func (r Report) Total() int {
	return r.Highlighted + r.Italic + r.Bold + r.Quotes
}

// classStyle is what a CSS class contributes.
type classStyle struct {
	highlight bool
	italic    bool
	bold      bool
	indent    int // quote depth from margin-left (36pt per level)
}

var cssRule = regexp.MustCompile(`\.([A-Za-z_][\w-]*)\{([^}]*)\}`)

// parseStyles extracts the single-class rules from a stylesheet.
func parseStyles(css string) map[string]classStyle {
	styles := make(map[string]classStyle)
	for _, m := range cssRule.FindAllStringSubmatch(css, -1) {
		var st classStyle
		for _, decl := range strings.Split(m[2], ";") {
			name, value, ok := strings.Cut(decl, ":")
			if !ok {
				continue
			}
			name = strings.TrimSpace(strings.ToLower(name))
			value = strings.TrimSpace(strings.ToLower(value))
			switch name {
			case "background-color":
				st.highlight = !isWhite(value)
			case "font-style":
				st.italic = value == "italic"
			case "font-weight":
				st.bold = value == "700" || value == "bold"
			case "margin-left":
				switch value {
				case "36pt":
					st.indent = 1
				case "72pt":
					st.indent = 2
				}
			}
		}
		if st != (classStyle{}) {
			styles[m[1]] = st
		}
	}
	return styles
}

func isWhite(color string) bool {
	switch color {
	case "#ffffff", "#fff", "white", "transparent", "inherit", "":
		return true
	}
	return false
}

// combined merges the styles of every class on an element.
func combined(styles map[string]classStyle, class string) classStyle {
	var out classStyle
	for _, c := range strings.Fields(class) {
		st, ok := styles[c]
		if !ok {
			continue
		}
		out.highlight = out.highlight || st.highlight
		out.italic = out.italic || st.italic
		out.bold = out.bold || st.bold
		if st.indent > out.indent {
			out.indent = st.indent
		}
	}
	return out
}

var quoteReplacer = strings.NewReplacer("\u201c", `"`, "\u201d", `"`, "\u00a0", " ")

// Fix rewrites a Google Docs HTML export and returns the new HTML.
func Fix(r io.Reader) (string, Report, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", Report{}, fmt.Errorf("parsing HTML: %w", err)
	}

	var css strings.Builder
	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		css.WriteString(s.Text())
	})
	styles := parseStyles(css.String())

	var rep Report
	doc.Find("span[class]").Each(func(_ int, s *goquery.Selection) {
		st := combined(styles, s.AttrOr("class", ""))
		if !st.highlight && !st.italic && !st.bold {
			return
		}
		if s.Find("a").Length() > 0 || s.Children().Length() > 0 {
			return
		}
		text := quoteReplacer.Replace(s.Text())
		core := strings.TrimSpace(text)
		if core == "" {
			return
		}
		lead := text[:strings.Index(text, core)]
		trail := text[len(lead)+len(core):]

		if st.highlight {
			core = MarkHighlight + core + MarkHighlight
			rep.Highlighted++
		}
		if st.italic {
			core = MarkItalic + core + MarkItalic
			rep.Italic++
		}
		if st.bold {
			core = MarkBold + core + MarkBold
			rep.Bold++
		}
		s.SetText(lead + core + trail)
	})

	doc.Find("p[class], li[class]").Each(func(_ int, s *goquery.Selection) {
		st := combined(styles, s.AttrOr("class", ""))
		if st.indent == 0 || strings.TrimSpace(s.Text()) == "" {
			return
		}
		s.PrependHtml(strings.Repeat(cleanup.QuotePlaceholder+" ", st.indent))
		rep.Quotes++
	})

	out, err := doc.Html()
	if err != nil {
		return "", Report{}, fmt.Errorf("rendering HTML: %w", err)
	}
	return out, rep, nil
}
