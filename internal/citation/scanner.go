// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package citation finds @key citation tokens in Markdown lines and
// rewrites them into hyperlinks using a bibliography lookup table.
//
// A line is either body text or a figure caption (a line whose content
// starts with "![" once leading whitespace and quote markers are removed).
// Captions get the caption-safe form "(Label||url)" because the downstream
// renderer cannot display nested Markdown links; body text gets
// "[Label](url)". Scanning always runs on the original line and the output
// is assembled into a fresh buffer, so replacement text is never scanned
// again.
package citation

import "strings"

// Sigil marks the start of a citation key.
const Sigil = '@'

// captionPrefix opens a Markdown image whose alt text is the caption.
const captionPrefix = "!["

// Token is one citation found in a line. Offsets are byte positions in
// the original line.
type Token struct {
	// Raw is the source text from the sigil up to the next whitespace,
	// trailing punctuation included.
	Raw string

	// Key is the citation key without sigil or terminator.
	Key string

	// Trailing is the text after the key up to the next whitespace. It is
	// kept verbatim when the token is replaced.
	Trailing string

	// IsFigureCaption is true when the whole line is a figure caption.
	IsFigureCaption bool

	// InCaption is true when the token sits inside the caption text
	// between "![" and the closing "]".
	InCaption bool

	// LinkText is true when the token is already the text of a Markdown
	// link, as in "[@key](url)".
	LinkText bool

	Start  int // index of the sigil
	KeyEnd int // index just past the key
	End    int // index just past Trailing
}

// isKeyTerminator reports whether c ends a citation key. The first
// terminator wins, so keys never contain these characters.
func isKeyTerminator(c byte) bool {
	switch c {
	case ')', ';', ',', '.', '?', ':', ']', '\n', '\r':
		return true
	}
	return isSpace(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

// opensToken reports whether a sigil following c starts a citation.
// Sigils inside words (user@example.com) do not.
func opensToken(c byte) bool {
	return isSpace(c) || c == '(' || c == '['
}

// captionStart returns the index of "![" when the line is a figure
// caption, or -1. Leading whitespace and ">" quote markers are skipped.
func captionStart(line string) int {
	i := 0
	for i < len(line) && (isSpace(line[i]) || line[i] == '>') {
		i++
	}
	if strings.HasPrefix(line[i:], captionPrefix) {
		return i
	}
	return -1
}

// IsCaptionLine reports whether the line is a figure caption.
func IsCaptionLine(line string) bool {
	return captionStart(line) >= 0
}

// CaptionSpan returns the byte range [start, end) of the caption text of
// a figure line: everything between "![" and the bracket-balanced "]".
// ok is false for lines that are not captions. An unterminated caption
// runs to the end of the line.
func CaptionSpan(line string) (start, end int, ok bool) {
	p := captionStart(line)
	if p < 0 {
		return 0, 0, false
	}
	start = p + len(captionPrefix)
	depth := 0
	for i := start; i < len(line); i++ {
		switch line[i] {
		case '[':
			depth++
		case ']':
			if depth == 0 {
				return start, i, true
			}
			depth--
		}
	}
	return start, len(strings.TrimRight(line, "\r\n")), true
}

// Scan returns the citation tokens in line in order of appearance. It
// returns nil when the line holds no sigil and never modifies the line.
func Scan(line string) []Token {
	if strings.IndexByte(line, Sigil) < 0 {
		return nil
	}

	capStart, capEnd, isCaption := CaptionSpan(line)

	var tokens []Token
	for i := 0; i < len(line); i++ {
		if line[i] != Sigil {
			continue
		}
		if i > 0 && !opensToken(line[i-1]) {
			continue
		}

		keyEnd := i + 1
		for keyEnd < len(line) && !isKeyTerminator(line[keyEnd]) && line[keyEnd] != Sigil {
			keyEnd++
		}
		if keyEnd == i+1 {
			continue
		}

		end := keyEnd
		for end < len(line) && !isSpace(line[end]) {
			end++
		}

		tok := Token{
			Raw:             line[i:end],
			Key:             line[i+1 : keyEnd],
			Trailing:        line[keyEnd:end],
			IsFigureCaption: isCaption,
			InCaption:       isCaption && i >= capStart && i < capEnd,
			LinkText:        isLinkText(line, i, keyEnd),
			Start:           i,
			KeyEnd:          keyEnd,
			End:             end,
		}
		tokens = append(tokens, tok)
		i = keyEnd - 1
	}
	return tokens
}

// isLinkText reports whether the token at [at, keyEnd) is the whole text
// of a "[@key](url)" link. The alt text of "![@key](img)" is not a link.
func isLinkText(line string, at, keyEnd int) bool {
	if at == 0 || line[at-1] != '[' || !strings.HasPrefix(line[keyEnd:], "](") {
		return false
	}
	return at < 2 || line[at-2] != '!'
}

// linkEnd returns the index just past the ")" closing the link target
// that starts at open (the index of "("), or -1.
func linkEnd(line string, open int) int {
	depth := 0
	for i := open; i < len(line); i++ {
		switch line[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		case '\n':
			return -1
		}
	}
	return -1
}
