// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package cleanup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanDOCX(t *testing.T) {
	in := []string{
		"> style=\"width:100px\"\n",
		"First half of a\n",
		"paragraph with <u>underline</u>.\n",
		"\n",
		"> <img src=\"media/image1.png\" style=\"width:6in\" />\n",
		"\n",
	}
	want := []string{
		"First half of a ",
		"paragraph with underline. ",
		"\n",
		"![''](media/image1.png) ",
		"\n",
	}
	assert.Equal(t, want, CleanDOCX(in))
}

func TestCleanNotion(t *testing.T) {
	in := []string{
		"> quoted text\n",
		"[![Figure caption](Page/image.png)](%7Bpage-anchor%7D)\n",
		"[a link](https://example.com)\n",
	}
	want := []string{
		"quoted text\n",
		"![Figure caption](Page/image.png)\n",
		"[a link](https://example.com)\n",
	}
	assert.Equal(t, want, CleanNotion(in))
}

func TestReplaceQuotePlaceholders(t *testing.T) {
	q := QuotePlaceholder
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "paragraph quote",
			in:   []string{q + " Quoted text\n"},
			want: []string{"> Quoted text\n"},
		},
		{
			name: "blank line between quotes removed",
			in:   []string{q + " one\n", "\n", q + " two\n", "\n", "after\n"},
			want: []string{"> one\n", "> two\n", "\n", "after\n"},
		},
		{
			name: "bullet quote moved before bullet",
			in:   []string{"- " + q + " item\n"},
			want: []string{"> - item\n"},
		},
		{
			name: "nested bullet quote",
			in:   []string{"- " + q + " " + q + " deep\n"},
			want: []string{"> > - deep\n"},
		},
		{
			name: "numbered quote",
			in:   []string{"12. " + q + " step\n"},
			want: []string{"> 12. step\n"},
		},
		{
			name: "placeholder-only line dropped",
			in:   []string{"before\n", q + "\n", "after\n"},
			want: []string{"before\n", "after\n"},
		},
		{
			name: "empty quote and following blank dropped",
			in:   []string{q + " " + q + "\n", "\n", "text\n"},
			want: []string{"text\n"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReplaceQuotePlaceholders(tt.in))
		})
	}
}
