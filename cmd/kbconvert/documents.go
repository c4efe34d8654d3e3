// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/kbconvert/internal/pipeline"
)

var latexCmd = &cobra.Command{
	Use:   "latex [files or dirs...]",
	Short: "Convert LaTeX manuscripts to Markdown",
	Long: `Latex removes comment lines, converts each .tex file with pandoc, repairs
figure links that LaTeX writes without an extension, and rewrites citations
against the master bibliography. The Markdown is written next to the .tex
file; an existing .md is kept as .md.bak.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, batch{
			command: "latex",
			sources: map[string]pipeline.Source{".tex": pipeline.SourceLaTeX},
		})
	},
}

var docxCmd = &cobra.Command{
	Use:   "docx [files or dirs...]",
	Short: "Convert Word documents to Markdown",
	Long: `Docx converts each .docx file with pandoc, drops leftover style attributes,
turns HTML images into Markdown images, joins soft line breaks, and rewrites
citations when a master bibliography is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, batch{
			command: "docx",
			sources: map[string]pipeline.Source{".docx": pipeline.SourceDOCX},
		})
	},
}

var notionCmd = &cobra.Command{
	Use:   "notion [files or dirs...]",
	Short: "Clean Notion Markdown exports in place",
	Long: `Notion strips quote markers and unwraps images that Notion exports as
links to the page anchor. Citations are rewritten when a master
bibliography is configured.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, batch{
			command: "notion",
			sources: map[string]pipeline.Source{".md": pipeline.SourceNotion},
		})
	},
}

var gdocsCmd = &cobra.Command{
	Use:   "gdocs [files or dirs...]",
	Short: "Fix Google Docs exports (HTML before import, Markdown after)",
	Long: `Gdocs works on both halves of a Google Docs import. HTML exports get their
highlight, italic and bold classes written into the text and indented
paragraphs marked as quotes. Markdown imported from such a file gets the
quote markers restored and doubled styling collapsed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, batch{
			command: "gdocs",
			sources: map[string]pipeline.Source{
				".html": pipeline.SourceGDocsHTML,
				".md":   pipeline.SourceGDocs,
			},
		})
	},
}

var citeCmd = &cobra.Command{
	Use:   "cite [files or dirs...]",
	Short: "Rewrite citations in Markdown files",
	Long: `Cite resolves every @key in the given Markdown files against the master
bibliography and rewrites it as an author-year hyperlink (--mode link) or
replaces it with the master key (--mode rekey). Unresolved keys are left as
they are and listed at the end.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBatch(cmd, args, batch{
			command:     "cite",
			sources:     map[string]pipeline.Source{".md": pipeline.SourceMarkdown},
			needsMaster: true,
		})
	},
}

func init() {
	latexCmd.Flags().StringSlice("image-folders", []string{"figures", "extra_figures"}, "folders searched for extensionless figure links")
	_ = viper.BindPFlag("conversion.image_folders", latexCmd.Flags().Lookup("image-folders"))

	rootCmd.AddCommand(latexCmd, docxCmd, notionCmd, gdocsCmd, citeCmd)
}
