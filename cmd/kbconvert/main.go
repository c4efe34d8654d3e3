// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the kbconvert CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/pdiddy/kbconvert/internal/convert"
	"github.com/pdiddy/kbconvert/internal/ledger"
	"github.com/pdiddy/kbconvert/internal/pipeline"
	"github.com/pdiddy/kbconvert/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// logger is built in PersistentPreRunE from the log.* settings.
var logger = zap.NewNop()

var rootCmd = &cobra.Command{
	Use:   "kbconvert",
	Short: "Convert manuscripts to Markdown and resolve their citations",
	Long: `kbconvert turns LaTeX, Word, Notion and Google Docs documents into Markdown
for a personal knowledge base. Pandoc citation keys are matched against a
master bibliography (Better BibTeX JSON or CSL) through the document's own
.bib file and rewritten as author-year hyperlinks, or replaced with the
master keys.

Every rewritten file keeps a .bak copy of its previous content. Runs are
recorded in a SQLite ledger so unresolved citations can be reviewed later
with "kbconvert report".`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(loadRunConfig().Log)
		if err != nil {
			return err
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./kbconvert.yaml or ~/.config/kbconvert/kbconvert.yaml)")
	pf.String("master", "", "master bibliography (Better BibTeX JSON, CSL-JSON or CSL-YAML)")
	pf.String("bib", "", "document bibliography file or directory (default: the .bib next to each document)")
	pf.String("mode", string(defaultMode), "citation rewrite mode: link or rekey")
	pf.Int("workers", pipeline.DefaultWorkers, "documents processed at once")
	pf.BoolP("recursive", "r", false, "descend into subdirectories")
	pf.Bool("dry-run", false, "process documents without writing them")
	pf.Bool("ledger", true, "record the run in the ledger")
	pf.String("ledger-path", ledger.DefaultPath, "ledger database path")
	pf.String("backend", string(types.BackendLocal), "where pandoc runs: local or container")
	pf.String("pandoc-image", convert.DefaultImage, "pandoc container image for the container backend")
	pf.Bool("citeproc", false, "let pandoc render citations from the document .bib (latex, docx)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("log-format", "console", "log format: console or json")

	bindings := map[string]string{
		"bibliography.master":   "master",
		"bibliography.document": "bib",
		"citation.mode":         "mode",
		"workers":               "workers",
		"recursive":             "recursive",
		"dry_run":               "dry-run",
		"ledger.enabled":        "ledger",
		"ledger.path":           "ledger-path",
		"conversion.backend":    "backend",
		"conversion.image":      "pandoc-image",
		"conversion.citeproc":   "citeproc",
		"log.level":             "log-level",
		"log.format":            "log-format",
	}
	for key, flag := range bindings {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}

	viper.SetDefault("conversion.pandoc", "pandoc")
	viper.SetDefault("conversion.to", "markdown")
	viper.SetDefault("conversion.extra_args", []string{})
	viper.SetDefault("conversion.image_folders", []string{"figures", "extra_figures"})
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: reading .env:", err)
	}

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kbconvert")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "kbconvert"))
		}
	}

	viper.SetEnvPrefix("KBCONVERT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadRunConfig reads the merged flag, environment and file settings.
func loadRunConfig() types.RunConfig {
	var cfg types.RunConfig
	if err := viper.Unmarshal(&cfg); err != nil {
		fmt.Fprintln(os.Stderr, "warning: decoding config:", err)
	}
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
