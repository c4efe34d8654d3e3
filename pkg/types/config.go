package types

// BibliographyConfig locates the bibliographies a run resolves against.
type BibliographyConfig struct {
	// Master is the Better BibTeX JSON or CSL-JSON/CSL-YAML export holding
	// the long citation keys.
	Master string `json:"master" yaml:"master" mapstructure:"master"`

	// Document is a .bib file or a directory holding exactly one. Empty means
	// the directory of each processed document.
	Document string `json:"document,omitempty" yaml:"document,omitempty" mapstructure:"document"`
}

// ConversionBackend identifies where pandoc runs.
type ConversionBackend string

const (
	BackendLocal     ConversionBackend = "local"
	BackendContainer ConversionBackend = "container"
)

// ConversionConfig holds settings for the pandoc step.
type ConversionConfig struct {
	// Backend selects a local pandoc binary or a container image.
	Backend ConversionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Pandoc is the binary name or path for the local backend (default "pandoc").
	Pandoc string `json:"pandoc" yaml:"pandoc" mapstructure:"pandoc"`

	// Image is the container image for the container backend.
	Image string `json:"image" yaml:"image" mapstructure:"image"`

	// To is the pandoc output format (default "markdown").
	To string `json:"to" yaml:"to" mapstructure:"to"`

	// ExtraArgs are appended to every pandoc invocation.
	ExtraArgs []string `json:"extra_args,omitempty" yaml:"extra_args,omitempty" mapstructure:"extra_args"`

	// ImageFolders are searched, relative to the document, when fixing
	// figure links without an extension.
	ImageFolders []string `json:"image_folders" yaml:"image_folders" mapstructure:"image_folders"`

	// Citeproc makes pandoc render citations itself from the document's
	// .bib file.
	Citeproc bool `json:"citeproc" yaml:"citeproc" mapstructure:"citeproc"`
}

// CitationConfig holds settings for citation rewriting.
type CitationConfig struct {
	// Mode is "link" (author-year hyperlinks) or "rekey" (master keys).
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`
}

// LedgerConfig holds settings for the run ledger.
type LedgerConfig struct {
	// Enabled turns recording on.
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// Path is the SQLite database file (default ".kbconvert/ledger.db").
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is a zap level name (debug, info, warn, error).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is "console" or "json".
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// RunConfig groups everything a run needs.
type RunConfig struct {
	Bibliography BibliographyConfig `json:"bibliography" yaml:"bibliography" mapstructure:"bibliography"`
	Conversion   ConversionConfig   `json:"conversion" yaml:"conversion" mapstructure:"conversion"`
	Citation     CitationConfig     `json:"citation" yaml:"citation" mapstructure:"citation"`
	Ledger       LedgerConfig       `json:"ledger" yaml:"ledger" mapstructure:"ledger"`
	Log          LogConfig          `json:"log" yaml:"log" mapstructure:"log"`

	// Workers bounds how many documents are processed at once (default 4).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// Recursive descends into subdirectories when a directory is given.
	Recursive bool `json:"recursive" yaml:"recursive" mapstructure:"recursive"`

	// DryRun processes documents without writing them.
	DryRun bool `json:"dry_run" yaml:"dry_run" mapstructure:"dry_run"`
}
