package scan

import (
	"regexp"
	"time"
)

// ScanOptions configures the scanning behavior.
type ScanOptions struct {
	// Workers is the number of concurrent fingerprint workers.
	Workers int

	// Recursive descends into subdirectories. When false only the direct
	// children of the root are scanned.
	Recursive bool

	// MaxErrors is the maximum number of per-file errors before aborting.
	// Zero means unlimited.
	MaxErrors int

	// ExcludeNames are base names skipped wherever they appear.
	ExcludeNames map[string]struct{}

	// ExcludePatterns are regular expressions matched against the
	// slash-separated path relative to the root.
	ExcludePatterns []*regexp.Regexp

	// BatchSize is the number of records to batch before flushing to DB.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultOptions returns sensible defaults for scanning.
func DefaultOptions() *ScanOptions {
	return &ScanOptions{
		Workers:       4,
		Recursive:     true,
		MaxErrors:     0,
		ExcludeNames:  make(map[string]struct{}),
		BatchSize:     500,
		FlushInterval: time.Second,
	}
}

// WithWorkers sets the number of workers.
func (o *ScanOptions) WithWorkers(n int) *ScanOptions {
	if n < 1 {
		n = 1
	}
	o.Workers = n
	return o
}

// WithRecursive sets whether subdirectories are scanned.
func (o *ScanOptions) WithRecursive(recursive bool) *ScanOptions {
	o.Recursive = recursive
	return o
}

// WithMaxErrors sets the maximum error count.
func (o *ScanOptions) WithMaxErrors(n int) *ScanOptions {
	o.MaxErrors = n
	return o
}

// WithBatchSize sets the ingest batch size.
func (o *ScanOptions) WithBatchSize(n int) *ScanOptions {
	o.BatchSize = n
	return o
}

// ExcludeName adds base names to skip.
func (o *ScanOptions) ExcludeName(names ...string) *ScanOptions {
	if o.ExcludeNames == nil {
		o.ExcludeNames = make(map[string]struct{})
	}
	for _, n := range names {
		if n != "" {
			o.ExcludeNames[n] = struct{}{}
		}
	}
	return o
}

// AddExcludePattern adds a pattern to exclude.
func (o *ScanOptions) AddExcludePattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	o.ExcludePatterns = append(o.ExcludePatterns, re)
	return nil
}

// ShouldExclude reports whether an entry with the given base name and
// relative path is skipped.
func (o *ScanOptions) ShouldExclude(name, relPath string) bool {
	if _, ok := o.ExcludeNames[name]; ok {
		return true
	}
	for _, re := range o.ExcludePatterns {
		if re.MatchString(relPath) {
			return true
		}
	}
	return false
}
