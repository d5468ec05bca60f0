// Package fingerprint derives the exact and potential duplicate fingerprints
// of a file from its metadata and a short prefix sample of its content.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/michaelscutari/dupscan/internal/entry"
	"github.com/zeebo/blake3"
)

// DefaultSampleSize is the number of leading bytes read from each file.
const DefaultSampleSize = 10

// DefaultPlaceholderExtensions are cloud-drive stub files whose content is
// not the document itself. They are fingerprinted by name instead of content.
var DefaultPlaceholderExtensions = []string{
	".gdoc", ".gsheet", ".gslides", ".gform", ".gdraw", ".gscript", ".gmap",
}

// Supported hash algorithms.
const (
	AlgoSHA256 = "sha256"
	AlgoBlake3 = "blake3"
)

// Result holds the derived fields for one file.
type Result struct {
	Sample    []byte
	Exact     string
	Potential string
}

// Engine computes fingerprints. It holds no per-file state and is safe for
// concurrent use.
type Engine struct {
	sampleSize   int
	placeholders []string
	newHash      func() hash.Hash
	algo         string
}

// NewEngine creates an engine using the named hash algorithm.
// An empty algo selects sha256.
func NewEngine(algo string, sampleSize int) (*Engine, error) {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	e := &Engine{
		sampleSize:   sampleSize,
		placeholders: DefaultPlaceholderExtensions,
	}
	switch algo {
	case "", AlgoSHA256:
		e.algo = AlgoSHA256
		e.newHash = sha256.New
	case AlgoBlake3:
		e.algo = AlgoBlake3
		e.newHash = func() hash.Hash { return blake3.New() }
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q (expected sha256|blake3)", algo)
	}
	return e, nil
}

// WithPlaceholders replaces the placeholder extension list.
func (e *Engine) WithPlaceholders(exts []string) *Engine {
	e.placeholders = exts
	return e
}

// Algo returns the configured hash algorithm name.
func (e *Engine) Algo() string { return e.algo }

// SampleSize returns the configured prefix length.
func (e *Engine) SampleSize() int { return e.sampleSize }

// Eligible reports whether the file's content may be sampled.
func (e *Engine) Eligible(en entry.Entry) bool {
	if en.Kind != entry.KindFile {
		return false
	}
	for _, ext := range e.placeholders {
		if strings.HasSuffix(en.Name, ext) {
			return false
		}
	}
	return true
}

// Sample returns the prefix sample for a file. Ineligible files are sampled
// as the UTF-8 bytes of their name.
func (e *Engine) Sample(en entry.Entry) ([]byte, error) {
	if !e.Eligible(en) {
		return []byte(en.Name), nil
	}

	f, err := os.Open(en.AbsPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, e.sampleSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	return buf[:n], nil
}

// Fingerprint samples the file and derives both fingerprints.
func (e *Engine) Fingerprint(en entry.Entry) (Result, error) {
	sample, err := e.Sample(en)
	if err != nil {
		return Result{}, fmt.Errorf("failed to sample %s: %w", en.Path, err)
	}
	return Result{
		Sample:    sample,
		Exact:     e.Exact(en.Name, en.Size, en.CreatedAt, sample),
		Potential: e.Potential(en.Size, sample),
	}, nil
}

// Exact hashes name, decimal size, created_at and sample, in that order.
func (e *Engine) Exact(name string, size int64, createdAt string, sample []byte) string {
	h := e.newHash()
	io.WriteString(h, name)
	io.WriteString(h, strconv.FormatInt(size, 10))
	io.WriteString(h, createdAt)
	h.Write(sample)
	return hex.EncodeToString(h.Sum(nil))
}

// Potential hashes decimal size and sample.
func (e *Engine) Potential(size int64, sample []byte) string {
	h := e.newHash()
	io.WriteString(h, strconv.FormatInt(size, 10))
	h.Write(sample)
	return hex.EncodeToString(h.Sum(nil))
}

// Record builds the persisted record for a walked entry.
func (e *Engine) Record(en entry.Entry) (entry.FileRecord, error) {
	res, err := e.Fingerprint(en)
	if err != nil {
		return entry.FileRecord{}, err
	}
	return entry.FileRecord{
		Filename:             en.Name,
		Path:                 en.Path,
		Size:                 en.Size,
		CreatedAt:            en.CreatedAt,
		PrefixSample:         res.Sample,
		ExactFingerprint:     res.Exact,
		PotentialFingerprint: res.Potential,
	}, nil
}
