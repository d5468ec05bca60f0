package entry

import (
	"os"
	"time"
)

// Kind represents the type of filesystem entry.
type Kind uint8

const (
	KindFile    Kind = 0
	KindDir     Kind = 1
	KindSymlink Kind = 2
	KindOther   Kind = 3
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindDir:
		return "dir"
	case KindSymlink:
		return "symlink"
	default:
		return "other"
	}
}

// KindFromMode derives the Kind from an os.FileMode.
func KindFromMode(mode os.FileMode) Kind {
	switch {
	case mode.IsRegular():
		return KindFile
	case mode.IsDir():
		return KindDir
	case mode&os.ModeSymlink != 0:
		return KindSymlink
	default:
		return KindOther
	}
}

// Entry is a walked filesystem entry with the metadata needed to fingerprint it.
type Entry struct {
	Path      string // Relative to the scan root, slash separated
	AbsPath   string
	Name      string
	Kind      Kind
	Size      int64
	ModTime   time.Time
	CreatedAt string // Opaque creation stamp from stat, platform dependent
}

// FileRecord is the persisted form of a scanned file.
type FileRecord struct {
	ID                   int64
	Filename             string
	Path                 string
	Size                 int64
	CreatedAt            string
	PrefixSample         []byte
	ExactFingerprint     string
	PotentialFingerprint string
}

// ScanError represents an error encountered during scanning.
type ScanError struct {
	Path    string
	Message string
}

// ScanMeta holds metadata about a scan.
type ScanMeta struct {
	ID           string
	RootPath     string
	Recursive    bool
	StartTime    time.Time
	EndTime      time.Time
	FileCount    int64
	SkippedCount int64
	ErrorCount   int64
}

// MatchKind distinguishes the two duplicate classifications.
type MatchKind string

const (
	MatchExact     MatchKind = "EXACT"
	MatchPotential MatchKind = "POTENTIAL"
)

// Group is a set of records sharing one fingerprint.
type Group struct {
	Kind        MatchKind
	Fingerprint string
	Members     []FileRecord
}
