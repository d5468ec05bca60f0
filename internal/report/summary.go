package report

import "github.com/michaelscutari/dupscan/internal/entry"

// KindSummary aggregates one classification.
type KindSummary struct {
	Groups int64
	Files  int64
	// ReclaimableBytes is what deleting all but one member of every group
	// would free.
	ReclaimableBytes int64
}

// Summary aggregates both classifications.
type Summary struct {
	Exact     KindSummary
	Potential KindSummary
	Rows      int64
}

// Summarize computes group statistics.
func Summarize(g Groups) Summary {
	s := Summary{
		Exact:     summarizeKind(g.Exact),
		Potential: summarizeKind(g.Potential),
	}
	s.Rows = pairCount(g.Exact) + pairCount(g.Potential)
	return s
}

func summarizeKind(groups []entry.Group) KindSummary {
	var ks KindSummary
	for _, grp := range groups {
		n := int64(len(grp.Members))
		if n < 2 {
			continue
		}
		ks.Groups++
		ks.Files += n
		ks.ReclaimableBytes += grp.Members[0].Size * (n - 1)
	}
	return ks
}

func pairCount(groups []entry.Group) int64 {
	var total int64
	for _, grp := range groups {
		n := int64(len(grp.Members))
		total += n * (n - 1)
	}
	return total
}
