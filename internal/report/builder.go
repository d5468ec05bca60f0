// Package report turns stored duplicate groups into pairwise report rows.
package report

import (
	"context"
	"fmt"

	"github.com/michaelscutari/dupscan/internal/entry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("github.com/michaelscutari/dupscan/internal/report")

// Row is one ordered duplicate pair.
type Row struct {
	Path          string
	Filename      string
	Kind          entry.MatchKind
	OtherPath     string
	OtherFilename string
}

// GroupSource supplies duplicate groups. *db.Store satisfies it.
type GroupSource interface {
	ExactDuplicateGroups(ctx context.Context) ([]entry.Group, error)
	PotentialDuplicateGroups(ctx context.Context) ([]entry.Group, error)
}

// Groups holds both classifications loaded from a store.
type Groups struct {
	Exact     []entry.Group
	Potential []entry.Group
}

// Builder assembles report rows from a group source.
type Builder struct {
	src GroupSource
}

// NewBuilder creates a new report builder.
func NewBuilder(src GroupSource) *Builder {
	return &Builder{src: src}
}

// Load runs one grouped query per classification.
func (b *Builder) Load(ctx context.Context) (Groups, error) {
	ctx, span := tracer.Start(ctx, "report.Load")
	defer span.End()

	exact, err := b.src.ExactDuplicateGroups(ctx)
	if err != nil {
		span.RecordError(err)
		return Groups{}, fmt.Errorf("failed to load exact groups: %w", err)
	}
	potential, err := b.src.PotentialDuplicateGroups(ctx)
	if err != nil {
		span.RecordError(err)
		return Groups{}, fmt.Errorf("failed to load potential groups: %w", err)
	}

	span.SetAttributes(
		attribute.Int("report.exact_groups", len(exact)),
		attribute.Int("report.potential_groups", len(potential)),
	)
	return Groups{Exact: exact, Potential: potential}, nil
}

// Build loads the groups and expands them into rows.
func (b *Builder) Build(ctx context.Context) ([]Row, error) {
	g, err := b.Load(ctx)
	if err != nil {
		return nil, err
	}
	return Rows(g), nil
}

// Rows emits every ordered pair (i != j) of each exact group, then of each
// potential group. A pair that is an exact duplicate also appears as a
// potential one. Rows follow group order, not path order.
func Rows(g Groups) []Row {
	var rows []Row
	for _, grp := range g.Exact {
		rows = appendPairs(rows, entry.MatchExact, grp.Members)
	}
	for _, grp := range g.Potential {
		rows = appendPairs(rows, entry.MatchPotential, grp.Members)
	}
	return rows
}

func appendPairs(rows []Row, kind entry.MatchKind, members []entry.FileRecord) []Row {
	for i, a := range members {
		for j, b := range members {
			if i == j {
				continue
			}
			rows = append(rows, Row{
				Path:          a.Path,
				Filename:      a.Filename,
				Kind:          kind,
				OtherPath:     b.Path,
				OtherFilename: b.Filename,
			})
		}
	}
	return rows
}
