package tui

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/michaelscutari/dupscan/internal/entry"

	tea "github.com/charmbracelet/bubbletea"
)

// Source provides the data the browser shows.
type Source interface {
	DuplicateGroups(ctx context.Context, kind entry.MatchKind) ([]entry.Group, error)
	LatestScan(ctx context.Context) (*entry.ScanMeta, error)
}

// SortColumn represents the current sort field.
type SortColumn int

const (
	SortByReclaim SortColumn = iota
	SortBySize
	SortByName
	SortByCount
)

func (s SortColumn) String() string {
	switch s {
	case SortBySize:
		return "size"
	case SortByName:
		return "name"
	case SortByCount:
		return "count"
	default:
		return "reclaim"
	}
}

// groupRow is a duplicate group with its display values precomputed.
type groupRow struct {
	group   entry.Group
	name    string
	size    int64
	reclaim int64
}

func newGroupRow(g entry.Group) groupRow {
	r := groupRow{group: g}
	if len(g.Members) > 0 {
		first := g.Members[0]
		r.name = first.Filename
		r.size = first.Size
		r.reclaim = first.Size * int64(len(g.Members)-1)
	}
	return r
}

func (r groupRow) matches(needle string) bool {
	for _, m := range r.group.Members {
		if strings.Contains(strings.ToLower(m.Path), needle) {
			return true
		}
	}
	return false
}

// Model holds the TUI state.
type Model struct {
	src          Source
	kind         entry.MatchKind
	scanMeta     *entry.ScanMeta
	loaded       bool
	allGroups    []groupRow
	groups       []groupRow
	open         *groupRow
	cursor       int
	memberCursor int
	sort         SortColumn
	width        int
	height       int
	filter       string
	filterActive bool
	err          error
}

// NewModel creates a new TUI model showing exact duplicates first.
func NewModel(src Source) *Model {
	return &Model{
		src:  src,
		kind: entry.MatchExact,
		sort: SortByReclaim,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.loadGroups(m.kind)
}

type groupsLoadedMsg struct {
	kind     entry.MatchKind
	scanMeta *entry.ScanMeta
	groups   []entry.Group
	err      error
}

func (m *Model) loadGroups(kind entry.MatchKind) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		meta, err := m.src.LatestScan(ctx)
		if err != nil {
			return groupsLoadedMsg{err: err}
		}
		groups, err := m.src.DuplicateGroups(ctx, kind)
		if err != nil {
			return groupsLoadedMsg{err: err}
		}
		return groupsLoadedMsg{kind: kind, scanMeta: meta, groups: groups}
	}
}

func otherKind(k entry.MatchKind) entry.MatchKind {
	if k == entry.MatchExact {
		return entry.MatchPotential
	}
	return entry.MatchExact
}

func (m *Model) helpLine() string {
	if m.filterActive {
		return "Type to filter | Enter: apply | Esc: clear | Ctrl+C: quit"
	}
	if m.open != nil {
		return "↑/↓ move | Backspace: back | q: quit"
	}
	return "↑/↓ move | Enter: open | Tab: exact/potential | r/s/n/c: sort | /: filter | q: quit"
}

func (m *Model) setGroups(groups []entry.Group) {
	rows := make([]groupRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, newGroupRow(g))
	}
	m.allGroups = rows
	m.sortGroups()
	m.applyFilter()
}

func (m *Model) sortGroups() {
	slices.SortStableFunc(m.allGroups, func(a, b groupRow) int {
		switch m.sort {
		case SortBySize:
			return cmp.Compare(b.size, a.size)
		case SortByName:
			return cmp.Compare(a.name, b.name)
		case SortByCount:
			return cmp.Compare(len(b.group.Members), len(a.group.Members))
		default:
			return cmp.Compare(b.reclaim, a.reclaim)
		}
	})
}

func (m *Model) applyFilter() {
	if m.filter == "" {
		m.groups = m.allGroups
	} else {
		filtered := make([]groupRow, 0, len(m.allGroups))
		needle := strings.ToLower(m.filter)
		for _, g := range m.allGroups {
			if g.matches(needle) {
				filtered = append(filtered, g)
			}
		}
		m.groups = filtered
	}
	m.cursor = 0
}

// totalReclaim sums reclaimable bytes over the unfiltered groups.
func (m *Model) totalReclaim() int64 {
	var total int64
	for _, g := range m.allGroups {
		total += g.reclaim
	}
	return total
}
