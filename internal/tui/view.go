package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/michaelscutari/dupscan/internal/entry"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err)
	}

	if !m.loaded {
		return "Loading..."
	}

	var b strings.Builder
	headerLines := 0

	writeLine := func(line string) {
		b.WriteString(line)
		b.WriteString("\n")
		headerLines++
	}

	writeLine(titleStyle.Render("dupscan - Duplicate Browser"))
	writeLine(statsStyle.Render(m.scanLine()))

	kindInfo := fmt.Sprintf("View: %s | Groups: %s | Reclaimable: %s",
		kindStyle(m.kind).Render(string(m.kind)),
		FormatCount(int64(len(m.allGroups))),
		FormatSize(m.totalReclaim()),
	)
	writeLine(breadcrumbStyle.Render(kindInfo))

	if m.open != nil {
		return m.groupView(&b, headerLines)
	}

	status := fmt.Sprintf("Items: %s", FormatCount(int64(len(m.groups))))
	if m.filter != "" {
		status += fmt.Sprintf(" | Filter: %q", m.filter)
	}
	writeLine(statusStyle.Render(status))

	if m.filterActive {
		writeLine(filterStyle.Render(fmt.Sprintf("Filter: %s_", m.filter)))
	} else if m.filter != "" {
		writeLine(filterStyle.Render(fmt.Sprintf("Filter: %s", m.filter)))
	}

	sizeLabel := headerLabel("SIZE", m.sort == SortBySize, "v")
	countLabel := headerLabel("COPIES", m.sort == SortByCount, "v")
	reclaimLabel := headerLabel("RECLAIM", m.sort == SortByReclaim, "v")
	nameLabel := headerLabel("NAME", m.sort == SortByName, "^")

	footerLines := 2
	visibleRows := max(m.height-headerLines-footerLines-1, 5)

	startIdx := 0
	if m.cursor >= visibleRows {
		startIdx = m.cursor - visibleRows + 1
	}
	endIdx := min(len(m.groups), startIdx+visibleRows)

	widths := calcColumnWidths(m.groups, startIdx, endIdx, sizeLabel, countLabel, reclaimLabel)
	nameWidth := calcNameWidth(m.width, widths)
	gap := strings.Repeat(" ", colGap)
	nameGap := strings.Repeat(" ", nameGapWidth)

	nameLabel = truncateRight(nameLabel, nameWidth)
	namePad := max(nameWidth-len(nameLabel), 0)
	header := fmt.Sprintf("%*s%s%*s%s%*s%s%s%s%s%*s",
		widths.size, sizeLabel,
		gap,
		widths.count, countLabel,
		gap,
		widths.reclaim, reclaimLabel,
		nameGap,
		nameLabel,
		strings.Repeat(" ", namePad),
		gap,
		barColWidth, "SHARE%",
	)
	writeLine(headerStyle.Render(header))

	total := m.totalReclaim()
	for i := startIdx; i < endIdx; i++ {
		b.WriteString(m.formatGroup(m.groups[i], i == m.cursor, widths, nameWidth, total))
		b.WriteString("\n")
	}

	displayedRows := min(len(m.groups)-startIdx, visibleRows)
	for i := displayedRows; i < visibleRows; i++ {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := m.helpLine()
	if len(m.groups) > 0 {
		help = fmt.Sprintf("%s [%d/%d]", help, m.cursor+1, len(m.groups))
	}
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) scanLine() string {
	if m.scanMeta == nil {
		return "No scan recorded"
	}
	return fmt.Sprintf("Scan: %s | Root: %s | Files: %s | Skipped: %s | Errors: %s",
		m.scanMeta.StartTime.Format("2006-01-02 15:04"),
		truncateMiddle(m.scanMeta.RootPath, max(10, m.width/3)),
		FormatCount(m.scanMeta.FileCount),
		FormatCount(m.scanMeta.SkippedCount),
		FormatCount(m.scanMeta.ErrorCount),
	)
}

func (m *Model) groupView(b *strings.Builder, headerLines int) string {
	g := m.open
	info := fmt.Sprintf("Group %s | %s | %s each | %d copies",
		shortFingerprint(g.group.Fingerprint),
		g.name,
		FormatSize(g.size),
		len(g.group.Members),
	)
	b.WriteString(pathStyle.Render(info))
	b.WriteString("\n")
	headerLines++

	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s  %s", createdWidth, "CREATED", "PATH")))
	b.WriteString("\n")
	headerLines++

	visibleRows := max(m.height-headerLines-3, 5)
	startIdx := 0
	if m.memberCursor >= visibleRows {
		startIdx = m.memberCursor - visibleRows + 1
	}
	endIdx := min(len(g.group.Members), startIdx+visibleRows)

	pathWidth := max(m.width-createdWidth-colGap, minNameWidth)
	for i := startIdx; i < endIdx; i++ {
		mem := g.group.Members[i]
		line := fmt.Sprintf("%-*s  %s", createdWidth, truncateRight(mem.CreatedAt, createdWidth),
			fileStyle.Render(truncateMiddle(mem.Path, pathWidth)))
		if i == m.memberCursor {
			line = selectedStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	for i := endIdx - startIdx; i < visibleRows; i++ {
		b.WriteString("\n")
	}

	b.WriteString("\n")
	help := fmt.Sprintf("%s [%d/%d]", m.helpLine(), m.memberCursor+1, len(g.group.Members))
	b.WriteString(helpStyle.Render(help))
	return b.String()
}

type columnWidths struct {
	size    int
	count   int
	reclaim int
}

const (
	colGap        = 2
	nameGapWidth  = 2
	minNameWidth  = 10
	createdWidth  = 20
	barBlockWidth = 10                                        // number of block characters
	barPctWidth   = 4                                         // " 78%" or "100%"
	barGapWidth   = 1                                         // space between blocks and pct
	barColWidth   = barBlockWidth + barGapWidth + barPctWidth // 15
)

func calcColumnWidths(groups []groupRow, startIdx, endIdx int, sizeLabel, countLabel, reclaimLabel string) columnWidths {
	w := columnWidths{
		size:    len(sizeLabel),
		count:   len(countLabel),
		reclaim: len(reclaimLabel),
	}

	for i := startIdx; i < endIdx; i++ {
		g := groups[i]
		w.size = max(w.size, len(FormatSize(g.size)))
		w.count = max(w.count, len(FormatCount(int64(len(g.group.Members)))))
		w.reclaim = max(w.reclaim, len(FormatSize(g.reclaim)))
	}

	return w
}

func calcNameWidth(totalWidth int, w columnWidths) int {
	// columns + gaps between 3 data cols (2) + gap before name + gap before bar + bar
	used := w.size + w.count + w.reclaim + (colGap * 3) + nameGapWidth + barColWidth
	return max(totalWidth-used, minNameWidth)
}

func (m *Model) formatGroup(g groupRow, selected bool, widths columnWidths, nameWidth int, total int64) string {
	rawName := truncateRight(g.name, nameWidth)
	pad := max(nameWidth-len(rawName), 0)
	paddedName := fileStyle.Render(rawName) + strings.Repeat(" ", pad)

	gap := strings.Repeat(" ", colGap)
	nameGap := strings.Repeat(" ", nameGapWidth)
	line := fmt.Sprintf("%*s%s%*s%s%*s%s%s%s%s",
		widths.size, FormatSize(g.size),
		gap,
		widths.count, FormatCount(int64(len(g.group.Members))),
		gap,
		widths.reclaim, FormatSize(g.reclaim),
		nameGap,
		paddedName,
		gap,
		formatBar(g.reclaim, total),
	)

	if selected {
		return selectedStyle.Render(line)
	}
	return line
}

func formatBar(val, total int64) string {
	if total <= 0 || val <= 0 {
		empty := strings.Repeat("░", barBlockWidth)
		return barEmptyStyle.Render(empty) + fmt.Sprintf("  %3d%%", 0)
	}

	pct := min(float64(val)/float64(total)*100, 100)

	filled := int(math.Round(pct / 100 * float64(barBlockWidth)))
	filled = min(max(filled, 1), barBlockWidth)

	filledStr := barFilledStyle.Render(strings.Repeat("█", filled))
	emptyStr := barEmptyStyle.Render(strings.Repeat("░", barBlockWidth-filled))
	return filledStr + emptyStr + fmt.Sprintf("  %3d%%", int(math.Round(pct)))
}

func headerLabel(label string, active bool, dir string) string {
	if active {
		return label + dir
	}
	return label
}

func shortFingerprint(fp string) string {
	if len(fp) > 12 {
		return fp[:12]
	}
	return fp
}

func truncateRight(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func truncateMiddle(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	head := (maxLen - 3) / 2
	tail := maxLen - 3 - head
	return s[:head] + "..." + s[len(s)-tail:]
}

func kindStyle(k entry.MatchKind) lipgloss.Style {
	if k == entry.MatchExact {
		return exactStyle
	}
	return potentialStyle
}
