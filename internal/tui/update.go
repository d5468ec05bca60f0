package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

const pageSize = 10

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case groupsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.loaded = true
		m.kind = msg.kind
		m.scanMeta = msg.scanMeta
		m.open = nil
		m.filter = ""
		m.filterActive = false
		m.setGroups(msg.groups)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()
	if k == "ctrl+c" {
		return m, tea.Quit
	}

	if m.filterActive {
		m.handleFilterKey(msg)
		return m, nil
	}

	if k == "q" {
		return m, tea.Quit
	}

	if m.open != nil {
		if navigate(k, &m.memberCursor, len(m.open.group.Members)) {
			return m, nil
		}
		switch k {
		case "backspace", "h", "left", "esc":
			m.open = nil
		}
		return m, nil
	}

	if navigate(k, &m.cursor, len(m.groups)) {
		return m, nil
	}

	switch k {
	case "enter", "l", "right":
		if m.cursor < len(m.groups) {
			selected := m.groups[m.cursor]
			m.open = &selected
			m.memberCursor = 0
		}
	case "tab":
		return m, m.loadGroups(otherKind(m.kind))
	case "r":
		m.resort(SortByReclaim)
	case "s":
		m.resort(SortBySize)
	case "n":
		m.resort(SortByName)
	case "c":
		m.resort(SortByCount)
	case "/":
		m.filterActive = true
	}
	return m, nil
}

func (m *Model) handleFilterKey(msg tea.KeyMsg) {
	switch msg.String() {
	case "enter":
		m.filterActive = false
	case "esc":
		m.filterActive = false
		m.filter = ""
		m.applyFilter()
	case "backspace":
		if runes := []rune(m.filter); len(runes) > 0 {
			m.filter = string(runes[:len(runes)-1])
			m.applyFilter()
		}
	default:
		if msg.Type == tea.KeyRunes {
			m.filter += msg.String()
			m.applyFilter()
		}
	}
}

// navigate moves cursor within [0, n) for movement keys and reports
// whether k was one.
func navigate(k string, cursor *int, n int) bool {
	c := *cursor
	switch k {
	case "up", "k":
		c--
	case "down", "j":
		c++
	case "home", "g":
		c = 0
	case "end", "G":
		c = n - 1
	case "pgup":
		c -= pageSize
	case "pgdown":
		c += pageSize
	default:
		return false
	}
	*cursor = max(min(c, n-1), 0)
	return true
}

// resort changes the sort column in place; no reload is needed.
func (m *Model) resort(col SortColumn) {
	m.sort = col
	m.sortGroups()
	m.applyFilter()
}
