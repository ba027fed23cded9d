// Package browse provides the interactive table browser.
package browse

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/tabwise/internal/filter"
	"github.com/verte-zerg/tabwise/internal/model"
	"github.com/verte-zerg/tabwise/internal/render"
	"github.com/verte-zerg/tabwise/internal/session"
)

const (
	tabData = iota
	tabColumns
	tabAnalysis
)

const (
	maxColumnWidth = 24
	selectedMarker = "▸"
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	statusStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Model implements the Bubble Tea table browser.
type Model struct {
	ctx   context.Context
	sess  *session.Session
	limit int

	tables   []string
	tableIdx int
	colIdx   int

	tabs      []string
	activeTab int
	viewports []viewport.Model
	dataTable table.Model

	width  int
	height int

	filterMode    bool
	filterInput   textinput.Model
	filterPreview string
	filterError   string

	status string
	errMsg string
}

// NewModel constructs a browser over the session's tables, starting at the
// named table when it exists. limit caps the rows loaded into the data tab.
func NewModel(ctx context.Context, sess *session.Session, start string, limit int) *Model {
	m := &Model{
		ctx:   ctx,
		sess:  sess,
		limit: limit,
		tabs:  []string{"Data", "Columns", "Analysis"},
	}
	m.filterInput = newFilterInput()
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.tables = sess.Names()
	for i, name := range m.tables {
		if name == start {
			m.tableIdx = i
		}
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.filterMode {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "left", "h":
			m.moveTab(-1)
			return m, nil
		case "right", "l":
			m.moveTab(1)
			return m, nil
		case "tab":
			m.moveTable(1)
			return m, nil
		case "shift+tab":
			m.moveTable(-1)
			return m, nil
		case "[":
			m.moveColumn(-1)
			return m, nil
		case "]":
			m.moveColumn(1)
			return m, nil
		case "a":
			m.analyze()
			return m, nil
		case "u":
			m.undo()
			return m, nil
		case "/":
			return m.startFilter()
		case "g", "home":
			if m.activeTab == tabData {
				m.dataTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabData {
				m.dataTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabData {
				var cmd tea.Cmd
				m.dataTable, cmd = m.dataTable.Update(msg)
				return m, cmd
			}
			var cmd tea.Cmd
			m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func newFilterInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "Filter: "
	input.Placeholder = "column op value"
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	if !m.filterMode && (m.errMsg != "" || m.status != "") {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	promptWidth := lipgloss.Width(m.filterInput.Prompt)
	m.filterInput.Width = maxInt(10, m.width-promptWidth-2)
}

func (m *Model) currentName() string {
	if len(m.tables) == 0 {
		return ""
	}
	return m.tables[m.tableIdx]
}

func (m *Model) current() *model.Table {
	name := m.currentName()
	if name == "" {
		return nil
	}
	t, err := m.sess.Table(name)
	if err != nil {
		m.errMsg = err.Error()
		return nil
	}
	return t
}

func (m *Model) currentColumn(t *model.Table) string {
	if t == nil || t.Width() == 0 {
		return ""
	}
	return t.Columns[m.colIdx].Name
}

// refresh reloads the table list and rebuilds every tab from the session.
func (m *Model) refresh() {
	m.tables = m.sess.Names()
	if m.tableIdx >= len(m.tables) {
		m.tableIdx = maxInt(0, len(m.tables)-1)
	}
	t := m.current()
	if t == nil || m.colIdx >= t.Width() {
		m.colIdx = 0
	}
	_, bodyHeight, _ := m.layoutHeights()
	cursorRow := m.dataTable.Cursor()
	m.dataTable = buildDataTable(t, m.colIdx, m.limit, m.width, bodyHeight)
	if cursorRow > 0 {
		m.dataTable.SetCursor(cursorRow)
	}

	if t == nil {
		m.viewports[tabColumns].SetContent("No tables loaded.")
		m.viewports[tabAnalysis].SetContent("No tables loaded.")
		return
	}
	var buf bytes.Buffer
	if err := render.ColumnInfo(&buf, t); err != nil {
		m.viewports[tabColumns].SetContent(fmt.Sprintf("Failed to render columns: %v", err))
	} else {
		m.viewports[tabColumns].SetContent(strings.TrimRight(buf.String(), "\n"))
	}
	m.viewports[tabAnalysis].SetContent(m.renderAnalysis(t))
}

func (m *Model) renderAnalysis(t *model.Table) string {
	column := m.currentColumn(t)
	if column == "" {
		return "Table has no columns."
	}
	res, err := m.sess.Analysis(m.currentName(), column)
	switch {
	case errors.Is(err, session.ErrStaleAnalysis):
		return fmt.Sprintf("Analysis of %q is out of date. Press a to run it again.", column)
	case err != nil:
		return fmt.Sprintf("Press a to analyse column %q.", column)
	}
	var buf bytes.Buffer
	if err := render.Analysis(&buf, column, res); err != nil {
		return fmt.Sprintf("Failed to render analysis: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func (m *Model) moveTab(delta int) {
	m.activeTab = wrapIndex(m.activeTab+delta, len(m.tabs))
}

func (m *Model) moveTable(delta int) {
	if len(m.tables) == 0 {
		return
	}
	m.tableIdx = wrapIndex(m.tableIdx+delta, len(m.tables))
	m.colIdx = 0
	m.dataTable.SetCursor(0)
	m.clearMessages()
	m.refresh()
}

func (m *Model) moveColumn(delta int) {
	t := m.current()
	if t == nil || t.Width() == 0 {
		return
	}
	m.colIdx = wrapIndex(m.colIdx+delta, t.Width())
	m.refresh()
}

func (m *Model) analyze() {
	t := m.current()
	column := m.currentColumn(t)
	if column == "" {
		return
	}
	m.clearMessages()
	if _, err := m.sess.Analyze(m.currentName(), column); err != nil {
		m.errMsg = err.Error()
		return
	}
	m.activeTab = tabAnalysis
	m.refresh()
}

func (m *Model) undo() {
	name := m.currentName()
	if name == "" {
		return
	}
	m.clearMessages()
	out, err := m.sess.Restore(m.ctx, name)
	if err != nil {
		m.errMsg = err.Error()
		return
	}
	m.status = fmt.Sprintf("Restored %s from backup (%s)", name, out.Save.Status)
	m.refresh()
}

func (m *Model) clearMessages() {
	m.status = ""
	m.errMsg = ""
}

func (m *Model) startFilter() (tea.Model, tea.Cmd) {
	if m.currentName() == "" {
		return m, nil
	}
	m.filterMode = true
	m.filterError = ""
	m.filterPreview = ""
	m.filterInput.SetValue("")
	return m, m.filterInput.Focus()
}

func (m *Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.stopFilter()
		return m, nil
	case tea.KeyEnter:
		if err := m.applyFilter(); err != nil {
			m.filterError = err.Error()
			return m, nil
		}
		m.stopFilter()
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.previewFilter()
	return m, cmd
}

func (m *Model) stopFilter() {
	m.filterMode = false
	m.filterError = ""
	m.filterPreview = ""
	m.filterInput.Blur()
}

func (m *Model) filterSet() (filter.Set, error) {
	spec, err := filter.ParseSpec(m.filterInput.Value())
	if err != nil {
		return filter.Set{}, err
	}
	return filter.Set{Specs: []filter.Spec{spec}, Logic: filter.And}, nil
}

func (m *Model) previewFilter() {
	m.filterError = ""
	m.filterPreview = ""
	if strings.TrimSpace(m.filterInput.Value()) == "" {
		return
	}
	set, err := m.filterSet()
	if err != nil {
		m.filterError = err.Error()
		return
	}
	res, err := m.sess.PreviewFilter(m.currentName(), set)
	if err != nil {
		m.filterError = err.Error()
		return
	}
	if len(res.Skipped) > 0 {
		m.filterError = res.Skipped[0].Err.Error()
		return
	}
	m.filterPreview = fmt.Sprintf("Keeps %d rows, removes %d", res.Kept.Len(), res.Removed.Len())
}

func (m *Model) applyFilter() error {
	set, err := m.filterSet()
	if err != nil {
		return err
	}
	name := m.currentName()
	out, res, err := m.sess.RemoveRows(m.ctx, name, set)
	if err != nil {
		return err
	}
	if len(res.Skipped) > 0 {
		return res.Skipped[0].Err
	}
	m.clearMessages()
	if out.Affected == 0 {
		m.status = "No rows removed"
		return nil
	}
	m.status = fmt.Sprintf("Removed %d rows from %s (%s); press u to undo", out.Affected, name, out.Save.Status)
	return nil
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	return tabs + "\n" + padLine(m.renderSummary(), m.width)
}

func (m *Model) renderSummary() string {
	name := m.currentName()
	if name == "" {
		return headerStyle.Render("No tables loaded.")
	}
	summary := fmt.Sprintf("Table: %s (%d/%d)", name, m.tableIdx+1, len(m.tables))
	if t := m.current(); t != nil {
		summary += fmt.Sprintf("  %d rows x %d columns", t.Len(), t.Width())
		if column := m.currentColumn(t); column != "" {
			summary += "  Column: " + column
		}
	}
	if project := m.sess.ActiveProject(); project != "" {
		summary += "  Project: " + project
	}
	if m.sess.HasBackup(name) {
		summary += "  [backup]"
	}
	return headerStyle.Render(truncateLine(summary, m.width))
}

func (m *Model) renderHelp() string {
	if m.filterMode {
		return headerStyle.Render("enter: remove rows that do not match  esc: cancel")
	}
	return headerStyle.Render(truncateLine("Nav: left/right  Table: tab  Column: [/]  Analyse: a  Filter: /  Undo: u  Quit: q", m.width))
}

func (m *Model) renderFooter() string {
	help := m.renderHelp()
	switch {
	case m.filterMode:
		return help
	case m.errMsg != "":
		return help + "\n" + errorStyle.Render(m.errMsg)
	case m.status != "":
		return help + "\n" + statusStyle.Render(m.status)
	}
	return help
}

func (m *Model) renderFilterForm() string {
	lines := []string{
		fmt.Sprintf("Keep rows of %s where (e.g. \"age gt 30\", \"name !contains test\")", m.currentName()),
		m.filterInput.View(),
	}
	if m.filterPreview != "" {
		lines = append(lines, statusStyle.Render(m.filterPreview))
	}
	if m.filterError != "" {
		lines = append(lines, errorStyle.Render(m.filterError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.filterMode {
		return fitLines(m.renderFilterForm(), m.width, height)
	}
	if m.activeTab == tabData {
		if m.currentName() == "" {
			return fitLines("No tables loaded.", m.width, height)
		}
		return fitLines(tableMutedStyle.Render(m.dataTable.View()), m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func buildDataTable(t *model.Table, selected, limit, width, height int) table.Model {
	cols, rows := dataTableData(t, selected, limit)
	dt := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
		table.WithFocused(true),
	)
	if width > 0 {
		dt.SetWidth(width)
	}
	dt.SetStyles(dataTableStyles())
	return dt
}

func dataTableData(t *model.Table, selected, limit int) ([]table.Column, []table.Row) {
	if t == nil || t.Width() == 0 {
		return nil, nil
	}
	n := t.Len()
	if limit > 0 && limit < n {
		n = limit
	}
	cols := make([]table.Column, 0, t.Width()+1)
	cols = append(cols, table.Column{Title: "#", Width: maxInt(1, len(strconv.Itoa(n)))})
	for i, col := range t.Columns {
		title := col.Name
		if i == selected {
			title = selectedMarker + title
		}
		width := lipgloss.Width(title)
		for r := 0; r < n; r++ {
			width = maxInt(width, lipgloss.Width(col.Cells[r].String()))
		}
		cols = append(cols, table.Column{Title: title, Width: minInt(width, maxColumnWidth)})
	}
	rows := make([]table.Row, 0, n)
	for r := 0; r < n; r++ {
		row := make(table.Row, 0, len(cols))
		row = append(row, strconv.Itoa(r))
		for _, col := range t.Columns {
			row = append(row, singleLine(col.Cells[r].String()))
		}
		rows = append(rows, row)
	}
	return cols, rows
}

func dataTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}
