// Package tui implements the interactive table pickers.
package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 20
)

// runProgram is swapped out in tests.
var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction is what the user chose to do in the picker.
type SelectionAction int

const (
	// ActionNone means the picker never reached a decision.
	ActionNone SelectionAction = iota
	// ActionSelected means one or more tables were chosen.
	ActionSelected
	// ActionSkipped means the user passed on this selection.
	ActionSkipped
	// ActionStopped means the user ended the whole run.
	ActionStopped
)

// TableInfo describes one table offered in the picker.
type TableInfo struct {
	Name    string
	Rows    int
	Columns int
}

// SelectionResult holds the result of a single-table selection.
type SelectionResult struct {
	Action    SelectionAction
	Selection *TableInfo
}

// MultiSelectionResult holds the result of a multi-table selection.
type MultiSelectionResult struct {
	Action   SelectionAction
	Selected []TableInfo
}

type tableItem struct {
	TableInfo
	marked bool
}

func (i tableItem) Title() string       { return i.Name }
func (i tableItem) FilterValue() string { return i.Name }

func (i tableItem) Description() string {
	return formatTableMetadata(i.TableInfo)
}

type pickerStyles struct {
	item        lipgloss.Style
	itemFocused lipgloss.Style
	title       lipgloss.Style
	mark        lipgloss.Style
	metadata    lipgloss.Style
	header      lipgloss.Style
	skipButton  lipgloss.Style
	stopButton  lipgloss.Style
	help        lipgloss.Style
}

var styles = newPickerStyles()

func newPickerStyles() pickerStyles {
	border := lipgloss.Border{
		Top: "-", Bottom: "-", Left: "|", Right: "|",
		TopLeft: "+", TopRight: "+", BottomLeft: "+", BottomRight: "+",
	}

	item := lipgloss.NewStyle().
		Border(border).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	button := lipgloss.NewStyle().MarginTop(1).Padding(0, 2).Bold(true)

	return pickerStyles{
		item: item,
		itemFocused: item.Copy().
			BorderForeground(lipgloss.Color("214")).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("237")),
		title:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("254")),
		mark:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("178")),
		metadata: lipgloss.NewStyle().Foreground(lipgloss.Color("247")).Faint(true),
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).MarginBottom(1),
		skipButton: button.Copy().
			Background(lipgloss.Color("178")).
			Foreground(lipgloss.Color("0")),
		stopButton: button.Copy().
			Background(lipgloss.Color("161")).
			Foreground(lipgloss.Color("230")),
		help: lipgloss.NewStyle().MarginTop(1).Foreground(lipgloss.Color("244")),
	}
}

// tableDelegate renders a two-line card per table. With showMarks set each
// title carries a checkbox reflecting the toggle state.
type tableDelegate struct {
	showMarks bool
}

func (d tableDelegate) Height() int                         { return 4 }
func (d tableDelegate) Spacing() int                        { return 1 }
func (d tableDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d tableDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	table, ok := item.(tableItem)
	if !ok {
		return
	}

	titleLine := styles.title.Render(truncate(table.Name, m.Width()-4))
	if d.showMarks {
		mark := "[ ]"
		if table.marked {
			mark = "[x]"
		}
		titleLine = lipgloss.JoinHorizontal(lipgloss.Left, styles.mark.Render(mark+" "), titleLine)
	}
	metadataLine := styles.metadata.Render(formatTableMetadata(table.TableInfo))

	frame := styles.item
	if idx == m.Index() {
		frame = styles.itemFocused
	}
	_, _ = fmt.Fprint(w, frame.Render(lipgloss.JoinVertical(lipgloss.Left, titleLine, metadataLine)))
}

func newList(items []tableItem, showMarks bool) list.Model {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	l := list.New(listItems, tableDelegate{showMarks: showMarks}, defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return l
}

type model struct {
	list   list.Model
	source string
	result SelectionResult
}

func newModel(source string, items []tableItem) *model {
	return &model{
		list:   newList(items, false),
		source: source,
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(tableItem); ok {
				table := selected.TableInfo
				m.result = SelectionResult{Action: ActionSelected, Selection: &table}
				return m, tea.Quit
			}
		case "s", "esc":
			m.result = SelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		case "ctrl+c", "q":
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(
			clamp(defaultListWidth, msg.Width-4, 40),
			clamp(defaultListHeight, msg.Height-6, 5),
		)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.header.Render("Choose a table from: "+m.source),
		m.list.View(),
		pickerButtons(),
		styles.help.Render("Up/Down navigate | Enter select | s skip | q stop"),
	)
}

type multiModel struct {
	list   list.Model
	source string
	result MultiSelectionResult
}

func newMultiModel(source string, items []tableItem) *multiModel {
	return &multiModel{
		list:   newList(items, true),
		source: source,
	}
}

func (m *multiModel) Init() tea.Cmd { return nil }

func (m *multiModel) toggleCurrent() tea.Cmd {
	idx := m.list.Index()
	if selected, ok := m.list.SelectedItem().(tableItem); ok {
		selected.marked = !selected.marked
		return m.list.SetItem(idx, selected)
	}
	return nil
}

func (m *multiModel) setAll(marked bool) tea.Cmd {
	var cmds []tea.Cmd
	for idx, item := range m.list.Items() {
		table, ok := item.(tableItem)
		if !ok {
			continue
		}
		table.marked = marked
		cmds = append(cmds, m.list.SetItem(idx, table))
	}
	return tea.Batch(cmds...)
}

func (m *multiModel) marked() []TableInfo {
	var tables []TableInfo
	for _, item := range m.list.Items() {
		if table, ok := item.(tableItem); ok && table.marked {
			tables = append(tables, table.TableInfo)
		}
	}
	return tables
}

func (m *multiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case " ":
			return m, m.toggleCurrent()
		case "a":
			return m, m.setAll(true)
		case "n":
			return m, m.setAll(false)
		case "enter":
			tables := m.marked()
			// Confirming with nothing marked takes the highlighted table
			if len(tables) == 0 {
				if selected, ok := m.list.SelectedItem().(tableItem); ok {
					tables = []TableInfo{selected.TableInfo}
				}
			}
			if len(tables) == 0 {
				m.result = MultiSelectionResult{Action: ActionSkipped}
			} else {
				m.result = MultiSelectionResult{Action: ActionSelected, Selected: tables}
			}
			return m, tea.Quit
		case "s", "esc":
			m.result = MultiSelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		case "ctrl+c", "q":
			m.result = MultiSelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.list.SetSize(
			clamp(defaultListWidth, msg.Width-4, 40),
			clamp(defaultListHeight, msg.Height-6, 5),
		)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *multiModel) View() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.header.Render("Select tables to import from: "+m.source),
		m.list.View(),
		pickerButtons(),
		styles.help.Render("Up/Down navigate | Space toggle | a all | n none | Enter confirm | s skip | q stop"),
	)
}

func pickerButtons() string {
	return lipgloss.JoinHorizontal(lipgloss.Left,
		styles.skipButton.Render(" Skip "),
		"    ",
		styles.stopButton.Render(" Stop Processing "),
	)
}

// SelectTable presents an interactive picker for a single table.
// source names where the tables came from, typically the input file.
func SelectTable(source string, tables []TableInfo) (SelectionResult, error) {
	if len(tables) == 0 {
		return SelectionResult{Action: ActionSkipped}, nil
	}

	final, err := runProgram(newModel(source, pickerItems(tables)))
	if err != nil {
		return SelectionResult{}, err
	}

	picked, ok := final.(*model)
	if !ok {
		return SelectionResult{}, fmt.Errorf("unexpected program result")
	}
	return picked.result, nil
}

// SelectTables presents an interactive picker where any number of tables can
// be toggled before confirming.
func SelectTables(source string, tables []TableInfo) (MultiSelectionResult, error) {
	if len(tables) == 0 {
		return MultiSelectionResult{Action: ActionSkipped}, nil
	}

	final, err := runProgram(newMultiModel(source, pickerItems(tables)))
	if err != nil {
		return MultiSelectionResult{}, err
	}

	picked, ok := final.(*multiModel)
	if !ok {
		return MultiSelectionResult{}, fmt.Errorf("unexpected program result")
	}
	return picked.result, nil
}

func pickerItems(tables []TableInfo) []tableItem {
	items := make([]tableItem, len(tables))
	for i, table := range tables {
		items[i] = tableItem{TableInfo: table}
	}
	return items
}

// truncate collapses runs of whitespace and cuts the value to width with an
// ellipsis.
func truncate(value string, width int) string {
	collapsed := strings.Join(strings.Fields(value), " ")
	switch {
	case width <= 0 || len(collapsed) <= width:
		return collapsed
	case width <= 3:
		return collapsed[:width]
	}
	return collapsed[:width-3] + "..."
}

// formatTableMetadata creates the metadata line with row and column counts.
func formatTableMetadata(table TableInfo) string {
	rows := "rows"
	if table.Rows == 1 {
		rows = "row"
	}
	columns := "columns"
	if table.Columns == 1 {
		columns = "column"
	}
	return fmt.Sprintf("%d %s | %d %s", table.Rows, rows, table.Columns, columns)
}

func clamp(preferred, available, minimum int) int {
	size := preferred
	if available > 0 && available < preferred {
		size = available
	}
	if size < minimum {
		return minimum
	}
	return size
}
