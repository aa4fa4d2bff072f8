package ui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/rotisserie/eris"

	"github.com/tatsuya4559/iambrowser/pkg/iam"
)

type treeRow struct {
	node  *iam.Node
	depth int
}

// treeModel is the left pane: the IAM hierarchy with lazy loading, a cursor
// and a live substring filter.
type treeModel struct {
	tree     *iam.Tree
	expanded map[*iam.Node]bool
	loading  map[*iam.Node]bool
	rows     []treeRow
	cursor   int
	filter   string
	spin     spinner.Model
	width    int
	height   int
}

func newTreeModel(tree *iam.Tree) treeModel {
	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return treeModel{
		tree:     tree,
		expanded: make(map[*iam.Node]bool),
		loading:  make(map[*iam.Node]bool),
		spin:     spin,
	}
}

func (m *treeModel) init() tea.Cmd {
	m.loading[m.tree.Root] = true
	return tea.Batch(m.spin.Tick, loadNodeCmd(m.tree.Root, false))
}

func loadNodeCmd(node *iam.Node, force bool) tea.Cmd {
	return func() tea.Msg {
		err := node.Load(context.Background(), force)
		return nodeLoadedMsg{node: node, err: err}
	}
}

func fetchDocumentCmd(entry iam.PolicyEntry) tea.Cmd {
	return func() tea.Msg {
		document, err := entry.Document(context.Background())
		return policyDocMsg{name: entry.Name(), document: document, err: err}
	}
}

func (m *treeModel) setSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *treeModel) setFilter(filter string) {
	m.filter = filter
	m.rebuildRows()
}

// visible implements the filter rule: structural entries always show,
// filterable entries must contain the query.
func (m *treeModel) visible(node *iam.Node) bool {
	if m.filter == "" || !node.Entry.Filterable() {
		return true
	}

	return strings.Contains(node.Entry.Name(), m.filter)
}

func (m *treeModel) rebuildRows() {
	m.rows = m.rows[:0]
	m.appendRows(m.tree.Root, 0)

	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *treeModel) appendRows(node *iam.Node, depth int) {
	for _, child := range node.Children {
		if !m.visible(child) {
			continue
		}

		m.rows = append(m.rows, treeRow{node: child, depth: depth})
		if m.expanded[child] && child.Loaded() {
			m.appendRows(child, depth+1)
		}
	}
}

func (m *treeModel) cursorNode() *iam.Node {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return nil
	}

	return m.rows[m.cursor].node
}

func (m *treeModel) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if len(m.loading) == 0 {
			return nil
		}

		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return cmd

	case nodeLoadedMsg:
		delete(m.loading, msg.node)
		if msg.err == nil {
			m.expanded[msg.node] = true
		}
		m.rebuildRows()
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return nil
}

func (m *treeModel) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case key.Matches(msg, keys.Top):
		m.cursor = 0
	case key.Matches(msg, keys.Bottom):
		m.cursor = len(m.rows) - 1
	case key.Matches(msg, keys.Select):
		return m.selectCurrent()
	case key.Matches(msg, keys.Reload):
		return m.reloadCurrent()
	}

	return nil
}

// selectCurrent expands or collapses the node under the cursor. Selecting a
// policy leaf loads its document instead.
func (m *treeModel) selectCurrent() tea.Cmd {
	node := m.cursorNode()
	if node == nil {
		return nil
	}

	if entry, ok := node.Entry.(iam.PolicyEntry); ok {
		return fetchDocumentCmd(entry)
	}

	if m.expanded[node] {
		m.expanded[node] = false
		m.rebuildRows()
		return nil
	}

	if node.Loaded() {
		m.expanded[node] = true
		m.rebuildRows()
		return nil
	}

	if m.loading[node] {
		return nil
	}

	m.loading[node] = true
	return tea.Batch(m.spin.Tick, loadNodeCmd(node, false))
}

// reloadCurrent drops the cursor node's children and fetches fresh data.
func (m *treeModel) reloadCurrent() tea.Cmd {
	node := m.cursorNode()
	if node == nil || node.Leaf() || m.loading[node] {
		return nil
	}

	m.loading[node] = true
	return tea.Batch(m.spin.Tick, loadNodeCmd(node, true))
}

func (m *treeModel) render() string {
	if len(m.rows) == 0 {
		if len(m.loading) > 0 {
			return loadingStyle.Render(m.spin.View() + " loading profiles...")
		}
		return statusBarStyle.Render("no profiles found")
	}

	// keep the cursor inside the visible window
	top := 0
	if m.cursor >= m.height {
		top = m.cursor - m.height + 1
	}

	lines := make([]string, 0, m.height)
	for idx := top; idx < len(m.rows) && idx-top < m.height; idx++ {
		row := m.rows[idx]
		lines = append(lines, m.renderRow(row, idx == m.cursor))
	}

	return strings.Join(lines, "\n")
}

func (m *treeModel) renderRow(row treeRow, selected bool) string {
	builder := strings.Builder{}
	builder.WriteString(strings.Repeat("  ", row.depth))

	switch {
	case m.loading[row.node]:
		builder.WriteString(m.spin.View())
	case row.node.Leaf():
		builder.WriteString("  ")
	case m.expanded[row.node]:
		builder.WriteString("▾ ")
	default:
		builder.WriteString("▸ ")
	}

	builder.WriteString(row.node.Entry.Name())

	// truncate by display width, the markers and names can hold wide runes
	line := builder.String()
	if m.width > 0 {
		line = runewidth.Truncate(line, m.width, "")
	}

	switch {
	case selected:
		return cursorLineStyle.Render(line)
	case row.node.Leaf():
		return leafStyle.Render(line)
	default:
		return branchStyle.Render(line)
	}
}

// errorText renders a load failure the way the document pane expects it.
func errorText(err error) string {
	return errorStyle.Render(eris.ToString(err, true))
}
