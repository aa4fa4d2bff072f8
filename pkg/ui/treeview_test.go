package ui

import (
	"context"
	"testing"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tatsuya4559/iambrowser/pkg/iam"
)

type stubClient struct {
	users    []string
	roles    []string
	inline   map[string][]iam.InlinePolicy
	attached map[string][]iam.AttachedPolicy
}

var _ iam.Client = (*stubClient)(nil)

func (s *stubClient) Users(ctx context.Context) ([]string, error) { return s.users, nil }
func (s *stubClient) Roles(ctx context.Context) ([]string, error) { return s.roles, nil }

func (s *stubClient) InlinePolicies(ctx context.Context, kind iam.PrincipalKind, principal string) ([]iam.InlinePolicy, error) {
	return s.inline[principal], nil
}

func (s *stubClient) AttachedPolicies(ctx context.Context, kind iam.PrincipalKind, principal string) ([]iam.AttachedPolicy, error) {
	return s.attached[principal], nil
}

func (s *stubClient) PolicyDocument(ctx context.Context, arn string) (string, error) {
	return "{}", nil
}

func newTestTree(t *testing.T) *iam.Tree {
	t.Helper()

	client := &stubClient{
		users: []string{"alice", "bob"},
		inline: map[string][]iam.InlinePolicy{
			"alice": {{Name: "inline-a", Document: `{"Version": "2012-10-17"}`}},
		},
	}

	tree := iam.NewTree([]string{"dev"}, func(ctx context.Context, profile string) (iam.Client, error) {
		return client, nil
	})
	require.NoError(t, tree.Root.Load(context.Background(), false))
	return tree
}

// loadAndExpand drives the model the way Update does when a load finishes.
func loadAndExpand(t *testing.T, m *treeModel, node *iam.Node) {
	t.Helper()

	require.NoError(t, node.Load(context.Background(), false))
	m.update(nodeLoadedMsg{node: node})
}

func rowNames(m *treeModel) []string {
	result := make([]string, len(m.rows))
	for idx, row := range m.rows {
		result[idx] = row.node.Entry.Name()
	}

	return result
}

func expandedTestModel(t *testing.T) *treeModel {
	t.Helper()

	tree := newTestTree(t)
	m := newTreeModel(tree)
	m.setSize(60, 20)
	m.rebuildRows()

	profile := tree.Root.Children[0]
	loadAndExpand(t, &m, profile)
	loadAndExpand(t, &m, profile.Children[0]) // users
	loadAndExpand(t, &m, profile.Children[0].Children[0])
	return &m
}

func TestTreeRowsFollowExpandedNodes(t *testing.T) {
	m := expandedTestModel(t)
	assert.Equal(t, []string{"dev", "users", "alice", "inline-a", "bob", "roles"}, rowNames(m))
}

func TestTreeFilterHidesOnlyFilterableEntries(t *testing.T) {
	m := expandedTestModel(t)
	m.setFilter("ali")

	// structural nodes (profile, sections) stay, bob disappears
	assert.Equal(t, []string{"dev", "users", "alice", "inline-a", "roles"}, rowNames(m))

	m.setFilter("")
	assert.Equal(t, []string{"dev", "users", "alice", "inline-a", "bob", "roles"}, rowNames(m))
}

func TestTreeFilterClampsCursor(t *testing.T) {
	m := expandedTestModel(t)
	m.cursor = len(m.rows) - 1

	m.setFilter("inline-a")
	require.NotEmpty(t, m.rows)
	assert.Less(t, m.cursor, len(m.rows))
}

func TestSelectPolicyLeafEmitsDocument(t *testing.T) {
	m := expandedTestModel(t)

	// move the cursor onto the inline policy leaf
	for idx, row := range m.rows {
		if row.node.Entry.Name() == "inline-a" {
			m.cursor = idx
		}
	}

	cmd := m.selectCurrent()
	require.NotNil(t, cmd)

	msg, ok := cmd().(policyDocMsg)
	require.True(t, ok)
	assert.Equal(t, "inline-a", msg.name)
	assert.Equal(t, `{"Version": "2012-10-17"}`, msg.document)
	assert.NoError(t, msg.err)
}

func TestSelectBranchTogglesExpansion(t *testing.T) {
	m := expandedTestModel(t)
	require.Equal(t, "dev", m.rows[0].node.Entry.Name())
	m.cursor = 0

	// collapse the profile: only the profile row remains
	cmd := m.selectCurrent()
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"dev"}, rowNames(m))

	// expanding again restores the loaded children without a reload
	cmd = m.selectCurrent()
	assert.Nil(t, cmd)
	assert.Equal(t, []string{"dev", "users", "alice", "inline-a", "bob", "roles"}, rowNames(m))
}

func TestReloadRebuildsAndKeepsFilter(t *testing.T) {
	m := expandedTestModel(t)
	m.setFilter("ali")
	m.cursor = 0

	cmd := m.reloadCurrent()
	require.NotNil(t, cmd)

	msg, ok := cmd().(nodeLoadedMsg)
	require.True(t, ok)
	require.NoError(t, msg.err)
	m.update(msg)

	// the reloaded subtree collapses to the profile row, the filter stays
	assert.Equal(t, "ali", m.filter)
	assert.Contains(t, rowNames(m), "dev")
}

func TestKeyNavigation(t *testing.T) {
	m := expandedTestModel(t)

	m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	assert.Equal(t, 1, m.cursor)

	m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, m.cursor)

	m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'G'}})
	assert.Equal(t, len(m.rows)-1, m.cursor)

	m.update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'g'}})
	assert.Equal(t, 0, m.cursor)
}

type wideNameEntry struct{}

func (wideNameEntry) Name() string     { return "ポリシー一覧テーブル" }
func (wideNameEntry) Filterable() bool { return true }

func (wideNameEntry) LoadChildren(ctx context.Context) ([]iam.Entry, error) {
	return nil, nil
}

func TestRenderRowTruncatesByDisplayWidth(t *testing.T) {
	m := newTreeModel(iam.NewTree(nil, nil))
	m.setSize(8, 20)

	row := treeRow{node: &iam.Node{Entry: wideNameEntry{}}}
	line := m.renderRow(row, false)

	assert.True(t, utf8.ValidString(line))
	assert.LessOrEqual(t, lipgloss.Width(line), 8)
	// the expansion marker survives, only the name is cut
	assert.Contains(t, line, "▸")
}
