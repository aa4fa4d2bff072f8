// Package ui implements the iambrowser terminal interface: a lazily loaded
// IAM tree on the left, the selected policy document on the right and a live
// search box at the bottom.
package ui

import (
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/tatsuya4559/iambrowser/pkg/config"
	"github.com/tatsuya4559/iambrowser/pkg/iam"
)

type focusArea int

const (
	focusTree focusArea = iota
	focusSearch
)

// ConfigReloadedMsg is sent from outside the program (the dev-mode config
// watcher) when the configuration changed on disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}

// App is the bubbletea root model.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger
	dial   iam.Dialer

	tree   treeModel
	doc    documentModel
	search textinput.Model

	focus    focusArea
	subtitle string
	failed   bool
	width    int
	height   int
}

// New builds the application model. The profile list is read immediately,
// everything below a profile loads on demand.
func New(cfg *config.Config, logger *zerolog.Logger, dial iam.Dialer) (App, error) {
	search := textinput.New()
	search.Placeholder = "filter entries"
	search.Prompt = "/ "

	app := App{
		cfg:    cfg,
		logger: logger,
		dial:   dial,
		doc:    newDocumentModel(),
		search: search,
	}

	tree, err := app.buildTree()
	if err != nil {
		return App{}, err
	}

	app.tree = newTreeModel(tree)
	return app, nil
}

func (a *App) buildTree() (*iam.Tree, error) {
	profiles, err := iam.Profiles()
	if err != nil {
		return nil, err
	}

	visible := make([]string, 0, len(profiles))
	for _, profile := range profiles {
		if !a.cfg.IsIgnored(profile) {
			visible = append(visible, profile)
		}
	}

	return iam.NewTree(visible, a.dial), nil
}

func (a App) Init() tea.Cmd {
	return a.tree.init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case ConfigReloadedMsg:
		a.cfg = msg.Config
		a.logger.Info().Msg("applying updated configuration")

		tree, err := a.buildTree()
		if err != nil {
			a.logger.Error().Err(err).Msg("failed to rebuild the profile tree")
			return a, nil
		}

		filter := a.tree.filter
		a.tree = newTreeModel(tree)
		a.tree.setFilter(filter)
		a.layout()
		return a, a.tree.init()

	case nodeLoadedMsg:
		if msg.err != nil {
			a.logger.Error().Err(msg.err).Msg("failed to load a tree node")
			a.subtitle = "ERROR"
			a.failed = true
			a.doc.view.SetContent(errorText(msg.err))
		}
		return a, a.tree.update(msg)

	case policyDocMsg:
		if msg.err != nil {
			a.logger.Error().Err(msg.err).Str("policy", msg.name).Msg("failed to load the policy document")
			a.subtitle = "ERROR"
			a.failed = true
			a.doc.view.SetContent(errorText(msg.err))
			return a, nil
		}

		if err := a.doc.setDocument(msg.document); err != nil {
			a.logger.Error().Err(err).Str("policy", msg.name).Msg("failed to render the policy document")
			a.subtitle = "ERROR"
			a.failed = true
			return a, nil
		}

		a.subtitle = msg.name
		a.failed = false
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, a.tree.update(msg)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.focus == focusSearch {
		switch {
		case key.Matches(msg, keys.Back), key.Matches(msg, keys.Select):
			a.focus = focusTree
			a.search.Blur()
			return a, nil
		default:
			var cmd tea.Cmd
			a.search, cmd = a.search.Update(msg)
			a.tree.setFilter(a.search.Value())
			return a, cmd
		}
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return a, tea.Quit
	case key.Matches(msg, keys.Search):
		a.focus = focusSearch
		return a, a.search.Focus()
	case key.Matches(msg, keys.Copy):
		if a.doc.raw != "" {
			if err := clipboard.WriteAll(a.doc.raw); err != nil {
				a.logger.Error().Err(err).Msg("failed to copy the document to the clipboard")
			}
		}
		return a, nil
	case key.Matches(msg, keys.ScrollU), key.Matches(msg, keys.ScrollD):
		return a, a.doc.update(msg)
	}

	return a, a.tree.update(msg)
}

func (a *App) layout() {
	contentHeight := a.height - 3 // header, search, footer
	if contentHeight < 0 {
		contentHeight = 0
	}

	treeWidth := a.width / 3
	a.tree.setSize(treeWidth, contentHeight)
	a.doc.setSize(a.width-treeWidth-1, contentHeight)
	a.search.Width = a.width - 4
}

func (a App) View() string {
	title := headerStyle.Render("iambrowser")
	subtitle := ""
	if a.subtitle != "" {
		if a.failed {
			subtitle = errorTitleStyle.Render(a.subtitle)
		} else {
			subtitle = subtitleStyle.Render(a.subtitle)
		}
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, subtitle)

	contentHeight := a.height - 3
	if contentHeight < 0 {
		contentHeight = 0
	}

	treePane := treePaneStyle.
		Width(a.width / 3).
		Height(contentHeight).
		Render(a.tree.render())
	docPane := lipgloss.NewStyle().
		Height(contentHeight).
		Render(a.doc.render())
	content := lipgloss.JoinHorizontal(lipgloss.Top, treePane, docPane)

	footer := statusBarStyle.Render(renderHelp())

	return lipgloss.JoinVertical(lipgloss.Left, header, content, a.search.View(), footer)
}

func renderHelp() string {
	items := ""
	for idx, binding := range keys.helpItems() {
		if idx > 0 {
			items += " • "
		}
		items += binding.Help().Key + " " + binding.Help().Desc
	}

	return items
}
