package ui

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rotisserie/eris"
)

// documentModel renders the selected policy document in a scrollable pane
// with JSON highlighting and line numbers.
type documentModel struct {
	view  viewport.Model
	raw   string
	ready bool
}

func newDocumentModel() documentModel {
	return documentModel{view: viewport.New(0, 0)}
}

func (m *documentModel) setSize(width, height int) {
	m.view.Width = width
	m.view.Height = height
	m.ready = true
}

// setDocument highlights and shows the given document. The raw text is kept
// for the clipboard.
func (m *documentModel) setDocument(document string) error {
	rendered, err := renderDocument(document)
	if err != nil {
		m.raw = ""
		m.view.SetContent(errorStyle.Render(eris.ToString(err, false)))
		m.view.GotoTop()
		return err
	}

	m.raw = document
	m.view.SetContent(rendered)
	m.view.GotoTop()
	return nil
}

func (m *documentModel) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return cmd
}

func (m *documentModel) render() string {
	if !m.ready {
		return ""
	}

	return m.view.View()
}

// renderDocument highlights the JSON document and prefixes every line with
// its number.
func renderDocument(document string) (string, error) {
	highlighted := strings.Builder{}
	err := quick.Highlight(&highlighted, document, "json", "terminal256", "github-dark")
	if err != nil {
		return "", eris.Wrap(err, "failed to highlight the document")
	}

	lines := strings.Split(strings.TrimRight(highlighted.String(), "\n"), "\n")
	width := len(fmt.Sprintf("%d", len(lines)))

	result := strings.Builder{}
	for idx, line := range lines {
		result.WriteString(statusBarStyle.Render(fmt.Sprintf("%*d │ ", width, idx+1)))
		result.WriteString(line)
		result.WriteString("\n")
	}

	return result.String(), nil
}
