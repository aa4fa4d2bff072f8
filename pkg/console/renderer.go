package console

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
)

// Renderer turns zerolog JSON events into colorized console lines.
type Renderer struct {
	out     io.Writer
	verbose bool
	buffer  strings.Builder
	lock    sync.Mutex
}

func NewRenderer(out io.Writer, verbose bool) *Renderer {
	return &Renderer{out: out, verbose: verbose}
}

// Systemf prints a console-internal message.
func (r *Renderer) Systemf(format string, args ...interface{}) {
	r.lock.Lock()
	defer r.lock.Unlock()

	//nolint:errcheck
	colorstring.Fprintf(r.out, "[magenta]--- "+format+"[reset]\n", args...)
}

// Render prints one event line. Debug and trace events only show in verbose
// mode; lines that aren't valid JSON pass through as-is.
func (r *Renderer) Render(session string, line []byte) {
	r.lock.Lock()
	defer r.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(line))
	d.UseNumber()
	if err := d.Decode(&evt); err != nil {
		fmt.Fprintf(r.out, "%s | %s\n", session, line)
		return
	}

	level, _ := evt["level"].(string)
	if !r.verbose && (level == "debug" || level == "trace") {
		return
	}

	r.buffer.Reset()
	r.buffer.WriteString("[dark_gray]" + session + " |[reset] ")

	switch level {
	case "fatal", "error":
		r.buffer.WriteString("[red]")
	case "warn":
		r.buffer.WriteString("[yellow]")
	case "debug", "trace":
		r.buffer.WriteString("[blue]")
	default:
		r.buffer.WriteString("[green]")
	}

	if task, ok := evt["task"].(string); ok {
		r.buffer.WriteString(task + ": ")
	}

	if level == "error" {
		r.buffer.WriteString("Error: ")
	}

	msg, _ := evt["message"].(string)
	r.buffer.WriteString(msg)

	if errorDetails, ok := evt["error"].(string); ok {
		r.buffer.WriteString("\n")
		r.buffer.WriteString(errorDetails)
	}

	if r.verbose {
		for name, value := range evt {
			switch name {
			case "level", "message", "task", "error", "time":
				continue
			}
			r.buffer.WriteString(fmt.Sprintf(" [dark_gray]%s=%v[reset]", name, value))
		}
	}

	r.buffer.WriteString("[reset]\n")
	//nolint:errcheck
	colorstring.Fprint(r.out, r.buffer.String())
}
