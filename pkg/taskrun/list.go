package taskrun

import (
	"bytes"
	"encoding/gob"

	"github.com/rotisserie/eris"
)

// TaskList is the task registry. It keeps tasks in declaration order, which
// is the order the help listing presents them in.
type TaskList struct {
	tasks       []*Task
	index       map[string]int
	defaultName string
}

func NewTaskList() *TaskList {
	return &TaskList{index: make(map[string]int)}
}

// Add appends a task to the registry. Task names are unique; redeclaring a
// name is an error so a typo can't silently shadow an earlier task.
func (l *TaskList) Add(task *Task) error {
	if _, dup := l.index[task.Short]; dup {
		return eris.Errorf("task %s is declared twice", task.Short)
	}

	if task.Default {
		if l.defaultName != "" {
			return eris.Errorf("both %s and %s are marked as default", l.defaultName, task.Short)
		}
		l.defaultName = task.Short
	}

	l.index[task.Short] = len(l.tasks)
	l.tasks = append(l.tasks, task)
	return nil
}

// Get looks a task up by name.
func (l *TaskList) Get(name string) (*Task, bool) {
	idx, ok := l.index[name]
	if !ok {
		return nil, false
	}
	return l.tasks[idx], true
}

// Ordered returns all tasks in declaration order.
func (l *TaskList) Ordered() []*Task {
	return l.tasks
}

func (l *TaskList) Len() int {
	return len(l.tasks)
}

// Default returns the task marked with default=True, if any.
func (l *TaskList) Default() (*Task, bool) {
	if l.defaultName == "" {
		return nil, false
	}
	return l.Get(l.defaultName)
}

// listState is the gob image of a TaskList.
type listState struct {
	Tasks       []*Task
	DefaultName string
}

func (l *TaskList) GobEncode() ([]byte, error) {
	buffer := bytes.Buffer{}
	err := gob.NewEncoder(&buffer).Encode(listState{
		Tasks:       l.tasks,
		DefaultName: l.defaultName,
	})
	if err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

func (l *TaskList) GobDecode(data []byte) error {
	var state listState
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&state)
	if err != nil {
		return err
	}

	l.tasks = nil
	l.index = make(map[string]int)
	l.defaultName = ""
	for _, task := range state.Tasks {
		// Re-running Add rebuilds the index and revalidates the invariants.
		if err = l.Add(task); err != nil {
			return err
		}
	}

	l.defaultName = state.DefaultName
	return nil
}
