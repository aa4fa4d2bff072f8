package taskrun

import (
	"fmt"
	"strings"
)

// UnknownTaskError is returned when a requested target or a declared
// prerequisite has no task definition.
type UnknownTaskError struct {
	Name string
}

var _ error = (*UnknownTaskError)(nil)

func (e *UnknownTaskError) Error() string {
	return fmt.Sprintf("task %s not found", e.Name)
}

// CycleError is returned when the prerequisite graph contains a cycle. Stack
// holds the task names along the cycle, ending with the name that closed it.
type CycleError struct {
	Stack []string
}

var _ error = (*CycleError)(nil)

func (e *CycleError) Error() string {
	return fmt.Sprintf("task dependency cycle: %s", strings.Join(e.Stack, " -> "))
}

// ActionError is returned when a task command exits with a non-zero status.
// The run aborts immediately and the status becomes the process exit code.
type ActionError struct {
	TaskName string
	Cmd      string
	Status   int
}

var _ error = (*ActionError)(nil)

func (e *ActionError) Error() string {
	return fmt.Sprintf("task %s: command %q failed with status %d", e.TaskName, e.Cmd, e.Status)
}
