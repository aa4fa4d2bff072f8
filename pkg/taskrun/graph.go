package taskrun

import "github.com/rotisserie/eris"

// Node colors for the depth-first traversal.
const (
	nodeNew = iota
	nodeActive
	nodeDone
)

// Resolve validates the prerequisite graph reachable from target and returns
// the execution order: every task in the target's prerequisite closure with
// prerequisites strictly before their dependents, target last. It fails with
// UnknownTaskError if target or any reachable prerequisite is undefined and
// with CycleError if the closure contains a cycle. Nothing has run yet when
// either error is reported.
//
// Tasks that are only referenced inline through cmds are validated but not
// scheduled; the runner executes those when the referencing command comes up.
func (l *TaskList) Resolve(target string) ([]*Task, error) {
	root, ok := l.Get(target)
	if !ok {
		return nil, &UnknownTaskError{Name: target}
	}

	check := resolver{list: l, state: map[string]int{}, followRefs: true}
	if err := check.visit(root); err != nil {
		return nil, err
	}

	order := resolver{list: l, state: map[string]int{}}
	if err := order.visit(root); err != nil {
		return nil, err
	}

	return order.order, nil
}

type resolver struct {
	list       *TaskList
	state      map[string]int
	stack      []string
	order      []*Task
	followRefs bool
}

func (r *resolver) visit(task *Task) error {
	switch r.state[task.Short] {
	case nodeDone:
		return nil
	case nodeActive:
		return &CycleError{Stack: append(r.stack, task.Short)}
	}

	r.state[task.Short] = nodeActive
	r.stack = append(r.stack, task.Short)

	for _, dep := range task.Deps {
		depTask, ok := r.list.Get(dep)
		if !ok {
			return eris.Wrapf(&UnknownTaskError{Name: dep}, "required by task %s", task.Short)
		}

		if err := r.visit(depTask); err != nil {
			return err
		}
	}

	if r.followRefs {
		for _, cmd := range task.Cmds {
			ref := cmd.TaskRef()
			if ref == nil {
				continue
			}

			if err := r.visit(ref); err != nil {
				return err
			}
		}
	}

	r.stack = r.stack[:len(r.stack)-1]
	r.state[task.Short] = nodeDone
	r.order = append(r.order, task)
	return nil
}
