package runtime

// Task wraps a cooperative task handle so scripts can pass tasks
// through variables and await them. The handle is owned by the event
// loop; the runtime package only carries it.
type Task struct {
	Name   string
	Handle any
}

func (t *Task) Kind() Kind { return TaskKind }
func (t *Task) String() string {
	if t.Name != "" {
		return "<task " + t.Name + ">"
	}
	return "<task>"
}
