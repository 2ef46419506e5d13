package router

// Action tells the tree walker what to do with a node.
type Action int

const (
	// ActionKeep keeps the node, replacing its value (URL or inline text).
	ActionKeep Action = iota
	// ActionDelete removes the node from the document.
	ActionDelete
)

// Outcome is the rewrite instruction returned for a content node.
type Outcome struct {
	Action Action
	Value  string
}

// Keep keeps the node with the given value.
func Keep(value string) Outcome {
	return Outcome{Action: ActionKeep, Value: value}
}

// Delete removes the node.
func Delete() Outcome {
	return Outcome{Action: ActionDelete}
}

// IsDelete reports whether the node is to be removed.
func (o Outcome) IsDelete() bool {
	return o.Action == ActionDelete
}

// String is used in log output.
func (o Outcome) String() string {
	if o.IsDelete() {
		return "delete"
	}
	return "keep " + o.Value
}
