package pxweb

import (
	"context"
	"errors"
	"strings"
)

// ErrAtRoot is returned when ascending from the catalog root.
var ErrAtRoot = errors.New("navigator is at the catalog root")

// Navigator is a cursor over the catalog tree backed by an explicit path
// stack. Unlike a stateful remote session, all navigation state lives here,
// so a traversal can be re-entered or restarted from any path.
type Navigator struct {
	client *Client
	stack  []string
}

// NewNavigator creates a Navigator positioned at the catalog root.
func NewNavigator(client *Client) *Navigator {
	return &Navigator{client: client}
}

// NewNavigatorAt creates a Navigator positioned at the given dot-delimited path.
// An empty path positions the navigator at the root.
func NewNavigatorAt(client *Client, navPath string) *Navigator {
	n := &Navigator{client: client}
	if navPath != "" {
		n.stack = strings.Split(navPath, ".")
	}
	return n
}

// Descend pushes a child node id onto the path.
func (n *Navigator) Descend(id string) {
	n.stack = append(n.stack, id)
}

// Ascend pops the current node id off the path.
func (n *Navigator) Ascend() error {
	if len(n.stack) == 0 {
		return ErrAtRoot
	}
	n.stack = n.stack[:len(n.stack)-1]
	return nil
}

// Children lists the child nodes of the current path.
func (n *Navigator) Children(ctx context.Context) ([]NavItem, error) {
	return n.client.List(ctx, n.PathSegments())
}

// Path returns the current position as a dot-delimited path.
// Returns "" at the root.
func (n *Navigator) Path() string {
	return strings.Join(n.stack, ".")
}

// PathSegments returns a copy of the current path segments.
func (n *Navigator) PathSegments() []string {
	segs := make([]string, len(n.stack))
	copy(segs, n.stack)
	return segs
}
