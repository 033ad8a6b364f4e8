//go:build integration

package containers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// terminator is implemented by every container type in this package.
type terminator interface {
	Terminate(ctx context.Context) error
}

// Group tracks containers started by a test and terminates them in reverse
// start order.
type Group struct {
	mu      sync.Mutex
	members []namedTerminator
}

type namedTerminator struct {
	name string
	t    terminator
}

// Add registers a container for termination.
func (g *Group) Add(name string, t terminator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members = append(g.members, namedTerminator{name: name, t: t})
}

// Terminate stops every registered container, newest first, and returns
// all failures. The group is empty afterwards.
func (g *Group) Terminate(ctx context.Context) []error {
	g.mu.Lock()
	members := g.members
	g.members = nil
	g.mu.Unlock()

	var errs []error
	for i := len(members) - 1; i >= 0; i-- {
		if err := members[i].t.Terminate(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", members[i].name, err))
		}
	}
	return errs
}

// Cleanup terminates the group when t finishes.
func (g *Group) Cleanup(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, err := range g.Terminate(ctx) {
			t.Errorf("container cleanup: %v", err)
		}
	})
}
