package membership

import (
	"fmt"
	"slices"
	"sync"

	"github.com/ruteri/zkkb/identity"
	"github.com/ruteri/zkkb/interfaces"
)

// Group is an ordered set of member commitments with its current root.
// It is safe for concurrent use; add and remove recompute the root under the
// write lock so readers never observe a root that disagrees with the members.
type Group struct {
	mu      sync.RWMutex
	members []string
	root    string
}

// ExportedGroup is the serialized form of a Group.
type ExportedGroup struct {
	Members []string `json:"members"`
	Root    string   `json:"root,omitempty"`
}

// NewGroup creates a group from an ordered list of commitments.
func NewGroup(commitments ...string) (*Group, error) {
	g := &Group{root: EmptyRoot}
	for _, c := range commitments {
		if err := g.AddMember(c); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddMember appends a commitment. Adding an existing member is a no-op.
func (g *Group) AddMember(commitment string) error {
	if _, err := identity.ParseCommitment(commitment); err != nil {
		return err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if slices.Contains(g.members, commitment) {
		return nil
	}

	members := append(slices.Clone(g.members), commitment)
	root, err := ComputeRoot(members)
	if err != nil {
		return err
	}
	g.members, g.root = members, root
	return nil
}

// RemoveMember drops a commitment. Removing a non-member is a no-op.
func (g *Group) RemoveMember(commitment string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	idx := slices.Index(g.members, commitment)
	if idx < 0 {
		return
	}

	members := slices.Delete(slices.Clone(g.members), idx, idx+1)
	// members were validated on insert
	root, _ := ComputeRoot(members)
	g.members, g.root = members, root
}

// IsMember reports whether commitment is in the group. It does not consult the root.
func (g *Group) IsMember(commitment string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Contains(g.members, commitment)
}

// IndexOf returns the position of commitment or -1.
func (g *Group) IndexOf(commitment string) int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Index(g.members, commitment)
}

func (g *Group) Root() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.root
}

func (g *Group) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.members)
}

// Members returns a copy of the ordered commitments.
func (g *Group) Members() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.members)
}

// snapshot returns members and root as one consistent pair.
func (g *Group) snapshot() ([]string, string) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.members), g.root
}

func (g *Group) Export() ExportedGroup {
	members, root := g.snapshot()
	return ExportedGroup{Members: members, Root: root}
}

// ImportGroup rebuilds a group. A non-empty Root must match the recomputed one.
func ImportGroup(exported ExportedGroup) (*Group, error) {
	g, err := NewGroup(exported.Members...)
	if err != nil {
		return nil, err
	}
	if exported.Root != "" && !SameRoot(exported.Root, g.Root()) {
		return nil, fmt.Errorf("%w: exported root %s does not match members", interfaces.ErrInvalidInput, exported.Root)
	}
	return g, nil
}
