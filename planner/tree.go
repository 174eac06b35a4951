package planner

import (
	"github.com/dhconnelly/rtreego"
)

// pointTolerance is the half-size of the box each tree node occupies in the R-tree.
const pointTolerance = 1e-9

// treeEntry wraps an arena index for R-tree storage.
type treeEntry struct {
	index int
	bbox  rtreego.Rect
}

// Bounds implements rtreego.Spatial interface.
func (e *treeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// Node is a tree vertex. Parent is the arena index of the node it was grown from, -1 for the root.
type Node struct {
	State  State
	Parent int
}

// Tree is a growth tree stored as an arena of nodes plus an R-tree over their states. Nodes are
// only ever appended, so every parent index is smaller than the index of its children.
type Tree struct {
	nodes []Node
	index *rtreego.Rtree
}

// NewTree creates a tree holding only root.
func NewTree(root State) *Tree {
	t := &Tree{index: rtreego.NewTree(2, 25, 50)} // 2D, min 25, max 50 entries per node
	t.insert(root, -1)
	return t
}

func (t *Tree) insert(s State, parent int) int {
	idx := len(t.nodes)
	t.nodes = append(t.nodes, Node{State: s, Parent: parent})
	t.index.Insert(&treeEntry{
		index: idx,
		bbox:  rtreego.Point{s.X, s.Y}.ToRect(pointTolerance),
	})
	return idx
}

// Add appends s as a child of the node at index parent and returns the new node's index.
func (t *Tree) Add(s State, parent int) int {
	if parent < 0 || parent >= len(t.nodes) {
		panic("planner: parent index not in tree")
	}
	return t.insert(s, parent)
}

// Len is the number of nodes in the tree.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Root returns the state the tree was grown from.
func (t *Tree) Root() State {
	return t.nodes[0].State
}

// Node returns the node at index i.
func (t *Tree) Node(i int) Node {
	return t.nodes[i]
}

// State returns the state of the node at index i.
func (t *Tree) State(i int) State {
	return t.nodes[i].State
}

// Nearest returns the index of the node closest to s. Among nodes at equal distance the one
// inserted first wins.
func (t *Tree) Nearest(s State) int {
	p := rtreego.Point{s.X, s.Y}
	nn, ok := t.index.NearestNeighbor(p).(*treeEntry)
	if !ok {
		return 0
	}
	// The R-tree gives no ordering guarantee among ties, so rescan everything within the
	// candidate's distance.
	d := t.nodes[nn.index].State.Distance(s)
	best, bestDist := nn.index, d
	for _, item := range t.index.SearchIntersect(p.ToRect(d + 2*pointTolerance)) {
		entry := item.(*treeEntry)
		dist := t.nodes[entry.index].State.Distance(s)
		if dist < bestDist || (dist == bestDist && entry.index < best) {
			best, bestDist = entry.index, dist
		}
	}
	return best
}

// PathToRoot returns the states from node i back to the root, both included.
func (t *Tree) PathToRoot(i int) Path {
	path := Path{}
	for ; i >= 0; i = t.nodes[i].Parent {
		path = append(path, t.nodes[i].State)
	}
	return path
}

// Edges returns every (parent, child) pair of the tree in insertion order of the child.
func (t *Tree) Edges() [][2]State {
	edges := make([][2]State, 0, len(t.nodes)-1)
	for _, n := range t.nodes[1:] {
		edges = append(edges, [2]State{t.nodes[n.Parent].State, n.State})
	}
	return edges
}
