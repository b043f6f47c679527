package scene

// Node is one element of a scene graph.
type Node struct {
	ID       uint32
	Kind     string
	Name     string
	Time     float64 // presentation offset in seconds, for decoded nodes
	Payload  []byte
	Children []*Node
}

// Graph is the live node tree a Scene renders. It is mutated only on the
// compositor goroutine.
type Graph struct {
	root   *Node
	nextID uint32
	count  int
}

// NewGraph returns a graph with an empty top-level group.
func NewGraph() *Graph {
	g := &Graph{}
	g.Reset()
	return g
}

// Reset discards every node and installs a fresh top-level group.
func (g *Graph) Reset() {
	g.nextID = 0
	g.count = 0
	g.root = g.newNode("OrderedGroup", "root")
}

func (g *Graph) newNode(kind, name string) *Node {
	g.nextID++
	g.count++
	return &Node{ID: g.nextID, Kind: kind, Name: name}
}

// Root returns the top-level group.
func (g *Graph) Root() *Node { return g.root }

// Add creates a node under parent. A nil parent means the root.
func (g *Graph) Add(parent *Node, kind, name string) *Node {
	if parent == nil {
		parent = g.root
	}
	n := g.newNode(kind, name)
	parent.Children = append(parent.Children, n)
	return n
}

// Len returns the number of nodes created since the last Reset, root
// included.
func (g *Graph) Len() int { return g.count }

// Walk visits every node depth first, root first. Returning false from fn
// stops the walk.
func (g *Graph) Walk(fn func(n *Node) bool) {
	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		if !fn(n) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c) {
				return false
			}
		}
		return true
	}
	visit(g.root)
}
