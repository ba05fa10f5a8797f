package threads

// Message is one entry of a flat, externally sourced message list.
// ReplyToID is nil for top-level messages.
type Message[K comparable, P any] struct {
	ReplyToID *K `json:"replyToId,omitempty"`
	ID        K  `json:"id"`
	Payload   P  `json:"payload,omitempty"`
}

// Node is a message placed in the reply tree
// Supports recursive threading: Children holds direct replies in input order
type Node[K comparable, P any] struct {
	ParentID *K            `json:"parentId,omitempty"`
	ID       K             `json:"id"`
	Payload  P             `json:"payload,omitempty"`
	Children []*Node[K, P] `json:"children"`
}

// Build reconstructs the reply tree from a flat message list.
//
// A message whose ReplyToID names another message in the list becomes that
// message's child; everything else becomes a root. Roots and siblings keep
// input order, and every input message appears exactly once in the output.
//
// Malformed input is handled structurally, never rejected:
//   - a reply to an id not in the list is an orphan and becomes a root
//   - when ids repeat, replies attach to the first message with that id
//   - a reply chain that loops back on itself (including a self-reply) is
//     broken at its earliest message in input order, which becomes a root
func Build[K comparable, P any](messages []Message[K, P]) []*Node[K, P] {
	nodes := make([]*Node[K, P], len(messages))
	index := make(map[K]int, len(messages))
	for i, msg := range messages {
		nodes[i] = &Node[K, P]{
			ID:       msg.ID,
			ParentID: msg.ReplyToID,
			Payload:  msg.Payload,
			Children: []*Node[K, P]{},
		}
		if _, dup := index[msg.ID]; !dup {
			index[msg.ID] = i
		}
	}

	parent := make([]int, len(messages))
	for i, msg := range messages {
		parent[i] = -1
		if msg.ReplyToID == nil {
			continue
		}
		if p, ok := index[*msg.ReplyToID]; ok {
			parent[i] = p
		}
	}
	breakCycles(parent)

	roots := make([]*Node[K, P], 0)
	for i, node := range nodes {
		if parent[i] < 0 {
			roots = append(roots, node)
			continue
		}
		p := nodes[parent[i]]
		p.Children = append(p.Children, node)
	}
	return roots
}

// breakCycles detaches one message from every parent loop so each chain ends
// at a root. Each index is walked at most once, so this stays linear.
func breakCycles(parent []int) {
	const (
		unvisited = iota
		onPath
		settled
	)
	state := make([]int, len(parent))
	path := make([]int, 0)

	for start := range parent {
		if state[start] != unvisited {
			continue
		}

		path = path[:0]
		cur := start
		for cur >= 0 && state[cur] == unvisited {
			state[cur] = onPath
			path = append(path, cur)
			cur = parent[cur]
		}

		if cur >= 0 && state[cur] == onPath {
			// path from cur to the end is a loop; detach its earliest member
			earliest := cur
			for i := len(path) - 1; i >= 0 && path[i] != cur; i-- {
				if path[i] < earliest {
					earliest = path[i]
				}
			}
			parent[earliest] = -1
		}

		for _, i := range path {
			state[i] = settled
		}
	}
}

// Count returns the total number of nodes in the forest
func Count[K comparable, P any](roots []*Node[K, P]) int {
	n := 0
	walk(roots, 0, func(*Node[K, P], int) { n++ })
	return n
}

// Depth returns the number of levels in the forest; an empty forest has depth 0
func Depth[K comparable, P any](roots []*Node[K, P]) int {
	deepest := 0
	walk(roots, 1, func(_ *Node[K, P], depth int) {
		if depth > deepest {
			deepest = depth
		}
	})
	return deepest
}

// Flatten lists every node in depth-first pre-order, the order a nested
// thread is rendered top to bottom
func Flatten[K comparable, P any](roots []*Node[K, P]) []*Node[K, P] {
	out := make([]*Node[K, P], 0, len(roots))
	walk(roots, 0, func(n *Node[K, P], _ int) { out = append(out, n) })
	return out
}

// walk visits nodes in pre-order with an explicit stack, so deep reply
// chains cannot exhaust the goroutine stack
func walk[K comparable, P any](roots []*Node[K, P], depth int, visit func(*Node[K, P], int)) {
	type frame struct {
		node  *Node[K, P]
		depth int
	}
	stack := make([]frame, 0, len(roots))
	for i := len(roots) - 1; i >= 0; i-- {
		stack = append(stack, frame{roots[i], depth})
	}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		visit(f.node, f.depth)
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{f.node.Children[i], f.depth + 1})
		}
	}
}
