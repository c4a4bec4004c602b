package vdom

// Walk visits node and its descendants depth-first, in document order.
// Returning false from fn skips the node's children.
func Walk(node *VNode, fn func(n *VNode) bool) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for _, c := range node.Children {
		Walk(c, fn)
	}
}

// Find returns the first element under root (root included) matching pred.
func Find(root *VNode, pred func(n *VNode) bool) *VNode {
	var found *VNode
	Walk(root, func(n *VNode) bool {
		if found != nil {
			return false
		}
		if n.IsElement() && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// FindAll returns every element under root (root included) matching pred.
func FindAll(root *VNode, pred func(n *VNode) bool) []*VNode {
	var out []*VNode
	Walk(root, func(n *VNode) bool {
		if n.IsElement() && pred(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// ParentOf returns the parent of child under root and child's index, or (nil, -1).
func ParentOf(root, child *VNode) (*VNode, int) {
	var parent *VNode
	idx := -1
	Walk(root, func(n *VNode) bool {
		if parent != nil {
			return false
		}
		for i, c := range n.Children {
			if c == child {
				parent, idx = n, i
				return false
			}
		}
		return true
	})
	return parent, idx
}

// Contains reports whether node is root or one of its descendants.
func Contains(root, node *VNode) bool {
	found := false
	Walk(root, func(n *VNode) bool {
		if n == node {
			found = true
		}
		return !found
	})
	return found
}
