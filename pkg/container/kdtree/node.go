package kdtree

// node splits its subtree on one axis: Left holds coordinates <= Key's, Right holds >=.
type node struct {
	Key   Item
	Index int
	Left  *node
	Right *node
}

// nodes appends the subtree in order to dst.
func (n *node) nodes(dst []*node) []*node {
	if n.Left != nil {
		dst = n.Left.nodes(dst)
	}
	dst = append(dst, n)
	if n.Right != nil {
		dst = n.Right.nodes(dst)
	}
	return dst
}

// insert walks down from n, starting at axis dim, and hangs p on the first free branch.
// Equal coordinates go right, after the nodes added before them.
func (n *node) insert(p *node, dim int) {
	dims := n.Key.Dimensions()
	for cur := n; ; dim = (dim + 1) % dims {
		if p.Key.Dim(dim) < cur.Key.Dim(dim) {
			if cur.Left == nil {
				cur.Left = p
				return
			}
			cur = cur.Left
			continue
		}
		if cur.Right == nil {
			cur.Right = p
			return
		}
		cur = cur.Right
	}
}

// depth is the length of the longest path from n to a leaf.
func (n *node) depth() int {
	if n == nil {
		return 0
	}
	l, r := n.Left.depth(), n.Right.depth()
	if l > r {
		return l + 1
	}
	return r + 1
}
