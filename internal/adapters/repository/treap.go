package repository

import "math/rand/v2"

// Treap index over stored scores.
//
// Ordering: TotalScore DESC, then insertion sequence ASC. "less" means
// iterates earlier, so an in-order walk yields best scores first and, among
// equal totals, the score that was stored first.

type node struct {
	rec   *record
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(a, b *record) bool {
	if a.score.TotalScore != b.score.TotalScore {
		return a.score.TotalScore > b.score.TotalScore
	}
	return a.seq < b.seq
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, rec *record) *node {
	if n == nil {
		return &node{rec: rec, prio: rand.Uint64(), size: 1} //nolint:gosec // balancing only
	}
	if less(rec, n.rec) {
		n.left = insert(n.left, rec)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, rec)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, rec *record) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.rec == rec:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, rec)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, rec)
		}
	case less(rec, n.rec):
		n.left = remove(n.left, rec)
	default:
		n.right = remove(n.right, rec)
	}
	fix(n)
	return n
}

// walk visits records in order until visit returns false.
func walk(n *node, visit func(*record) bool) bool {
	if n == nil {
		return true
	}
	if !walk(n.left, visit) {
		return false
	}
	if !visit(n.rec) {
		return false
	}
	return walk(n.right, visit)
}
