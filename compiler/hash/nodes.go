package hash

// ---------------------------------------------------------------------------
// Frozen hashing AST.
//
// A position-free parallel of compiler/ast.go. Every node has the same
// shape so the tree encodes directly as CBOR: a tag, an optional text
// payload (names, operators, raw string literals), an optional numeric
// payload, and ordered children. Absent optional children are explicit
// TagAbsent nodes so that child positions stay fixed per tag.
// ---------------------------------------------------------------------------

// HNode is one node of the hashing AST.
type HNode struct {
	Tag  byte     `cbor:"1,keyasint"`
	Text string   `cbor:"2,keyasint,omitempty"`
	Num  float64  `cbor:"3,keyasint,omitempty"`
	Kids []*HNode `cbor:"4,keyasint,omitempty"`
}

var absent = &HNode{Tag: TagAbsent}

// Equal reports whether two hashing trees are structurally identical.
func (n *HNode) Equal(other *HNode) bool {
	if n == nil || other == nil {
		return n == other
	}
	if n.Tag != other.Tag || n.Text != other.Text || n.Num != other.Num || len(n.Kids) != len(other.Kids) {
		return false
	}
	for i := range n.Kids {
		if !n.Kids[i].Equal(other.Kids[i]) {
			return false
		}
	}
	return true
}

// Count returns the number of nodes in the tree.
func (n *HNode) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, k := range n.Kids {
		total += k.Count()
	}
	return total
}
