package cstore

// BodyNode is one node of a compiled body, carrying just enough shape for
// read-only consumers: its kind label and its encoded size in bytes.
type BodyNode struct {
	Kind string `json:"kind"`
	Size int    `json:"size"`
}

// Body is a fully-typed compiled function or constant body. Bodies are
// expensive to decode, so the store materializes each one lazily on first
// request and caches it for the rest of the session.
type Body struct {
	Owner DefId      `json:"-"`
	Nodes []BodyNode `json:"nodes"`
}

// Len returns the number of nodes in the body.
func (b *Body) Len() int { return len(b.Nodes) }
