// Copyright 2017 Cameron Bergoon
// https://github.com/cbergoon/merkletree
// Licensed under the MIT License, see LICENCE file for details.
// This code has been cleaned up, refactored, and turned into generics.

// Package merkle provides an implementation of a merkle tree that commits an
// ordered list of values to a single digest.
//
// Leaves are the digests of the values in order. Each parent is the hash of
// the concatenation of its left and right child. When a layer holds an odd
// number of nodes the last node is paired with itself. A tree holding a
// single value has that value's digest as its root.
package merkle

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"hash"

	"github.com/ardanlabs/utxochain/foundation/blockchain/signature"
)

// Hashable represents the behavior concrete data must exhibit to be used in
// the merkle tree.
type Hashable[T any] interface {
	Hash() signature.Digest
	Equals(other T) bool
}

// ErrEmpty is returned when a tree is constructed without any values.
var ErrEmpty = errors.New("cannot construct tree with no content")

// =============================================================================

// Tree represents a merkle tree that uses data of some type T that exhibits the
// behavior defined by the Hashable constraint.
type Tree[T Hashable[T]] struct {
	Root         *Node[T]
	Leafs        []*Node[T]
	MerkleRoot   signature.Digest
	hashStrategy func() hash.Hash
}

// WithHashStrategy is used to change the default hash strategy of using sha256
// when combining two child nodes.
func WithHashStrategy[T Hashable[T]](hashStrategy func() hash.Hash) func(t *Tree[T]) {
	return func(t *Tree[T]) {
		t.hashStrategy = hashStrategy
	}
}

// NewTree constructs a new merkle tree that uses data of some type T that
// exhibits the behavior defined by the Hashable interface.
func NewTree[T Hashable[T]](values []T, options ...func(t *Tree[T])) (*Tree[T], error) {
	t := Tree[T]{
		hashStrategy: sha256.New,
	}

	for _, option := range options {
		option(&t)
	}

	if err := t.Generate(values); err != nil {
		return nil, err
	}

	return &t, nil
}

// Root calculates the merkle root for the specified values using the default
// hash strategy.
func Root[T Hashable[T]](values []T) (signature.Digest, error) {
	t, err := NewTree(values)
	if err != nil {
		return signature.ZeroHash, err
	}

	return t.MerkleRoot, nil
}

// Generate constructs the leafs and nodes of the tree from the specified
// data. If the tree has been generated previously, the tree is re-generated
// from scratch.
func (t *Tree[T]) Generate(values []T) error {
	if len(values) == 0 {
		return ErrEmpty
	}

	leafs := make([]*Node[T], len(values))
	for i, value := range values {
		leafs[i] = &Node[T]{
			Hash:  value.Hash(),
			Value: value,
			leaf:  true,
			Tree:  t,
		}
	}

	root := leafs[0]
	if len(leafs) > 1 {
		root = t.buildIntermediate(leafs)
	}

	t.Root = root
	t.Leafs = leafs
	t.MerkleRoot = root.Hash

	return nil
}

// Rebuild is a helper function that will rebuild the tree reusing only the
// data that it currently holds in the leaves.
func (t *Tree[T]) Rebuild() error {
	return t.Generate(t.Values())
}

// Proof returns the set of hashes and the order of concatenating those
// hashes for proving a value is in the tree. An order of 0 means the proof
// hash is concatenated first, an order of 1 means it is concatenated second.
//
//	h := value.Hash()
//	for i := range proof {
//	    if order[i] == 0 {
//	        h = sha256(proof[i] || h)
//	    } else {
//	        h = sha256(h || proof[i])
//	    }
//	}
//
// The calculated h should match the merkle root.
func (t *Tree[T]) Proof(data T) ([]signature.Digest, []int64, error) {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		var merkleProof []signature.Digest
		var order []int64

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			if parent.Left == node {
				merkleProof = append(merkleProof, parent.Right.Hash)
				order = append(order, 1) // right leaf, concat second.
			} else {
				merkleProof = append(merkleProof, parent.Left.Hash)
				order = append(order, 0) // left leaf, concat first.
			}
			node = parent
		}

		return merkleProof, order, nil
	}

	return nil, nil, errors.New("unable to find data in tree")
}

// Verify validates the hashes at each level of the tree and returns an error
// if the calculated root does not match the stored merkle root.
func (t *Tree[T]) Verify() error {
	if t.Root == nil {
		return ErrEmpty
	}

	if t.Root.verify() != t.MerkleRoot {
		return errors.New("root hash invalid")
	}

	return nil
}

// VerifyData indicates whether a given piece of data is in the tree and if the
// hashes on the path from its leaf to the root are valid.
func (t *Tree[T]) VerifyData(data T) error {
	for _, node := range t.Leafs {
		if !node.Value.Equals(data) {
			continue
		}

		if node.Hash != data.Hash() {
			return errors.New("leaf hash does not match the data")
		}

		for parent := node.Parent; parent != nil; parent = parent.Parent {
			if t.combine(parent.Left.Hash, parent.Right.Hash) != parent.Hash {
				return errors.New("merkle root is not equivalent to the merkle root calculated on the critical path")
			}
		}

		return nil
	}

	return errors.New("unable to find data in tree")
}

// Values returns the values stored in the tree in leaf order.
func (t *Tree[T]) Values() []T {
	values := make([]T, len(t.Leafs))
	for i, leaf := range t.Leafs {
		values[i] = leaf.Value
	}

	return values
}

// RootHex converts the merkle root to a hex encoded string.
func (t *Tree[T]) RootHex() string {
	return t.MerkleRoot.Hex()
}

// String returns a string representation of the tree. Only leaf nodes are
// included in the output.
func (t *Tree[T]) String() string {
	s := ""

	for _, l := range t.Leafs {
		s += fmt.Sprint(l)
		s += "\n"
	}

	return s
}

// MarshalText implements the TextMarshaler interface and produces a panic
// if anyone tries to marshal the Merkle tree. Use the Values function to
// return a slice that can be marshaled.
func (t *Tree[T]) MarshalText() (text []byte, err error) {
	panic("do not marshal the merkle tree, use Values")
}

// combine hashes the concatenation of two child digests. A fresh buffer is
// used for every call so the children are never overwritten.
func (t *Tree[T]) combine(left, right signature.Digest) signature.Digest {
	buf := make([]byte, 0, 2*signature.DigestLength)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)

	h := t.hashStrategy()
	h.Write(buf)

	return signature.BytesToDigest(h.Sum(nil))
}

// buildIntermediate constructs the intermediate and root levels of the tree
// for a layer of two or more nodes and returns the root node.
func (t *Tree[T]) buildIntermediate(nl []*Node[T]) *Node[T] {
	for len(nl) > 1 {
		nodes := make([]*Node[T], 0, (len(nl)+1)/2)

		for i := 0; i < len(nl); i += 2 {
			left, right := nl[i], nl[i]
			if i+1 < len(nl) {
				right = nl[i+1]
			}

			n := Node[T]{
				Left:  left,
				Right: right,
				Hash:  t.combine(left.Hash, right.Hash),
				Tree:  t,
				dup:   left == right,
			}

			left.Parent = &n
			right.Parent = &n
			nodes = append(nodes, &n)
		}

		nl = nodes
	}

	return nl[0]
}

// =============================================================================

// Node represents a node, root, or leaf in the tree. It stores pointers to its
// immediate relationships, a hash, the data if it is a leaf, and other metadata.
type Node[T Hashable[T]] struct {
	Tree   *Tree[T]
	Parent *Node[T]
	Left   *Node[T]
	Right  *Node[T]
	Hash   signature.Digest
	Value  T
	leaf   bool
	dup    bool
}

// verify walks down the tree until hitting a leaf, calculating the hash at
// each level and returning the resulting hash of the node.
func (n *Node[T]) verify() signature.Digest {
	if n.leaf {
		return n.Value.Hash()
	}

	return n.Tree.combine(n.Left.verify(), n.Right.verify())
}

// String returns a string representation of the node.
func (n *Node[T]) String() string {
	return fmt.Sprintf("%t %t %s %v", n.leaf, n.dup, n.Hash, n.Value)
}
