package scene

import (
	"github.com/bloeys/gglm/gglm"
	"github.com/bloeys/spot/resources"
)

// DirLight is a directional light. Dir is the direction light travels in,
// in the node's local space.
type DirLight struct {
	Color gglm.Vec3
	Dir   gglm.Vec3
}

// AnimateFunc mutates a node once per update, before world transforms are computed
type AnimateFunc func(n *Node, dt float32) error

// Node is a scene graph node. A node exclusively owns its children.
type Node struct {
	Name      string
	Transform Transform

	// Mesh and Material are zero on group/pivot nodes
	Mesh     resources.MeshHandle
	Material uint32

	Light *DirLight

	CastShadows bool

	// Instances, when set, draws the mesh once per matrix in a single
	// instanced draw. The matrices are relative to the node.
	Instances []gglm.Mat4

	Animate AnimateFunc

	Children []*Node

	world gglm.Mat4
}

func NewNode(name string) *Node {
	return &Node{
		Name:        name,
		Transform:   NewTransform(),
		CastShadows: true,
		world:       gglm.NewMat4Diag(1),
	}
}

func (n *Node) AddChild(children ...*Node) *Node {
	n.Children = append(n.Children, children...)
	return n
}

func (n *Node) HasMesh() bool {
	return !n.Mesh.IsZero()
}

// World is the world transform computed by the last Scene.Update
func (n *Node) World() gglm.Mat4 {
	return n.world
}

// Walk visits the node and its descendants depth first, parents before children.
// Returning false from f skips the children of that node.
func (n *Node) Walk(f func(n *Node) bool) {

	if !f(n) {
		return
	}

	for _, c := range n.Children {
		c.Walk(f)
	}
}
