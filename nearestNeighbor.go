package tvplan

import (
	"sort"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/spatial/kdtree"
)

// kdPoint adapts a tree node to the kd-tree's Comparable interface. Query
// points carry a nil node.
type kdPoint struct {
	point r3.Vector
	node  *node
}

func (k kdPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	other := c.(kdPoint)
	switch d {
	case 0:
		return k.point.X - other.point.X
	case 1:
		return k.point.Y - other.point.Y
	default:
		return k.point.Z - other.point.Z
	}
}

func (k kdPoint) Dims() int { return 3 }

func (k kdPoint) Distance(c kdtree.Comparable) float64 {
	other := c.(kdPoint)
	return k.point.Sub(other.point).Norm2()
}

// nodeIndex is the spatial index the sampling planner queries for nearest
// neighbors. Insert-only during a Plan call; each call owns its own index.
type nodeIndex struct {
	tree *kdtree.Tree
}

func newNodeIndex() *nodeIndex {
	return &nodeIndex{tree: &kdtree.Tree{}}
}

func (ni *nodeIndex) insert(n *node) {
	ni.tree.Insert(kdPoint{point: n.point, node: n}, false)
}

func (ni *nodeIndex) len() int {
	return ni.tree.Len()
}

// kNearest returns up to k tree nodes nearest p, closest first.
func (ni *nodeIndex) kNearest(p r3.Vector, k int) []*node {
	if k <= 0 || ni.tree.Len() == 0 {
		return nil
	}
	keeper := kdtree.NewNKeeper(k)
	ni.tree.NearestSet(keeper, kdPoint{point: p})

	nearest := make([]*node, 0, k)
	for _, c := range keeper.Heap {
		if c.Comparable == nil {
			continue
		}
		nearest = append(nearest, c.Comparable.(kdPoint).node)
	}
	sort.Slice(nearest, func(i, j int) bool {
		return nearest[i].point.Sub(p).Norm2() < nearest[j].point.Sub(p).Norm2()
	})
	return nearest
}
