// Package bvh implements the bounding volume hierarchy used for
// ray-scene intersection queries. Trees are built once per scene and
// immutable afterwards, so render workers traverse them concurrently
// without locking.
package bvh

import (
	"math"

	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/types"
)

// Node is a single tree node. Nodes live in a contiguous arena and
// reference children and leaf primitive ranges by index.
type Node struct {
	// Bounding box extents; enclose the whole subtree.
	Min types.Vec3
	Max types.Vec3

	// Child node indices; -1 marks a leaf.
	Left  int32
	Right int32

	// Leaf primitive range into the tree's primitive array.
	FirstPrim int32
	PrimCount int32
}

// Leaf reports whether the node holds primitives directly.
func (n *Node) Leaf() bool {
	return n.Left < 0
}

// Tree is an immutable bounding volume hierarchy.
type Tree struct {
	nodes []Node

	// Primitives reordered by the build partition, with their
	// original insertion indices kept for deterministic tie
	// resolution.
	prims   []scene.Primitive
	primIDs []int32
}

// Nodes exposes the node arena for stats and validation.
func (t *Tree) Nodes() []Node {
	return t.nodes
}

// PrimCount returns the number of primitives indexed by the tree.
func (t *Tree) PrimCount() int {
	return len(t.prims)
}

// Intersect returns the nearest hit along ray within (tMin, tMax).
// Equal-distance ties resolve to the primitive that was inserted
// first.
func (t *Tree) Intersect(ray scene.Ray, tMin, tMax float32) (scene.HitRecord, bool) {
	return t.intersect(ray, tMin, tMax, -1)
}

// IntersectExcept behaves like Intersect but ignores the primitive
// with the given insertion index. The integrator uses it to look past
// a medium boundary it is currently marching through.
func (t *Tree) IntersectExcept(ray scene.Ray, tMin, tMax float32, exclude int32) (scene.HitRecord, bool) {
	return t.intersect(ray, tMin, tMax, exclude)
}

func (t *Tree) intersect(ray scene.Ray, tMin, tMax float32, exclude int32) (scene.HitRecord, bool) {
	if len(t.nodes) == 0 || ray.Degenerate() {
		return scene.HitRecord{}, false
	}

	var (
		best    scene.HitRecord
		found   bool
		closest = tMax
		stack   [64]int32
		top     int
	)
	stack[top] = 0
	top++

	for top > 0 {
		top--
		node := &t.nodes[stack[top]]

		if _, ok := slabTest(&ray, node.Min, node.Max, tMin, closest); !ok {
			continue
		}

		if node.Leaf() {
			end := node.FirstPrim + node.PrimCount
			for i := node.FirstPrim; i < end; i++ {
				id := t.primIDs[i]
				if id == exclude {
					continue
				}
				// Allow exact-distance ties through so the
				// insertion-order rule below decides them.
				hit, ok := t.prims[i].Intersect(ray, tMin, nextAfter32(closest))
				if !ok {
					continue
				}
				if !found || hit.T < best.T || (hit.T == best.T && id < best.Prim) {
					hit.Prim = id
					best = hit
					found = true
					closest = hit.T
				}
			}
			continue
		}

		// Visit the nearer child first so the far subtree can be
		// pruned once a close hit shrinks the interval.
		leftEnter, leftOK := slabTest(&ray, t.nodes[node.Left].Min, t.nodes[node.Left].Max, tMin, closest)
		rightEnter, rightOK := slabTest(&ray, t.nodes[node.Right].Min, t.nodes[node.Right].Max, tMin, closest)

		switch {
		case leftOK && rightOK:
			near, far := node.Left, node.Right
			if rightEnter < leftEnter {
				near, far = far, near
			}
			stack[top] = far
			top++
			stack[top] = near
			top++
		case leftOK:
			stack[top] = node.Left
			top++
		case rightOK:
			stack[top] = node.Right
			top++
		}
	}

	return best, found
}

// IntersectAny reports whether anything intersects ray within
// (tMin, tMax), returning on the first hit found. Used for occlusion
// queries where the nearest hit is irrelevant.
func (t *Tree) IntersectAny(ray scene.Ray, tMin, tMax float32) bool {
	if len(t.nodes) == 0 || ray.Degenerate() {
		return false
	}

	var (
		stack [64]int32
		top   int
	)
	stack[top] = 0
	top++

	for top > 0 {
		top--
		node := &t.nodes[stack[top]]

		if _, ok := slabTest(&ray, node.Min, node.Max, tMin, tMax); !ok {
			continue
		}

		if node.Leaf() {
			end := node.FirstPrim + node.PrimCount
			for i := node.FirstPrim; i < end; i++ {
				if _, ok := t.prims[i].Intersect(ray, tMin, tMax); ok {
					return true
				}
			}
			continue
		}

		stack[top] = node.Left
		top++
		stack[top] = node.Right
		top++
	}

	return false
}

// slabTest clips ray against the box and returns the entry distance.
// Zero direction components are handled explicitly so parallel rays
// never produce NaN interval bounds.
func slabTest(ray *scene.Ray, min, max types.Vec3, tMin, tMax float32) (float32, bool) {
	for axis := 0; axis < 3; axis++ {
		origin := ray.Origin[axis]
		dir := ray.Dir[axis]

		if dir == 0 {
			// Parallel to the slab: inside forever or outside
			// forever.
			if origin < min[axis] || origin > max[axis] {
				return 0, false
			}
			continue
		}

		invDir := 1.0 / dir
		t1 := (min[axis] - origin) * invDir
		t2 := (max[axis] - origin) * invDir
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tMin {
			tMin = t1
		}
		if t2 < tMax {
			tMax = t2
		}
		if tMin > tMax {
			return 0, false
		}
	}
	return tMin, true
}

func nextAfter32(f float32) float32 {
	return math.Nextafter32(f, float32(math.Inf(1)))
}
