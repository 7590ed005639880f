package bvh

import (
	"math"
	"sort"
	"time"

	"github.com/jasmouth/nimbus/log"
	"github.com/jasmouth/nimbus/scene"
	"github.com/jasmouth/nimbus/types"
)

type axis uint8

const (
	xAxis axis = iota
	yAxis
	zAxis
)

const (
	// The builder will not attempt to calculate split candidates if
	// the node bbox along an axis is less than this threshold.
	minSideLength float32 = 1e-3

	// If the split step (calculated as side length / (1024 / depth+1))
	// is less than this threshold the builder will not evaluate split
	// candidates.
	minSplitStep float32 = 1e-5

	// Traversal uses a fixed-size stack; leaves are forced beyond
	// this depth.
	maxTreeDepth = 60

	// Default minimum leaf size when the caller passes 0.
	defaultMinLeafItems = 4
)

type workItem struct {
	prim   scene.Primitive
	id     int32
	min    types.Vec3
	max    types.Vec3
	center types.Vec3
}

type splitScore struct {
	axis       axis
	splitPoint float32

	leftCount, rightCount int
	score                 float32
}

type buildStats struct {
	totalItems  int
	excluded    int
	nodes       int
	leafs       int
	maxDepth    int
	partitioned int
}

type builder struct {
	logger log.Logger

	nodes   []Node
	prims   []scene.Primitive
	primIDs []int32

	minLeafItems int
	scoreChan    chan splitScore

	stats buildStats
}

// Build constructs a BVH over the primitive set using the surface
// area heuristic for scoring splits:
//
// score = item count * partition bbox face area.
//
// Degenerate primitives (zero-area faces, invalid bounds) are excluded
// from the tree instead of producing undefined intersection behavior.
// An empty primitive set yields a valid tree that reports no
// intersections.
func Build(prims []scene.Primitive, minLeafItems int) *Tree {
	if minLeafItems <= 0 {
		minLeafItems = defaultMinLeafItems
	}

	b := &builder{
		logger:       log.New("bvh"),
		nodes:        make([]Node, 0, 2*len(prims)),
		prims:        make([]scene.Primitive, 0, len(prims)),
		primIDs:      make([]int32, 0, len(prims)),
		minLeafItems: minLeafItems,
		scoreChan:    make(chan splitScore),
		stats:        buildStats{totalItems: len(prims)},
	}

	workList := b.collectItems(prims)
	if len(workList) == 0 {
		return &Tree{}
	}

	start := time.Now()
	b.partition(workList, 0)
	b.logger.Debugf(
		"tree build time: %d ms, maxDepth: %d, nodes: %d, leafs: %d, excluded: %d",
		time.Since(start).Nanoseconds()/1e6,
		b.stats.maxDepth, b.stats.nodes, b.stats.leafs, b.stats.excluded,
	)

	tree := &Tree{nodes: b.nodes, prims: b.prims, primIDs: b.primIDs}
	if err := tree.validate(); err != nil {
		b.logger.Errorf("tree validation failed: %v", err)
	}
	return tree
}

// collectItems caches bounds for valid primitives and drops degenerate
// ones.
func (b *builder) collectItems(prims []scene.Primitive) []workItem {
	type validator interface {
		Valid() bool
	}

	workList := make([]workItem, 0, len(prims))
	for idx, prim := range prims {
		if v, ok := prim.(validator); ok && !v.Valid() {
			b.stats.excluded++
			b.logger.Debugf("excluding degenerate primitive at index %d", idx)
			continue
		}

		bbox := prim.BBox()
		if !bbox[0].IsFinite() || !bbox[1].IsFinite() {
			b.stats.excluded++
			b.logger.Debugf("excluding primitive with non-finite bounds at index %d", idx)
			continue
		}

		workList = append(workList, workItem{
			prim:   prim,
			id:     int32(idx),
			min:    bbox[0],
			max:    bbox[1],
			center: prim.Centroid(),
		})
	}

	if b.stats.excluded > 0 {
		b.logger.Warningf("excluded %d degenerate primitives from tree", b.stats.excluded)
	}
	return workList
}

// partition recursively splits the work list and returns the created
// node index.
func (b *builder) partition(workList []workItem, depth int) int32 {
	if depth > b.stats.maxDepth {
		b.stats.maxDepth = depth
	}

	node := Node{
		Min:   types.XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32),
		Max:   types.XYZ(-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32),
		Left:  -1,
		Right: -1,
	}
	for _, item := range workList {
		node.Min = types.MinVec3(node.Min, item.min)
		node.Max = types.MaxVec3(node.Max, item.max)
	}

	if len(workList) <= b.minLeafItems || depth >= maxTreeDepth {
		return b.createLeaf(&node, workList)
	}

	// Score split candidates along each axis in parallel and keep
	// the best improvement over the unsplit node.
	bestScore := scorePartition(workList)
	var bestSplit *splitScore

	pendingScores := 0
	side := node.Max.Sub(node.Min)
	for ax := xAxis; ax <= zAxis; ax++ {
		if side[ax] < minSideLength {
			continue
		}

		// Split steps become more granular the deeper we go.
		splitStep := side[ax] / (1024.0 / float32(depth+1))
		if splitStep < minSplitStep {
			continue
		}

		for splitPoint := node.Min[ax]; splitPoint < node.Max[ax]; splitPoint += splitStep {
			pendingScores++
			go func(ax axis, splitPoint float32) {
				lCount, rCount, score := scoreSplit(workList, ax, splitPoint)
				b.scoreChan <- splitScore{
					axis:       ax,
					splitPoint: splitPoint,

					leftCount:  lCount,
					rightCount: rCount,
					score:      score,
				}
			}(ax, splitPoint)
		}
	}

	// Candidates arrive in scheduler order; break score ties on
	// (axis, splitPoint) so repeated builds produce the same tree.
	for ; pendingScores > 0; pendingScores-- {
		candidate := <-b.scoreChan
		if candidate.score > bestScore {
			continue
		}
		if candidate.score == bestScore &&
			(bestSplit == nil ||
				candidate.axis > bestSplit.axis ||
				(candidate.axis == bestSplit.axis && candidate.splitPoint >= bestSplit.splitPoint)) {
			continue
		}
		bestScore = candidate.score
		c := candidate
		bestSplit = &c
	}

	if bestSplit == nil {
		return b.createLeaf(&node, workList)
	}

	leftWorkList := make([]workItem, 0, bestSplit.leftCount)
	rightWorkList := make([]workItem, 0, bestSplit.rightCount)
	for _, item := range workList {
		if item.center[bestSplit.axis] < bestSplit.splitPoint {
			leftWorkList = append(leftWorkList, item)
		} else {
			rightWorkList = append(rightWorkList, item)
		}
	}

	nodeIndex := int32(len(b.nodes))
	b.nodes = append(b.nodes, node)
	b.stats.nodes++

	left := b.partition(leftWorkList, depth+1)
	right := b.partition(rightWorkList, depth+1)
	b.nodes[nodeIndex].Left = left
	b.nodes[nodeIndex].Right = right

	return nodeIndex
}

// createLeaf appends the work list primitives to the tree arrays,
// keeping insertion-index order within the leaf, and emits a leaf
// node.
func (b *builder) createLeaf(node *Node, workList []workItem) int32 {
	sort.Slice(workList, func(i, j int) bool {
		return workList[i].id < workList[j].id
	})

	node.FirstPrim = int32(len(b.prims))
	node.PrimCount = int32(len(workList))
	for _, item := range workList {
		b.prims = append(b.prims, item.prim)
		b.primIDs = append(b.primIDs, item.id)
	}

	nodeIndex := int32(len(b.nodes))
	b.nodes = append(b.nodes, *node)

	b.stats.nodes++
	b.stats.leafs++
	b.stats.partitioned += len(workList)

	return nodeIndex
}

// scoreSplit scores splitting workList at splitPoint using the surface
// area heuristic (lower is better):
//
// left count * left bbox area + right count * right bbox area.
//
// Splits that produce an empty partition get the worst possible score.
func scoreSplit(workList []workItem, ax axis, splitPoint float32) (leftCount, rightCount int, score float32) {
	lmin := types.XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32)
	rmin := lmin
	lmax := lmin.Neg()
	rmax := lmax

	for _, item := range workList {
		if item.center[ax] < splitPoint {
			leftCount++
			lmin = types.MinVec3(lmin, item.min)
			lmax = types.MaxVec3(lmax, item.max)
		} else {
			rightCount++
			rmin = types.MinVec3(rmin, item.min)
			rmax = types.MaxVec3(rmax, item.max)
		}
	}

	if leftCount == 0 || rightCount == 0 {
		return leftCount, rightCount, math.MaxFloat32
	}

	lside := lmax.Sub(lmin)
	rside := rmax.Sub(rmin)
	score = (float32(leftCount) * (lside[0]*lside[1] + lside[1]*lside[2] + lside[0]*lside[2])) +
		(float32(rightCount) * (rside[0]*rside[1] + rside[1]*rside[2] + rside[0]*rside[2]))

	return leftCount, rightCount, score
}

// scorePartition scores an unsplit work list using count * bbox area.
func scorePartition(workList []workItem) float32 {
	if len(workList) == 0 {
		return math.MaxFloat32
	}

	min := types.XYZ(math.MaxFloat32, math.MaxFloat32, math.MaxFloat32)
	max := min.Neg()
	for _, item := range workList {
		min = types.MinVec3(min, item.min)
		max = types.MaxVec3(max, item.max)
	}

	side := max.Sub(min)
	return float32(len(workList)) * (side[0]*side[1] + side[1]*side[2] + side[0]*side[2])
}

// validate walks the tree checking that every node bbox encloses its
// children. Runs once at build time; the tree is never mutated after.
func (t *Tree) validate() error {
	if len(t.nodes) == 0 {
		return nil
	}
	return t.validateNode(0)
}

func (t *Tree) validateNode(idx int32) error {
	node := &t.nodes[idx]
	if node.Leaf() {
		for i := node.FirstPrim; i < node.FirstPrim+node.PrimCount; i++ {
			bbox := t.prims[i].BBox()
			if !encloses(node.Min, node.Max, bbox[0], bbox[1]) {
				return &validationError{node: idx}
			}
		}
		return nil
	}

	for _, child := range []int32{node.Left, node.Right} {
		if !encloses(node.Min, node.Max, t.nodes[child].Min, t.nodes[child].Max) {
			return &validationError{node: idx}
		}
		if err := t.validateNode(child); err != nil {
			return err
		}
	}
	return nil
}

const bboxSlack float32 = 1e-5

func encloses(outerMin, outerMax, innerMin, innerMax types.Vec3) bool {
	for i := 0; i < 3; i++ {
		if innerMin[i] < outerMin[i]-bboxSlack || innerMax[i] > outerMax[i]+bboxSlack {
			return false
		}
	}
	return true
}

type validationError struct {
	node int32
}

func (e *validationError) Error() string {
	return "bvh: node bbox does not enclose its subtree"
}
