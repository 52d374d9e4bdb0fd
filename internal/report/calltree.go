package report

import (
	"sort"
)

// MultipleEntryPoints labels the synthetic root of a forest of call trees.
const MultipleEntryPoints = "(multiple entry points)"

// CallNode is one frame of the aggregated call tree.
type CallNode struct {
	OID          uint32
	Label        string
	CallCount    int64
	TotalTime    int64
	ChildrenTime int64
	SelfTime     int64
	// Hot marks frames at or above the 95th percentile of edge total time.
	Hot      bool
	Children []*CallNode
}

// BuildCallTree merges call-graph edges into a tree. Stacks sharing a prefix
// share nodes; each edge's counters land on the node of its full stack.
// Several distinct outermost routines are joined under a synthetic root.
func BuildCallTree(edges []CallGraphEdge, names map[uint32]string) *CallNode {
	if len(edges) == 0 {
		return nil
	}

	totals := make([]int64, 0, len(edges))
	for _, e := range edges {
		totals = append(totals, e.TotalTime)
	}
	hot := percentile(totals, 0.95)

	synthetic := &CallNode{Label: MultipleEntryPoints}
	index := map[*CallNode]map[uint32]*CallNode{synthetic: {}}

	for _, e := range edges {
		node := synthetic
		for _, oid := range e.Stack {
			child, ok := index[node][oid]
			if !ok {
				child = &CallNode{OID: oid, Label: Label(names, oid)}
				index[node][oid] = child
				index[child] = map[uint32]*CallNode{}
				node.Children = append(node.Children, child)
			}
			node = child
		}
		if node == synthetic {
			continue
		}
		node.CallCount += e.CallCount
		node.TotalTime += e.TotalTime
		node.ChildrenTime += e.ChildrenTime
		node.SelfTime += e.SelfTime
		node.Hot = node.TotalTime >= hot
	}

	for _, root := range synthetic.Children {
		synthetic.CallCount += root.CallCount
		synthetic.TotalTime += root.TotalTime
	}
	sortChildren(synthetic)

	if len(synthetic.Children) == 1 {
		return synthetic.Children[0]
	}
	return synthetic
}

// sortChildren orders every level by descending total time.
func sortChildren(n *CallNode) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].TotalTime > n.Children[j].TotalTime
	})
	for _, c := range n.Children {
		sortChildren(c)
	}
}

// Walk visits n and its descendants depth-first with their depth.
func (n *CallNode) Walk(fn func(node *CallNode, depth int)) {
	var walk func(*CallNode, int)
	walk = func(node *CallNode, depth int) {
		fn(node, depth)
		for _, c := range node.Children {
			walk(c, depth+1)
		}
	}
	if n != nil {
		walk(n, 0)
	}
}

// percentile returns the p-th percentile of values.
func percentile(values []int64, p float64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int64(nil), values...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
