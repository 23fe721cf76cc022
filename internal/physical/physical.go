// Package physical implements the thin logical-to-physical planner:
// one physical Decision per logical plan node, chosen by dispatching on
// the node's own fields (join type, key count/types, connector
// capabilities) rather than by building a second plan tree. internal/exec
// consumes these decisions directly alongside the logical plangraph.Graph
// they were computed from.
package physical

import (
	"morselsql/internal/catalog"
	"morselsql/internal/expr"
	"morselsql/internal/plangraph"
	"morselsql/internal/types"
)

// JoinAlgorithm is the physical join strategy chosen for a Join node.
type JoinAlgorithm int

const (
	SingleKeyHashJoin JoinAlgorithm = iota
	MultiKeyHashJoin
	OuterHashJoin
	CartesianJoin
	FilterJoin // semi/anti
)

func (a JoinAlgorithm) String() string {
	switch a {
	case MultiKeyHashJoin:
		return "MultiKeyHashJoin"
	case OuterHashJoin:
		return "OuterHashJoin"
	case CartesianJoin:
		return "CartesianJoin"
	case FilterJoin:
		return "FilterJoin"
	default:
		return "SingleKeyHashJoin"
	}
}

// ScanMode picks between the synchronous and async-read connector path.
type ScanMode int

const (
	SyncScan ScanMode = iota
	AsyncScan
)

// Decision carries the physical choice made for one logical node id.
type Decision struct {
	NodeID        string
	JoinAlgorithm JoinAlgorithm
	ScanMode      ScanMode
}

// Plan is the thin physical plan: the logical graph plus one Decision
// per node that needed a physical choice (Scan and Join nodes; every
// other node type has exactly one physical shape and needs none).
type Plan struct {
	Graph     *plangraph.Graph
	Decisions map[string]Decision
}

// Build walks the logical graph once and makes the physical choices
// spec section 4.3 enumerates.
func Build(g *plangraph.Graph) *Plan {
	p := &Plan{Graph: g, Decisions: make(map[string]Decision)}
	for id, n := range g.Nodes {
		switch n.Type {
		case plangraph.Scan, plangraph.FunctionDataset:
			p.Decisions[id] = Decision{NodeID: id, ScanMode: scanMode(n)}
		case plangraph.Join:
			p.Decisions[id] = Decision{NodeID: id, JoinAlgorithm: joinAlgorithm(n)}
		}
	}
	return p
}

func scanMode(n *plangraph.Node) ScanMode {
	if n.Connector != nil && n.Connector.Capabilities().Has(catalog.CapAsyncRead) {
		return AsyncScan
	}
	return SyncScan
}

// joinAlgorithm picks the physical join operator: outer joins and
// cross joins always get their dedicated operator regardless of key
// shape; semi/anti get the filter-join operator; everything else is a
// hash join, single-key when the whole condition is one equality whose
// left key is VARCHAR, multi-key otherwise.
func joinAlgorithm(n *plangraph.Node) JoinAlgorithm {
	switch n.JoinType {
	case plangraph.JoinLeft, plangraph.JoinRight, plangraph.JoinFull:
		return OuterHashJoin
	case plangraph.JoinCross:
		return CartesianJoin
	case plangraph.JoinSemi, plangraph.JoinAnti:
		return FilterJoin
	}
	if on := n.JoinOn; equalityKeyCount(on) == 1 && on.Type == expr.ComparisonOperator &&
		on.Left != nil && on.Left.ResolvedType == types.Varchar {
		return SingleKeyHashJoin
	}
	return MultiKeyHashJoin
}

// equalityKeyCount counts the top-level AND-conjoined equality
// comparisons in the join condition - the number of hash keys the
// build/probe side will combine over.
func equalityKeyCount(n *expr.Node) int {
	if n == nil {
		return 0
	}
	if n.Type == expr.And {
		return equalityKeyCount(n.Left) + equalityKeyCount(n.Right)
	}
	if n.Type == expr.ComparisonOperator && n.Op == types.Eq {
		return 1
	}
	return 0
}
