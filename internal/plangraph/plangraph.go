// Package plangraph implements the logical plan as a directed acyclic
// graph of typed nodes connected by labeled edges, instead of the
// single-parent tree the teacher optimizer used. The node shape -
// one Type tag plus per-kind fields, with a toString(indent) pretty
// printer - follows internal/optimizer's original PlanType/LogicalPlan;
// the tagged-union-via-pointer-fields idiom for dispatch follows the
// polarsignals-arcticdb logical-plan optimizer pattern retrieved
// alongside the teacher.
package plangraph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"morselsql/internal/catalog"
	"morselsql/internal/expr"
)

// StepType is the closed set of logical plan node kinds.
type StepType int

const (
	Unknown StepType = iota
	Scan
	FunctionDataset
	Filter
	Project
	Aggregate
	AggregateAndGroup
	Join
	Unnest
	Limit
	Offset
	Order
	HeapSort
	Distinct
	Union
	Subquery
	CTE
	Exit
	Explain
	Set
	Show
	ShowColumns
	MetadataWriter
)

func (t StepType) String() string {
	switch t {
	case Scan:
		return "Scan"
	case FunctionDataset:
		return "FunctionDataset"
	case Filter:
		return "Filter"
	case Project:
		return "Project"
	case Aggregate:
		return "Aggregate"
	case AggregateAndGroup:
		return "AggregateAndGroup"
	case Join:
		return "Join"
	case Unnest:
		return "Unnest"
	case Limit:
		return "Limit"
	case Offset:
		return "Offset"
	case Order:
		return "Order"
	case HeapSort:
		return "HeapSort"
	case Distinct:
		return "Distinct"
	case Union:
		return "Union"
	case Subquery:
		return "Subquery"
	case CTE:
		return "CTE"
	case Exit:
		return "Exit"
	case Explain:
		return "Explain"
	case Set:
		return "Set"
	case Show:
		return "Show"
	case ShowColumns:
		return "ShowColumns"
	case MetadataWriter:
		return "MetadataWriter"
	default:
		return "Unknown"
	}
}

type JoinType int

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
	JoinCross
	JoinSemi
	JoinAnti
)

func (j JoinType) String() string {
	switch j {
	case JoinLeft:
		return "LEFT"
	case JoinRight:
		return "RIGHT"
	case JoinFull:
		return "FULL"
	case JoinCross:
		return "CROSS"
	case JoinSemi:
		return "SEMI"
	case JoinAnti:
		return "ANTI"
	default:
		return "INNER"
	}
}

type OrderDirection int

const (
	Ascending OrderDirection = iota
	Descending
)

type OrderTerm struct {
	Expr      *expr.Node
	Direction OrderDirection
}

// Node is a single logical plan step. Exactly one group of kind-specific
// fields is meaningful, selected by Type - the same discipline the
// teacher's LogicalPlan/PhysicalPlan used with TableName/FilterExpr/
// JoinCond all living on one struct.
type Node struct {
	ID   string
	Type StepType

	// Scan / FunctionDataset
	Relation  string
	Connector catalog.Connector
	Alias     string
	// Predicates are filters pushed down onto the scan by PredicatePushdown
	// once the connector's Capabilities() advertises CapPredicatePushable
	// and CanPush accepts the predicate's operator/operand types. Applied
	// at read time, below the plan node that used to carry them.
	Predicates []*expr.Node
	// ScanLimit is set by LimitPushdown once the connector advertises
	// CapLimitPushable; nil means no limit was pushed.
	ScanLimit *int64

	// Filter
	Predicate *expr.Node

	// Project
	Projections []*expr.Node

	// Aggregate / AggregateAndGroup
	GroupBy    []*expr.Node
	Aggregates []*expr.Node

	// Join
	JoinType JoinType
	JoinOn   *expr.Node

	// Unnest (cross join unnest)
	UnnestColumn *expr.Node
	UnnestAlias  string
	// UnnestElement is the bound identity of the unnested element column,
	// minted by the binder so optimizer strategies and the filter/distinct
	// rewrites below can refer to it before the exec operator exists.
	UnnestElement *catalog.SchemaColumn
	// UnnestFilters are equality/IN predicates against UnnestElement that
	// PredicatePushdown has folded into the unnest itself, applied per
	// element before the cross product's rows are materialised.
	UnnestFilters []*expr.Node
	// UnnestDistinct is set by DistinctPushdown when a Distinct directly
	// above this Unnest requires nothing but the unnested element's own
	// identity, letting the Distinct node be dropped in favor of dedup of
	// element values, across the whole input, inside the unnest.
	UnnestDistinct bool

	// Limit / Offset
	Count int64

	// Order / HeapSort
	OrderBy []OrderTerm

	// Distinct
	DistinctOn []*expr.Node

	// Union
	UnionAll bool

	// Subquery / CTE
	Name string

	// Show / ShowColumns
	ShowTarget string

	// Set
	SetKey   string
	SetValue *expr.Node

	// Estimated cost/cardinality, filled in by the cost model.
	EstimatedRows int64
	EstimatedCost float64
}

// Edge connects two nodes. Leg labels the join side the edge feeds,
// mirroring the teacher's JoinType-on-the-node design generalized to an
// explicit DAG edge so a join's two inputs are distinguishable without
// relying on slice order.
type Leg int

const (
	LegNone Leg = iota
	LegLeft
	LegRight
)

type Edge struct {
	From, To string
	Leg      Leg
}

// Graph is the logical plan DAG: nodes keyed by id, plus the edge list.
// A Graph's exit point is the node with no outgoing edges; most plans
// have exactly one, enforced by the executor's InvalidInternalStateError.
type Graph struct {
	Nodes map[string]*Node
	Edges []Edge
}

func NewGraph() *Graph {
	return &Graph{Nodes: make(map[string]*Node)}
}

func newID() string { return uuid.NewString() }

// AddNode inserts a node, minting an id if it has none, and returns the id.
func (g *Graph) AddNode(n *Node) string {
	if n.ID == "" {
		n.ID = newID()
	}
	g.Nodes[n.ID] = n
	return n.ID
}

// RemoveNode deletes a node. When heal is true, each incoming edge is
// reconnected directly to each outgoing edge's target (stitching the
// graph back together), which is how strategies like RedundantOperations
// excise a no-op Project or a trivial Filter without orphaning the rest
// of the plan.
func (g *Graph) RemoveNode(id string, heal bool) {
	if heal {
		ins := g.IngoingEdges(id)
		outs := g.OutgoingEdges(id)
		for _, in := range ins {
			for _, out := range outs {
				g.AddEdge(in.From, out.To, in.Leg)
			}
		}
	}
	next := g.Edges[:0]
	for _, e := range g.Edges {
		if e.From != id && e.To != id {
			next = append(next, e)
		}
	}
	g.Edges = next
	delete(g.Nodes, id)
}

func (g *Graph) AddEdge(from, to string, leg Leg) {
	g.Edges = append(g.Edges, Edge{From: from, To: to, Leg: leg})
}

func (g *Graph) RemoveEdge(from, to string) {
	next := g.Edges[:0]
	for _, e := range g.Edges {
		if !(e.From == from && e.To == to) {
			next = append(next, e)
		}
	}
	g.Edges = next
}

// IngoingEdges returns edges whose To is id - id's children/inputs.
func (g *Graph) IngoingEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingEdges returns edges whose From is id - id's consumers.
func (g *Graph) OutgoingEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// EntryPoints are nodes with no ingoing edges (leaf scans).
func (g *Graph) EntryPoints() []string {
	hasIn := make(map[string]bool)
	for _, e := range g.Edges {
		hasIn[e.To] = true
	}
	var out []string
	for id := range g.Nodes {
		if !hasIn[id] {
			out = append(out, id)
		}
	}
	return out
}

// ExitPoints are nodes with no outgoing edges (the plan root(s)).
func (g *Graph) ExitPoints() []string {
	hasOut := make(map[string]bool)
	for _, e := range g.Edges {
		hasOut[e.From] = true
	}
	var out []string
	for id := range g.Nodes {
		if !hasOut[id] {
			out = append(out, id)
		}
	}
	return out
}

// SingleExitPoint returns the sole exit node, or an error if the graph
// has zero or more than one - the invariant the executor relies on
// before it starts pulling from the plan.
func (g *Graph) SingleExitPoint() (string, error) {
	exits := g.ExitPoints()
	if len(exits) != 1 {
		return "", errors.Errorf("plan graph must have exactly one exit point, found %d", len(exits))
	}
	return exits[0], nil
}

// InsertNodeBefore splices n between id and all of id's current
// children, i.e. n becomes the new sole child of id.
func (g *Graph) InsertNodeBefore(n *Node, id string) string {
	nid := g.AddNode(n)
	ins := g.IngoingEdges(id)
	for _, e := range ins {
		g.RemoveEdge(e.From, e.To)
		g.AddEdge(e.From, nid, e.Leg)
	}
	g.AddEdge(nid, id, LegNone)
	return nid
}

// InsertNodeAfter splices n between id and all of id's current
// consumers, i.e. n becomes the new sole parent of id.
func (g *Graph) InsertNodeAfter(n *Node, id string) string {
	nid := g.AddNode(n)
	outs := g.OutgoingEdges(id)
	for _, e := range outs {
		g.RemoveEdge(e.From, e.To)
		g.AddEdge(nid, e.To, e.Leg)
	}
	g.AddEdge(id, nid, LegNone)
	return nid
}

// TraceToRoot walks from id following outgoing edges to the graph's
// exit point, returning the path including id and the exit node.
func (g *Graph) TraceToRoot(id string) []string {
	path := []string{id}
	cur := id
	for {
		outs := g.OutgoingEdges(cur)
		if len(outs) == 0 {
			return path
		}
		cur = outs[0].To
		path = append(path, cur)
	}
}

// DepthFirstSearchFlat returns every node reachable from id (inclusive),
// children before parents, the traversal order optimizer strategies
// walk the plan in (bottom-up, so a rewrite at a child is visible when
// its parent is visited).
func (g *Graph) DepthFirstSearchFlat(id string) []string {
	var out []string
	seen := make(map[string]bool)
	var visit func(string)
	visit = func(cur string) {
		if seen[cur] {
			return
		}
		seen[cur] = true
		for _, e := range g.IngoingEdges(cur) {
			visit(e.From)
		}
		out = append(out, cur)
	}
	visit(id)
	return out
}

// Copy returns a structurally independent deep copy of the graph,
// including fresh Node pointers (but shared expr.Node trees, which are
// treated as immutable once bound).
func (g *Graph) Copy() *Graph {
	out := NewGraph()
	for id, n := range g.Nodes {
		clone := *n
		out.Nodes[id] = &clone
	}
	out.Edges = append([]Edge(nil), g.Edges...)
	return out
}

func (g *Graph) String() string {
	root, err := g.SingleExitPoint()
	if err != nil {
		var b strings.Builder
		for id, n := range g.Nodes {
			fmt.Fprintf(&b, "%s: %s\n", id, n.Type)
		}
		return b.String()
	}
	return g.toString(root, 0)
}

func (g *Graph) toString(id string, indent int) string {
	n := g.Nodes[id]
	prefix := strings.Repeat("  ", indent)
	result := fmt.Sprintf("%s%s", prefix, describe(n))
	for _, e := range g.IngoingEdges(id) {
		result += "\n" + g.toString(e.From, indent+1)
	}
	return result
}

func describe(n *Node) string {
	switch n.Type {
	case Scan:
		return fmt.Sprintf("Scan(%s)", n.Relation)
	case Filter:
		return fmt.Sprintf("Filter(%s)", n.Predicate)
	case Join:
		return fmt.Sprintf("Join(%s, on=%s)", n.JoinType, n.JoinOn)
	case Limit:
		return fmt.Sprintf("Limit(%d)", n.Count)
	default:
		return n.Type.String()
	}
}
