// Package catalog implements the bound-column model and the small set of
// in-memory virtual datasets the engine ships with ($planets,
// $satellites, $astronauts), standing in for the binder/connector
// collaborators spec.md leaves external.
package catalog

import (
	"github.com/google/uuid"

	"morselsql/internal/types"
)

// SchemaColumn is the binder's stable handle on a column: an opaque
// identity that survives rewrites, carried by every expression tree node
// and scan/projection list that references it.
type SchemaColumn struct {
	Identity  string
	Name      string
	Relation  string
	Type      types.OrsoType
	Nullable  bool
}

// NewSchemaColumn mints a fresh identity for a column introduced by the
// binder (a base table column or a computed projection alias).
func NewSchemaColumn(relation, name string, t types.OrsoType) *SchemaColumn {
	return &SchemaColumn{
		Identity: uuid.NewString(),
		Name:     name,
		Relation: relation,
		Type:     t,
		Nullable: true,
	}
}

// Connector capability flags. The optimizer queries these bit flags
// rather than doing type assertions against connector implementations
// (spec section 9, "Dynamic dispatch on connector capabilities").
type Capability uint8

const (
	CapPredicatePushable Capability = 1 << iota
	CapLimitPushable
	CapAsyncRead
	// CapSQLBacked marks a connector whose relation lives behind another
	// SQL engine (the `__type__ == "SQL"` duck-type spec.md section 6
	// describes). No strategy in this module acts on it: remote-database
	// subtree pushdown (detaching the logical plan below such a scan and
	// having the connector synthesise its own remote query) is flagged in
	// spec.md section 9 as experimental and explicitly not ported. The
	// flag exists so a future RemoteDatabasePushdown strategy has a
	// stable capability to query without any connector-facing changes.
	CapSQLBacked
)

// Connector is the minimal surface Scan/FunctionDataset nodes bind to.
// Real connectors (Parquet, ORC, CSV, JDBC, ...) are out of scope per
// spec.md section 1; this interface is the seam they would implement.
type Connector interface {
	Name() string
	Capabilities() Capability
	Schema() []*SchemaColumn
	// CanPush reports whether this connector accepts the given predicate
	// over the given pair of operand types (PredicatePushable.can_push).
	CanPush(op types.Operator, left, right types.OrsoType) bool
	// ReadDataset returns the dataset's rows as a single in-memory batch.
	// Real connectors would stream morsels; the virtual datasets are
	// small enough to materialise outright.
	ReadDataset() ([]*SchemaColumn, [][]types.Value, error)
}

func (c Capability) Has(flag Capability) bool { return c&flag != 0 }

// Catalog resolves relation names (including the leading-$ virtual
// datasets) to connectors.
type Catalog struct {
	connectors map[string]Connector
}

func New() *Catalog {
	c := &Catalog{connectors: make(map[string]Connector)}
	for _, ds := range []Connector{Planets(), Satellites(), Astronauts()} {
		c.Register(ds)
	}
	return c
}

func (c *Catalog) Register(conn Connector) { c.connectors[conn.Name()] = conn }

func (c *Catalog) Lookup(relation string) (Connector, bool) {
	conn, ok := c.connectors[relation]
	return conn, ok
}

// Names returns every registered relation name, for SHOW TABLES.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.connectors))
	for name := range c.connectors {
		out = append(out, name)
	}
	return out
}
