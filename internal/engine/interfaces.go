// Package engine wires the binder/parser/connector seam spec.md draws
// at the edge of the core (§6 "external interfaces, consumed") to the
// optimizer and exec pipeline: Parser and Binder are defined here as
// interfaces only, since a full MySQL-flavoured SQL front end is out of
// this module's scope (internal/frontend provides a small SELECT-only
// implementation of both); Engine.Run lets a caller already holding a
// bound plangraph.Graph (from a binder, or built by hand as the tests
// do) drive Optimize+Execute end to end.
package engine

import (
	"morselsql/internal/catalog"
	"morselsql/internal/plangraph"
)

// AST is the parser's output: a statement-kind-tagged dictionary whose
// Body is left opaque here; its concrete shape belongs to the parser
// that produced it.
type AST struct {
	StatementKind string
	Body          interface{}
}

// Parser turns SQL text into an AST, after temporal range filters have
// already been extracted by ExtractTemporalRange (§6: "the parser sees
// the remainder").
type Parser interface {
	Parse(sql string) (*AST, error)
}

// Binder resolves an AST against a catalog into a bound LogicalPlan
// (here, a plangraph.Graph with every SchemaColumn identity populated)
// plus the CTE set referenced during binding.
type Binder interface {
	Bind(ast *AST, cat *catalog.Catalog) (*plangraph.Graph, error)
}

// Connector re-exports catalog.Connector under the name §6 uses for the
// Scan-consumed collaborator; the virtual datasets in internal/catalog
// are this module's only implementations.
type Connector = catalog.Connector
