package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/morsel"
)

// Operator is the pull-based Volcano/iterator interface every physical
// operator implements (spec section 4.4, "each operator exposes a pull
// execute() method yielding morsels"). OutputSchema is fixed at
// construction time from the logical plan, letting join/union
// operators learn their children's column shape without having to pull
// a morsel first.
type Operator interface {
	Open(ctx *ExecContext) error
	Next() (*morsel.Morsel, error)
	Close() error
	OutputSchema() []*catalog.SchemaColumn
}
