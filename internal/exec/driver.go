package exec

import (
	"morselsql/internal/catalog"
	"morselsql/internal/morsel"
)

// Driver is the single driver coroutine spec section 4.4 describes: it
// pulls morsels from the root operator until EOS, concatenating them
// into the query's result. A cancel token (ExecContext.Ctx) lets a
// caller abort mid-drain; the driver checks it between morsels, and
// ScanOperator and FilterOperator check it inside their Next loops.
type Driver struct {
	root Operator
	ctx  *ExecContext
}

func NewDriver(root Operator, ctx *ExecContext) *Driver {
	return &Driver{root: root, ctx: ctx}
}

// Run opens the operator tree, drains every morsel, and closes it,
// returning the concatenated result. Schema is read once from the root
// operator, independent of whether it ever yields a morsel.
func (d *Driver) Run() (*morsel.Morsel, error) {
	timer := d.ctx.Stats.StartExecute()
	defer timer.Stop()

	if err := d.root.Open(d.ctx); err != nil {
		return nil, err
	}
	defer d.root.Close()

	schema := d.root.OutputSchema()
	var batches []*morsel.Morsel
	for {
		if d.ctx.Cancelled() {
			break
		}
		m, err := d.root.Next()
		if err != nil {
			return nil, err
		}
		if m.IsEOS() {
			break
		}
		batches = append(batches, m)
	}
	result := morsel.Concat(schema, batches...)
	d.ctx.Stats.AddRowsReturned(int64(result.RowCount()))
	return result, nil
}

// Schema exposes the root operator's output schema without running the
// plan; Engine.Run uses it to fill Result.Schema.
func (d *Driver) Schema() []*catalog.SchemaColumn {
	return d.root.OutputSchema()
}
