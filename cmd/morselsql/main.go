// Command morselsql is the query-engine CLI §6 specifies: a single
// trailing SQL argument, run through the parser/binder/optimizer/
// executor pipeline, with flags controlling output destination,
// colour, per-query statistics, repeat count, and result-table sizing.
// Built on Cobra/Viper for flag, environment, and config-file binding,
// replacing the teacher's hand-rolled flag loop in cmd/relational-db -
// the pack's codenerd reference shows the same Cobra+Viper combination
// for CLI entrypoints (see DESIGN.md).
package main

import (
	"fmt"
	"os"

	"morselsql/internal/engineerrors"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if sqlErr, ok := err.(*engineerrors.SqlError); ok {
			fmt.Fprintln(os.Stderr, sqlErr.Error())
			os.Exit(exitCodeFor(sqlErr.Kind))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// exitCodeFor maps an engine error kind to a process exit code: 2 for
// a query the user asked for that is simply invalid/denied, 1 for
// everything else (parse errors, internal failures).
func exitCodeFor(kind engineerrors.Kind) int {
	switch kind {
	case engineerrors.PermissionsError, engineerrors.UnsupportedSyntaxError,
		engineerrors.ColumnNotFoundError, engineerrors.AmbiguousIdentifierError,
		engineerrors.DatasetNotFoundError, engineerrors.MissingSqlStatement:
		return 2
	default:
		return 1
	}
}
