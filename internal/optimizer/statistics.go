package optimizer

import (
	"time"

	"github.com/pkg/errors"

	"morselsql/internal/catalog"
)

// StatisticsManager supplies the cost model with table/column
// cardinality estimates. The interface is unchanged from the teacher's
// design; the in-memory implementation now derives its numbers from a
// catalog.Connector rather than being hand-populated by callers.
type StatisticsManager interface {
	GetTableStatistics(relation string) (*TableStatistics, error)
	GetColumnStatistics(relation, column string) (*ColumnStatistics, error)
}

type TableStatistics struct {
	Relation     string
	RowCount     int64
	LastAnalyzed time.Time
}

type ColumnStatistics struct {
	Relation       string
	ColumnName     string
	DistinctValues int64
	NullFraction   float64
}

// CatalogStatisticsManager computes table statistics on demand by
// reading each connector's dataset once and caching the result. The
// engine does not construct one; CostModel reads row counts from the
// connectors itself.
type CatalogStatisticsManager struct {
	cat   *catalog.Catalog
	cache map[string]*TableStatistics
}

func NewCatalogStatisticsManager(cat *catalog.Catalog) *CatalogStatisticsManager {
	return &CatalogStatisticsManager{cat: cat, cache: make(map[string]*TableStatistics)}
}

func (m *CatalogStatisticsManager) GetTableStatistics(relation string) (*TableStatistics, error) {
	if cached, ok := m.cache[relation]; ok {
		return cached, nil
	}
	conn, ok := m.cat.Lookup(relation)
	if !ok {
		return nil, errors.Errorf("no statistics for relation %s", relation)
	}
	_, rows, err := conn.ReadDataset()
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s to derive statistics", relation)
	}
	stats := &TableStatistics{Relation: relation, RowCount: int64(len(rows)), LastAnalyzed: time.Now()}
	m.cache[relation] = stats
	return stats, nil
}

func (m *CatalogStatisticsManager) GetColumnStatistics(relation, column string) (*ColumnStatistics, error) {
	tableStats, err := m.GetTableStatistics(relation)
	if err != nil {
		return nil, err
	}
	// Without a histogram, assume every column is as selective as the
	// whole table is large; strategies treat this as a coarse upper
	// bound rather than a precise NDV.
	return &ColumnStatistics{
		Relation:       relation,
		ColumnName:     column,
		DistinctValues: tableStats.RowCount,
		NullFraction:   0,
	}, nil
}
