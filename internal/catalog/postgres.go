package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Querier is the subset of *pgxpool.Pool the catalog needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const selectProducts = `SELECT name, variants, description, pairs_with, combo_only
FROM catalog_products
ORDER BY position`

// PostgresSource loads the catalog from the catalog_products table:
//
//	name text primary key, variants text[], description text,
//	pairs_with text[], combo_only boolean, position int
type PostgresSource struct {
	db Querier
}

func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Load(ctx context.Context) (*Catalog, error) {
	rows, err := s.db.Query(ctx, selectProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to query catalog: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		var variants, pairs []string
		if err := rows.Scan(&p.Name, &variants, &p.Description, &pairs, &p.ComboOnly); err != nil {
			return nil, fmt.Errorf("failed to scan catalog row: %w", err)
		}
		p.Variants = variants
		p.PairsWith = pairs
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}

	return New(products)
}
