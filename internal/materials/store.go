// Package materials provides the persisted material cost table consumed by
// the pricing flow. Materials are provisioned out-of-band (seeder or
// migration); the only write path here is a unit cost update.
package materials

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a material name is absent from the table.
var ErrNotFound = errors.New("material not found")

// MaterialCost is one row of the cost table, keyed by name.
type MaterialCost struct {
	Name     string  `json:"name"`
	Unit     string  `json:"unit"`
	UnitCost float64 `json:"unit_cost"`
	Currency string  `json:"currency"`
}

// Store reads and updates material costs in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store over the provided pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Get returns a single material by name.
func (s *Store) Get(ctx context.Context, name string) (MaterialCost, error) {
	const query = `SELECT name, unit, unit_cost, currency FROM materials WHERE name = $1`
	var m MaterialCost
	err := s.pool.QueryRow(ctx, query, name).Scan(&m.Name, &m.Unit, &m.UnitCost, &m.Currency)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MaterialCost{}, ErrNotFound
		}
		return MaterialCost{}, fmt.Errorf("get material %q: %w", name, err)
	}
	return m, nil
}

// BatchGet returns the materials matching the provided names. Missing names
// are simply absent from the result; the caller decides whether that is an
// error.
func (s *Store) BatchGet(ctx context.Context, names []string) (map[string]MaterialCost, error) {
	out := make(map[string]MaterialCost, len(names))
	if len(names) == 0 {
		return out, nil
	}
	const query = `SELECT name, unit, unit_cost, currency FROM materials WHERE name = ANY($1)`
	rows, err := s.pool.Query(ctx, query, names)
	if err != nil {
		return nil, fmt.Errorf("batch get materials: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var m MaterialCost
		if err := rows.Scan(&m.Name, &m.Unit, &m.UnitCost, &m.Currency); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out[m.Name] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("batch get materials: %w", err)
	}
	return out, nil
}

// List returns every material ordered by name.
func (s *Store) List(ctx context.Context) ([]MaterialCost, error) {
	const query = `SELECT name, unit, unit_cost, currency FROM materials ORDER BY name`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()
	var out []MaterialCost
	for rows.Next() {
		var m MaterialCost
		if err := rows.Scan(&m.Name, &m.Unit, &m.UnitCost, &m.Currency); err != nil {
			return nil, fmt.Errorf("scan material: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	return out, nil
}

// UpdateCost sets a new unit cost for an existing material.
func (s *Store) UpdateCost(ctx context.Context, name string, unitCost float64) error {
	const query = `UPDATE materials SET unit_cost = $2 WHERE name = $1`
	tag, err := s.pool.Exec(ctx, query, name, unitCost)
	if err != nil {
		return fmt.Errorf("update material cost %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
