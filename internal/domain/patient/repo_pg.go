package patient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultCollectionName is the patient_collection row used by the server.
const DefaultCollectionName = "default"

type pgRepo struct {
	pool *pgxpool.Pool
	name string
}

// NewPatientRepoPG keeps the snapshot in one row of patient_collection. The
// column is json rather than jsonb so the document keeps its key order.
func NewPatientRepoPG(pool *pgxpool.Pool, name string) PatientRepository {
	if name == "" {
		name = DefaultCollectionName
	}
	return &pgRepo{pool: pool, name: name}
}

func (r *pgRepo) Load(ctx context.Context) (*Collection, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT data FROM patient_collection WHERE name = $1`, r.name,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return NewCollection(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load patient collection %q: %w", r.name, err)
	}
	c := NewCollection()
	if err := json.Unmarshal(raw, c); err != nil {
		return nil, fmt.Errorf("parse patient collection %q: %w", r.name, err)
	}
	return c, nil
}

func (r *pgRepo) Save(ctx context.Context, c *Collection) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode patients: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO patient_collection (name, data, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()`,
		r.name, string(data),
	)
	if err != nil {
		return fmt.Errorf("save patient collection %q: %w", r.name, err)
	}
	return nil
}
