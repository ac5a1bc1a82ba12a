package modeling

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	engine "github.com/hacs/hacs/internal/platform/modeling"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// Schema table layout:
//
//	CREATE TABLE resource_schema (
//	    resource_type TEXT PRIMARY KEY,
//	    fields        JSONB NOT NULL,
//	    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type PGSource struct{ db queryable }

// NewPGSource reads descriptors from the resource_schema table.
func NewPGSource(db queryable) *PGSource { return &PGSource{db: db} }

func (s *PGSource) Name() string { return "postgres:resource_schema" }

func (s *PGSource) Load(ctx context.Context) ([]engine.SchemaDescriptor, error) {
	rows, err := s.db.Query(ctx, `SELECT resource_type, fields FROM resource_schema ORDER BY resource_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.SchemaDescriptor
	for rows.Next() {
		var (
			rt  string
			raw []byte
		)
		if err := rows.Scan(&rt, &raw); err != nil {
			return nil, err
		}
		d := engine.SchemaDescriptor{ResourceType: rt}
		if err := json.Unmarshal(raw, &d.Fields); err != nil {
			return nil, fmt.Errorf("%s: decode fields: %w", rt, err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Save upserts a descriptor so it is picked up on the next load.
func (s *PGSource) Save(ctx context.Context, d engine.SchemaDescriptor) error {
	raw, err := json.Marshal(d.Fields)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO resource_schema (resource_type, fields)
		VALUES ($1, $2)
		ON CONFLICT (resource_type) DO UPDATE SET fields = EXCLUDED.fields, updated_at = NOW()`,
		d.ResourceType, raw)
	return err
}
