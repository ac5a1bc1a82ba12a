package modeling

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	engine "github.com/hacs/hacs/internal/platform/modeling"
)

// SchemaSource supplies descriptors to the registry at startup.
type SchemaSource interface {
	Name() string
	Load(ctx context.Context) ([]engine.SchemaDescriptor, error)
}

// SchemaStore persists descriptors registered at runtime.
type SchemaStore interface {
	Save(ctx context.Context, d engine.SchemaDescriptor) error
}

// SourceReport is how many descriptors one source contributed.
type SourceReport struct {
	Source string `json:"source"`
	Loaded int    `json:"loaded"`
	Error  string `json:"error,omitempty"`
}

// LoadSchemas registers descriptors from each source in order. Later sources
// overwrite types registered by earlier ones. A failing source is logged and
// skipped.
func LoadSchemas(ctx context.Context, reg *engine.Registry, logger zerolog.Logger, sources ...SchemaSource) []SourceReport {
	reports := make([]SourceReport, 0, len(sources))
	for _, src := range sources {
		rep := SourceReport{Source: src.Name()}
		ds, err := src.Load(ctx)
		if err == nil {
			err = registerAll(reg, ds)
		}
		if err != nil {
			rep.Error = err.Error()
			logger.Warn().Err(err).Str("source", src.Name()).Msg("schema source skipped")
		} else {
			rep.Loaded = len(ds)
			logger.Info().Str("source", src.Name()).Int("loaded", len(ds)).Msg("schemas loaded")
		}
		reports = append(reports, rep)
	}
	return reports
}

func registerAll(reg *engine.Registry, ds []engine.SchemaDescriptor) error {
	for i, d := range ds {
		if d.ResourceType == "" {
			return fmt.Errorf("descriptor %d has no resource_type", i)
		}
	}
	return reg.RegisterAll(ds)
}
