package modeling

import (
	"context"

	engine "github.com/hacs/hacs/internal/platform/modeling"
	"github.com/hacs/hacs/pkg/models"
)

type catalogSource struct{}

// NewCatalogSource serves the built-in descriptor catalog.
func NewCatalogSource() SchemaSource { return catalogSource{} }

func (catalogSource) Name() string { return "catalog" }

func (catalogSource) Load(context.Context) ([]engine.SchemaDescriptor, error) {
	return models.Descriptors(), nil
}
