package organization

import (
	"github.com/outlinehq/outliner/internal/organization/repository"
	"github.com/outlinehq/outliner/internal/organization/service"
	"go.uber.org/fx"
)

var Module = fx.Module("organization",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
