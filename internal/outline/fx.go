package outline

import (
	"github.com/outlinehq/outliner/internal/outline/repository"
	"github.com/outlinehq/outliner/internal/outline/service"
	"go.uber.org/fx"
)

var Module = fx.Module("outline",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
