package auth

import (
	"github.com/outlinehq/outliner/internal/auth/repository"
	"github.com/outlinehq/outliner/internal/auth/service"
	"github.com/outlinehq/outliner/internal/auth/session"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	session.Module,
	fx.Provide(
		repository.New,
		service.New,
	),
)
