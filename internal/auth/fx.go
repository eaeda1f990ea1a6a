package auth

import (
	"github.com/inkwell-ai/inkwell/internal/auth/repository"
	"github.com/inkwell-ai/inkwell/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth",
	fx.Provide(repository.New),
	fx.Provide(repository.NewSessionRepository),
	fx.Provide(service.New),
)
