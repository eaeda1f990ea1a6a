package content

import (
	"github.com/inkwell-ai/inkwell/internal/content/pricing"
	"github.com/inkwell-ai/inkwell/internal/content/repository"
	"github.com/inkwell-ai/inkwell/internal/content/service"
	"go.uber.org/fx"
)

var Module = fx.Module("content",
	fx.Provide(pricing.New),
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
