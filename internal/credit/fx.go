package credit

import (
	"github.com/inkwell-ai/inkwell/internal/credit/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("credit",
	fx.Provide(repository.New),
)
