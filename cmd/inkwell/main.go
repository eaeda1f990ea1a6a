package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/inkwell-ai/inkwell/internal/auth"
	"github.com/inkwell-ai/inkwell/internal/auth/session"
	"github.com/inkwell-ai/inkwell/internal/config"
	"github.com/inkwell-ai/inkwell/internal/content"
	"github.com/inkwell-ai/inkwell/internal/credit"
	"github.com/inkwell-ai/inkwell/internal/migration"
	"github.com/inkwell-ai/inkwell/internal/observability"
	"github.com/inkwell-ai/inkwell/internal/provider"
	"github.com/inkwell-ai/inkwell/internal/ratelimit"
	"github.com/inkwell-ai/inkwell/internal/server"
	"github.com/inkwell-ai/inkwell/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(registerSnowflake),
		db.Module,
		migration.Module,

		auth.Module,
		session.Module,
		credit.Module,
		provider.Module,
		content.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func registerSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
