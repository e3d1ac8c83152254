package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/partnerdesk/internal/clock"
	"github.com/smallbiznis/partnerdesk/internal/config"
	"github.com/smallbiznis/partnerdesk/internal/migration"
	"github.com/smallbiznis/partnerdesk/internal/observability"
	"github.com/smallbiznis/partnerdesk/internal/server"
	"github.com/smallbiznis/partnerdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		server.Module,
		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
