package main

import (
	"log"

	"github.com/bwmarrin/snowflake"
	"github.com/outlinehq/outliner/internal/server"
	"go.uber.org/fx"
)

func main() {
	node, err := snowflake.NewNode(1)
	if err != nil {
		log.Fatalf("snowflake node: %v", err)
	}

	app := fx.New(
		fx.Supply(node),
		server.Module,
	)

	app.Run()
}
