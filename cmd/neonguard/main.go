package main

import (
	"go.uber.org/fx"

	"github.com/joeydtaylor/neonguard/pkg/serverfx"
)

func main() {
	fx.New(
		serverfx.Module(
			serverfx.WithService("neonguard"),
		),
	).Run()
}
