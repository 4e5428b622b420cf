package logger

import "go.uber.org/fx"

// Module provides the access-log middleware and the application *zap.Logger
// consumed across the gateway.
var Module = fx.Options(
	fx.Provide(ProvideLoggerMiddleware),
	fx.Provide(ProvideLogger),
)
