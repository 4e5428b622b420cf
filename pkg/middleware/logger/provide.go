package logger

import "go.uber.org/zap"

func ProvideLoggerMiddleware() *Middleware { return &Middleware{} }

// ProvideLogger is the application logger; access logs go to their own file
// via the package singleton.
func ProvideLogger() *zap.Logger { return NewLog("neonguard.log") }
