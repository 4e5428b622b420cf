// pkg/bundlefx/bundlefx.go
package bundlefx

import (
	"go.uber.org/fx"

	"github.com/joeydtaylor/neonguard/pkg/middleware/auth"
	"github.com/joeydtaylor/neonguard/pkg/middleware/logger"
	"github.com/joeydtaylor/neonguard/pkg/middleware/metrics"
)

// Module provided to fx
var Module = fx.Options(
	auth.Module,
	logger.Module,
	metrics.Module,
)
