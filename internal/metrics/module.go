package metrics

import "go.uber.org/fx"

// Module provides pipeline metrics to the fx container.
var Module = fx.Provide(New)
