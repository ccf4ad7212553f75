// Package api is the admin http surface: managing sources, triggering
// imports and browsing the imported catalog.
package api

import (
	"go.uber.org/fx"
)

var Module = fx.Module("api",
	fx.Provide(
		NewServer,
	),
)
