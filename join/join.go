// Package join implements the eight physical join algorithms of spec
// §4.4: merge, hash, fetch, theta (nested-loop), outer, semi, anti, and
// cross. Each is type-specialized via the column.Keyed dispatch
// established in package column, and each is responsible for setting its
// output's property flags per package property's contract.
package join

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/colbat/batjoin/engineopts"
	"github.com/colbat/batjoin/storage"
)

// Env bundles the dependencies every physical join needs: the storage
// service it allocates output tables through, the tunables of
// engineopts.Config, and a structured logger. Constructing one Env and
// passing it by pointer keeps individual join function signatures close
// to the spec's own `merge_join(L, R, size_hint)` shape.
type Env struct {
	Ctx context.Context
	Svc storage.Service
	Cfg engineopts.Config
	Log *logrus.Entry
}

func (e *Env) logger() *logrus.Entry {
	if e.Log != nil {
		return e.Log
	}
	return logrus.NewEntry(logrus.New())
}
