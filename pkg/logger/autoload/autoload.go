// Package autoload configures the global logger from the LOG_* environment
// on blank import.
package autoload

import (
	configx "github.com/raahib/raahib/pkg/config"
	logx "github.com/raahib/raahib/pkg/logger"
)

func init() {
	conf := configx.MustNew[logx.Config]("LOG")
	logx.Init(*conf)
}
