// Package autoload initializes the global logger from the environment when
// imported for side effect.
package autoload

import (
	configx "github.com/styletto/stylist-agent/pkg/config"
	logx "github.com/styletto/stylist-agent/pkg/logger"
)

func init() {
	cfg, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*cfg)
}
