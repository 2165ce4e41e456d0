// Package config declares the matrixkb command line. Every flag can also
// come from a JSON, YAML or TOML config file or a MATRIXKB_* variable.
package config

import "github.com/Alia5/matrixkb/internal/cmd"

type Log struct {
	Level   string `help:"Log level (trace, debug, info, warn, error)" default:"info" env:"MATRIXKB_LOG_LEVEL"`
	File    string `help:"Also write logs to this file" env:"MATRIXKB_LOG_FILE"`
	RawFile string `help:"Hex dump every host report to this file" env:"MATRIXKB_LOG_RAW_FILE"`
}

type CLI struct {
	ConfigFile string `name:"config" help:"Configuration file (json, yaml or toml)" env:"MATRIXKB_CONFIG"`
	Log        Log    `embed:"" prefix:"log."`

	Run      cmd.Run           `cmd:"" help:"Run the keyboard, typing on the terminal"`
	Simulate cmd.Simulate      `cmd:"" help:"Run a key script against a simulated keyboard"`
	Layout   cmd.LayoutCommand `cmd:"" help:"Inspect keyboard layouts"`
	Config   cmd.ConfigCommand `cmd:"" help:"Configuration helpers"`
}
