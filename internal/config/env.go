package config

import "os"

// Environment variables recognized by ApplyEnvOverrides. They take
// precedence over values from config files and flags.
const (
	EnvWorkDir     = "MPA_WORK_DIR"
	EnvAccelerator = "MPA_ACCELERATOR"
	EnvMode        = "MPA_MODE"
)

// ApplyEnvOverrides overwrites option fields from the environment. The CLI
// calls this after loading .env files so deployments can steer runs without
// editing configs.
func (o *Options) ApplyEnvOverrides() {
	if dir := os.Getenv(EnvWorkDir); dir != "" {
		o.WorkDir = dir
	}
	if accel := os.Getenv(EnvAccelerator); accel != "" {
		o.Accelerator = accel
	}
	if mode := os.Getenv(EnvMode); mode != "" {
		o.Mode = mode
	}
}
