// internal/config/humanoid_config.go
package config

import "github.com/spf13/viper"

// HumanoidConfig holds the pointer movement parameters.
type HumanoidConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Fitts's law: MT = A + B * log2(1 + D/W), in milliseconds.
	FittsA float64 `mapstructure:"fitts_a" yaml:"fitts_a"`
	FittsB float64 `mapstructure:"fitts_b" yaml:"fitts_b"`

	// PerlinAmplitude is the peak low-frequency drift in pixels.
	PerlinAmplitude float64 `mapstructure:"perlin_amplitude" yaml:"perlin_amplitude"`
	// GaussianStrength is the standard deviation of per-sample jitter in pixels.
	GaussianStrength float64 `mapstructure:"gaussian_strength" yaml:"gaussian_strength"`
	// MaxSteps caps the number of move events dispatched per movement.
	MaxSteps int `mapstructure:"max_steps" yaml:"max_steps"`
}

func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("executor.humanoid.enabled", false)
	v.SetDefault("executor.humanoid.fitts_a", 80.0)
	v.SetDefault("executor.humanoid.fitts_b", 110.0)
	v.SetDefault("executor.humanoid.perlin_amplitude", 1.5)
	v.SetDefault("executor.humanoid.gaussian_strength", 0.4)
	v.SetDefault("executor.humanoid.max_steps", 60)
}
