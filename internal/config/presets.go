package config

import "math"

var standingJoints = []float64{0, -0.8, 1.6, 0, -0.8, 1.6, 0, -0.8, 1.6, 0, -0.8, 1.6}

func quadruped(mutate func(c *Config)) *Config {
	c := ForModel("quadruped")
	c.Dt = 0.0002
	c.SampleEvery = 25
	mutate(c)
	return c
}

func rigid(model string, mutate func(c *Config)) *Config {
	c := ForModel(model)
	mutate(c)
	return c
}

var Presets = map[string]map[string]*Config{
	"point": {
		"drop": rigid("point", func(c *Config) {
			c.InitState.Position = [3]float64{0, 0, 0.5}
		}),
		"slide": rigid("point", func(c *Config) {
			c.InitState.Position = [3]float64{0, 0, 0}
			c.InitState.Velocity = [6]float64{0, 0, 0, 2, 0, 0}
			c.Scene.Planes[0].Mu = 0.3
		}),
	},
	"box": {
		"drop": rigid("box", func(c *Config) {
			c.Body.Mass = 2
			c.InitState.Position = [3]float64{0, 0, 0.5}
			c.InitState.RPY = [3]float64{0.3, 0.2, 0}
		}),
		"tumble": rigid("box", func(c *Config) {
			c.Body.Mass = 2
			c.InitState.Position = [3]float64{0, 0, 0.4}
			c.InitState.Velocity = [6]float64{4, -2, 6, 1, 0, 0}
		}),
		"slope": rigid("box", func(c *Config) {
			c.Body.Mass = 2
			c.Duration = 3
			c.InitState.Position = [3]float64{0, 0, 0.4}
			c.Scene.Boxes = []BoxConfig{{
				Mu: 0.4, Size: [3]float64{2, 1, 0.1},
				Position: [3]float64{0, 0, 0.1},
				RPY:      [3]float64{0, 0.2, 0},
			}}
		}),
	},
	"quadruped": {
		"stand": quadruped(func(c *Config) {
			c.InitState.Position = [3]float64{0, 0, 0.29}
		}),
		"drop": quadruped(func(c *Config) {
			c.InitState.Position = [3]float64{0, 0, 0.5}
		}),
		"kick": quadruped(func(c *Config) {
			c.InitState.Position = [3]float64{0, 0, 0.29}
			c.InitState.Velocity = [6]float64{1, 0, 0, 0, 0.5, 0}
		}),
		"slope": quadruped(func(c *Config) {
			c.Duration = 3
			c.InitState.Position = [3]float64{0, 0, 0.45}
			c.Scene.Boxes = []BoxConfig{{
				Mu: DefaultMu, Size: [3]float64{3, 2, 0.2},
				Position: [3]float64{0, 0, 0},
				RPY:      [3]float64{0, math.Pi / 36, 0},
			}}
		}),
		"flop": quadruped(func(c *Config) {
			c.Controller = "none"
			c.InitState.Position = [3]float64{0, 0, 0.35}
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	c.InitState.Joints = append([]float64(nil), cfg.InitState.Joints...)
	c.ControllerParams.Target = append([]float64(nil), cfg.ControllerParams.Target...)
	c.Scene.Planes = append([]PlaneConfig(nil), cfg.Scene.Planes...)
	c.Scene.Boxes = append([]BoxConfig(nil), cfg.Scene.Boxes...)
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	return names
}
