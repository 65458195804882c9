package config

import (
	"sort"

	"github.com/san-kum/oceansim/internal/wave"
)

type params = map[string]ParamValue

func swell() *ComponentConfig {
	return &ComponentConfig{Kind: "swell", Params: params{
		"oceantype":     Literal("ochi"),
		"patchsize":     Literal(wave.Vec2{X: 4000, Y: 4000}),
		"patchnxny":     Literal(wave.Vec2{X: 512, Y: 512}),
		"typicalheight": Literal(2.0 / 3.7),
		"travel":        Literal(3.0),
		"align":         Literal(8.0),
		"direction":     Literal(90.0),
		"cuspscale":     Literal(0.75 * 4.0),
		"longest":       Literal(1000.0),
		"shortest":      Literal(4.0),
		"depth":         Literal(10.0),
	}}
}

func smallWaves() *ComponentConfig {
	return &ComponentConfig{Kind: "windchop", Params: params{
		"oceantype":     Literal("deep"),
		"patchsize":     Literal(wave.Vec2{X: 30, Y: 30}),
		"patchnxny":     Literal(wave.Vec2{X: 256, Y: 256}),
		"typicalheight": Literal(0.2),
		"direction":     Literal(0.0),
		"longest":       Literal(10.0),
		"shortest":      Literal(0.013),
		"cuspscale":     Literal(0.75 * 0.5),
	}}
}

func thingInWater() *ComponentConfig {
	return &ComponentConfig{Kind: "disturbance", Params: params{
		"patchsize":         Literal(wave.Vec2{X: 40, Y: 20}),
		"patchnxny":         Literal(wave.Vec2{X: 512, Y: 256}),
		"llc":               Literal(wave.Vec2{X: -20, Y: 0}),
		"gravity":           Literal(9.8),
		"depth":             Literal(10.0),
		"capillary":         Literal(0.015),
		"trimfraction":      Literal(0.1),
		"trimalpha":         Literal(0.05),
		"displacementscale": Literal(0.3),
		"dohorizontal":      Literal(true),
		"sourcescale":       Literal(1.0),
		"ambientscale":      Literal(0.75 * 0.3),
		"compute_whitecaps": Literal(false),
	}}
}

func shapePreset() *Config {
	cfg := baseConfig()
	cfg.Components = map[string]*ComponentConfig{
		"swell_waves":          swell(),
		"small_waves":          smallWaves(),
		"thing_in_water_waves": thingInWater(),
	}
	cfg.Merge = []string{"swell_waves", "small_waves"}
	cfg.Disturbance = "thing_in_water_waves"
	cfg.Products = []string{"thing_in_water_waves", "swell_waves", "small_waves"}
	return cfg
}

// floatingPreset follows a floating object placed by a layout transform.
// The chop sharpens over the first frames.
func floatingPreset() *Config {
	cfg := shapePreset()
	dist := cfg.Components["thing_in_water_waves"]
	dist.Params["patchsize"] = Literal(wave.Vec2{X: 40, Y: 40})
	dist.Params["llc"] = Literal(wave.Vec2{X: -20, Y: -20})
	delete(dist.Params, "patchnxny")
	cfg.Components["small_waves"].Params["cuspscale"] = PerFrame(FrameExpr{Base: 0, Scale: 0.75 * 0.5 / 3, Offset: 1})
	cfg.Products = []string{"thing_in_water_waves"}
	return cfg
}

// displacementPreset writes the open ocean alone.
func displacementPreset() *Config {
	cfg := baseConfig()
	cfg.Components = map[string]*ComponentConfig{
		"swell_waves": swell(),
		"small_waves": smallWaves(),
	}
	cfg.Merge = []string{"swell_waves", "small_waves"}
	cfg.Products = []string{"swell_waves", "small_waves"}
	return cfg
}

var Presets = map[string]func() *Config{
	"shape":        shapePreset,
	"floating":     floatingPreset,
	"displacement": displacementPreset,
}

// GetPreset returns a fresh copy of a named scene, or nil.
func GetPreset(name string) *Config {
	build, ok := Presets[name]
	if !ok {
		return nil
	}
	return build()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
