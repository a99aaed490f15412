// Package config provides rule set management for Almost Happy Home.
//
// Rule sets are YAML files (JSON is accepted too) in a config directory. Each
// one names a furniture catalog, the stages with their rounds and
// thresholds, and the turn economy. Files are parsed with gopkg.in/yaml.v3,
// completed by GameConfig.ApplyDefaults and checked by
// engine.ValidateGameConfig before they are cached.
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	cozy, err := manager.LoadConfig("cozy")
//	configs, err := manager.ListConfigs()
//
// When the directory holds no classic rule set, the first valid file becomes
// the default; an empty directory falls back to the built-in rule set.
package config
