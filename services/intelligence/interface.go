// File: services/intelligence/interface.go
package intelligence

import (
	"venuepilot/config"
	"venuepilot/services/engine"
)

// SelectProviders picks the detection/extraction provider per config
// (cloud Gemini vs the local rule-based model) and the optional polisher.
// The local provider never polishes; template output goes out as-is.
func SelectProviders(cfg config.Config) (engine.Detector, engine.Extractor, engine.Polisher) {
	if cfg.DetectionProvider == "gemini" && cfg.GeminiAPIKey != "" {
		g := NewGeminiProvider(cfg.GeminiAPIKey)
		return g, g, g
	}
	l := NewLocalProvider()
	return l, l, nil
}
