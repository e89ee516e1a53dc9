// Package advisor implements core.Advisor: a deterministic heuristic advisor
// that works offline and a Gemini client for model-written reports.
package advisor

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/datacleaner/internal/config"
	"github.com/JonMunkholm/datacleaner/internal/core"
)

// Provider names accepted by New.
const (
	ProviderNone      = "none"
	ProviderHeuristic = "heuristic"
	ProviderGemini    = "gemini"
)

// New returns the advisor selected by cfg.Provider. The "none" provider
// yields a nil Advisor, which the pipeline treats as "no issues, no plan".
func New(cfg config.AdvisorConfig) (core.Advisor, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderNone:
		return nil, nil
	case "", ProviderHeuristic:
		return Heuristic{}, nil
	case ProviderGemini:
		return NewGemini(cfg)
	default:
		return nil, fmt.Errorf("unknown advisor provider %q", cfg.Provider)
	}
}
