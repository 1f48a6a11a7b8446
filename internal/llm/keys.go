package llm

import "github.com/studybuddy/ingestion/internal/config"

// resolveKey picks the first usable API key: the primary, then the numbered
// alternates in order. Selection is stateless and happens per call.
func resolveKey(cfg config.LLM) string {
	if cfg.PrimaryKey != "" {
		return cfg.PrimaryKey
	}
	for _, k := range cfg.NumberedKeys {
		if k != "" {
			return k
		}
	}
	return ""
}
