package provider

import (
	"fmt"
	"strings"

	"github.com/inkwell-ai/inkwell/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("provider",
	fx.Provide(NewFromConfig),
)

// NewFromConfig selects a backend from configuration. Unset fields fall
// back to the chosen backend's defaults so PROVIDER_NAME alone is enough
// for the common setups.
func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider.Name))
	if name == "" {
		name = "openai"
	}

	cc := ChatClientConfig{
		Name:    name,
		BaseURL: cfg.Provider.BaseURL,
		APIKey:  cfg.Provider.APIKey,
		Model:   cfg.Provider.Model,
		Timeout: cfg.Provider.Timeout,
	}

	switch name {
	case "openai":
		if cc.BaseURL == "" {
			cc.BaseURL = "https://api.openai.com/v1"
		}
		if cc.Model == "" {
			cc.Model = "gpt-3.5-turbo"
		}
	case "openrouter":
		if cc.BaseURL == "" {
			cc.BaseURL = "https://openrouter.ai/api/v1"
		}
		if cc.Model == "" {
			cc.Model = "openai/gpt-3.5-turbo"
		}
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Name)
	}

	return NewChatClient(cc, log), nil
}
