package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// PricingConfig holds the credit cost and generation budget tables.
// The two tables are keyed by the same length tag but maintained
// separately: cost is a billing knob, budget a provider-resource knob.
type PricingConfig struct {
	Costs   map[string]int64 `mapstructure:"costs"`
	Budgets map[string]int   `mapstructure:"budgets"`
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		Costs: map[string]int64{
			"short":    1,
			"medium":   2,
			"long":     3,
			"extended": 4,
		},
		Budgets: map[string]int{
			"short":    300,
			"medium":   600,
			"long":     1200,
			"extended": 2000,
		},
	}
}

// PricingHolder serves the current pricing tables and hot-reloads them
// when a mounted pricing.yml changes. Invalid configs are ignored.
type PricingHolder struct {
	current atomic.Value // holds PricingConfig
}

func NewPricingHolder() (*PricingHolder, error) {
	v := viper.New()

	v.SetConfigName("pricing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/inkwell")
	v.AddConfigPath(".")

	v.SetEnvPrefix("INKWELL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPricingConfig()

	cfg := defaults
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	} else {
		var loaded PricingConfig
		if err := v.UnmarshalKey("pricing", &loaded); err != nil {
			return nil, err
		}
		merged := mergePricing(defaults, loaded)
		if err := validatePricingConfig(merged); err != nil {
			return nil, err
		}
		cfg = merged
	}

	holder := &PricingHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated PricingConfig
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Printf("[pricing-config] reload failed: %v", err)
			return
		}
		merged := mergePricing(defaults, updated)
		if err := validatePricingConfig(merged); err != nil {
			log.Printf("[pricing-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(merged)
		log.Printf("[pricing-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticPricingHolder returns a holder pinned to the given config.
// Used by tests and by callers that do not want file watching.
func NewStaticPricingHolder(cfg PricingConfig) *PricingHolder {
	holder := &PricingHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *PricingHolder) Get() PricingConfig {
	return h.current.Load().(PricingConfig)
}

func mergePricing(base, override PricingConfig) PricingConfig {
	merged := PricingConfig{
		Costs:   map[string]int64{},
		Budgets: map[string]int{},
	}
	for tag, cost := range base.Costs {
		merged.Costs[tag] = cost
	}
	for tag, budget := range base.Budgets {
		merged.Budgets[tag] = budget
	}
	for tag, cost := range override.Costs {
		merged.Costs[strings.ToLower(strings.TrimSpace(tag))] = cost
	}
	for tag, budget := range override.Budgets {
		merged.Budgets[strings.ToLower(strings.TrimSpace(tag))] = budget
	}
	return merged
}

func validatePricingConfig(cfg PricingConfig) error {
	if len(cfg.Costs) == 0 {
		return errors.New("pricing.costs cannot be empty")
	}
	if len(cfg.Budgets) == 0 {
		return errors.New("pricing.budgets cannot be empty")
	}
	for tag, cost := range cfg.Costs {
		if cost <= 0 {
			return errors.New("pricing.costs." + tag + " must be positive")
		}
	}
	for tag, budget := range cfg.Budgets {
		if budget <= 0 {
			return errors.New("pricing.budgets." + tag + " must be positive")
		}
	}
	return nil
}
