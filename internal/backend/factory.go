package backend

import (
	"fmt"

	"visara/internal/config"
	"visara/internal/port"
)

// ProviderFactory is a function that creates a ModelInvoker from a provider config.
type ProviderFactory func(cfg *config.BackendProviderConfig) (port.ModelInvoker, error)

// registry of backend provider factories, populated explicitly via
// RegisterProvider at startup. A single explicit mapping, built once;
// no dynamic dispatch beyond this.
var providers = map[string]ProviderFactory{}

// RegisterProvider registers a backend provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providers[name] = factory
}

// NewInvoker creates a ModelInvoker from a provider config using the registered factory.
func NewInvoker(cfg *config.BackendProviderConfig) (port.ModelInvoker, error) {
	factory, ok := providers[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown backend provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// NewChain builds the configured invoker, wrapping primary/secondary/tertiary
// providers into a FallbackInvoker when more than one is configured.
func NewChain(cfg *config.BackendConfig) (port.ModelInvoker, error) {
	primary, err := NewInvoker(&cfg.Primary)
	if err != nil {
		return nil, err
	}

	invokers := []port.ModelInvoker{primary}
	names := []string{cfg.Primary.Provider}

	if sec := cfg.SecondaryConfig(); sec != nil {
		inv, err := NewInvoker(sec)
		if err != nil {
			return nil, err
		}
		invokers = append(invokers, inv)
		names = append(names, sec.Provider)
	}
	if ter := cfg.TertiaryConfig(); ter != nil {
		inv, err := NewInvoker(ter)
		if err != nil {
			return nil, err
		}
		invokers = append(invokers, inv)
		names = append(names, ter.Provider)
	}

	if len(invokers) == 1 {
		return primary, nil
	}
	return NewFallbackInvoker(invokers, names), nil
}
