package replenishment

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wms/backend/internal/domain/shared"
)

// ResolveRequest identifies the slot a threshold is being resolved for
type ResolveRequest struct {
	VariantID      uuid.UUID
	LocationID     uuid.UUID
	HierarchyLevel int
}

// ThresholdResolver is one layer of the configuration precedence chain.
// A (nil, nil) return means "no opinion"; resolution falls through to the
// next, less specific layer.
type ThresholdResolver interface {
	Resolve(ctx context.Context, req ResolveRequest) (*Threshold, error)
}

// ResolverChain tries each resolver in order and returns the first opinion.
// Ordering encodes specificity: location+variant override, then location-wide
// config, then SKU rule, then hierarchy-tier default. New precedence layers
// are added by inserting a resolver, not by branching.
type ResolverChain struct {
	resolvers []ThresholdResolver
}

// NewResolverChain creates a chain that consults resolvers in the given order
func NewResolverChain(resolvers ...ThresholdResolver) *ResolverChain {
	return &ResolverChain{resolvers: resolvers}
}

// Resolve returns the most specific threshold for the request, or nil when
// no layer has an opinion (the slot is simply not replenished).
func (c *ResolverChain) Resolve(ctx context.Context, req ResolveRequest) (*Threshold, error) {
	for _, r := range c.resolvers {
		threshold, err := r.Resolve(ctx, req)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if threshold != nil {
			return threshold, nil
		}
	}
	return nil, nil
}

// ConfigRepository provides access to the three precedence layers
type ConfigRepository interface {
	// FindLocationVariantConfig returns the config pinned to this exact
	// (location, variant) pair
	FindLocationVariantConfig(ctx context.Context, locationID, variantID uuid.UUID) (*LocationConfig, error)
	// FindLocationWideConfig returns the variant-agnostic config for a location
	FindLocationWideConfig(ctx context.Context, locationID uuid.UUID) (*LocationConfig, error)
	// FindRuleByVariant returns the SKU-specific rule for a variant
	FindRuleByVariant(ctx context.Context, variantID uuid.UUID) (*Rule, error)
	// FindTierDefault returns the default for a packaging hierarchy level
	FindTierDefault(ctx context.Context, hierarchyLevel int) (*TierDefault, error)
	// HasBinAssignment reports whether any active location config pins the
	// variant to the location (standing bin assignment)
	HasBinAssignment(ctx context.Context, locationID, variantID uuid.UUID) (bool, error)
}

// LocationVariantResolver resolves from configs pinned to (location, variant)
type LocationVariantResolver struct {
	configs ConfigRepository
}

// NewLocationVariantResolver creates the most specific resolver layer
func NewLocationVariantResolver(configs ConfigRepository) *LocationVariantResolver {
	return &LocationVariantResolver{configs: configs}
}

// Resolve implements ThresholdResolver
func (r *LocationVariantResolver) Resolve(ctx context.Context, req ResolveRequest) (*Threshold, error) {
	cfg, err := r.configs.FindLocationVariantConfig(ctx, req.LocationID, req.VariantID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.Active {
		return nil, nil
	}
	return cfg.Threshold(), nil
}

// LocationWideResolver resolves from variant-agnostic location configs
type LocationWideResolver struct {
	configs ConfigRepository
}

// NewLocationWideResolver creates the location-wide resolver layer
func NewLocationWideResolver(configs ConfigRepository) *LocationWideResolver {
	return &LocationWideResolver{configs: configs}
}

// Resolve implements ThresholdResolver
func (r *LocationWideResolver) Resolve(ctx context.Context, req ResolveRequest) (*Threshold, error) {
	cfg, err := r.configs.FindLocationWideConfig(ctx, req.LocationID)
	if err != nil {
		return nil, err
	}
	if cfg == nil || !cfg.Active {
		return nil, nil
	}
	return cfg.Threshold(), nil
}

// SKURuleResolver resolves from variant-specific rules
type SKURuleResolver struct {
	configs ConfigRepository
}

// NewSKURuleResolver creates the SKU rule resolver layer
func NewSKURuleResolver(configs ConfigRepository) *SKURuleResolver {
	return &SKURuleResolver{configs: configs}
}

// Resolve implements ThresholdResolver
func (r *SKURuleResolver) Resolve(ctx context.Context, req ResolveRequest) (*Threshold, error) {
	rule, err := r.configs.FindRuleByVariant(ctx, req.VariantID)
	if err != nil {
		return nil, err
	}
	if rule == nil || !rule.Active {
		return nil, nil
	}
	return rule.Threshold(), nil
}

// TierDefaultResolver resolves from hierarchy-tier defaults
type TierDefaultResolver struct {
	configs ConfigRepository
}

// NewTierDefaultResolver creates the least specific resolver layer
func NewTierDefaultResolver(configs ConfigRepository) *TierDefaultResolver {
	return &TierDefaultResolver{configs: configs}
}

// Resolve implements ThresholdResolver
func (r *TierDefaultResolver) Resolve(ctx context.Context, req ResolveRequest) (*Threshold, error) {
	def, err := r.configs.FindTierDefault(ctx, req.HierarchyLevel)
	if err != nil {
		return nil, err
	}
	if def == nil || !def.Active {
		return nil, nil
	}
	return def.Threshold(), nil
}

// NewDefaultChain wires the four layers in strict precedence order
func NewDefaultChain(configs ConfigRepository) *ResolverChain {
	return NewResolverChain(
		NewLocationVariantResolver(configs),
		NewLocationWideResolver(configs),
		NewSKURuleResolver(configs),
		NewTierDefaultResolver(configs),
	)
}
