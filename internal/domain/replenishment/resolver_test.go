package replenishment

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wms/backend/internal/domain/warehouse"
)

// stubConfigRepository returns canned configs per precedence layer
type stubConfigRepository struct {
	locationVariant *LocationConfig
	locationWide    *LocationConfig
	rule            *Rule
	tierDefault     *TierDefault
}

func (s *stubConfigRepository) FindLocationVariantConfig(_ context.Context, _, _ uuid.UUID) (*LocationConfig, error) {
	return s.locationVariant, nil
}

func (s *stubConfigRepository) FindLocationWideConfig(_ context.Context, _ uuid.UUID) (*LocationConfig, error) {
	return s.locationWide, nil
}

func (s *stubConfigRepository) FindRuleByVariant(_ context.Context, _ uuid.UUID) (*Rule, error) {
	return s.rule, nil
}

func (s *stubConfigRepository) FindTierDefault(_ context.Context, _ int) (*TierDefault, error) {
	return s.tierDefault, nil
}

func (s *stubConfigRepository) HasBinAssignment(_ context.Context, _, _ uuid.UUID) (bool, error) {
	return s.locationVariant != nil, nil
}

func testRequest() ResolveRequest {
	return ResolveRequest{VariantID: uuid.New(), LocationID: uuid.New(), HierarchyLevel: 1}
}

func TestResolverChain_MostSpecificWins(t *testing.T) {
	variantID := uuid.New()
	repo := &stubConfigRepository{
		locationVariant: &LocationConfig{VariantID: &variantID, TriggerValue: 5, TargetQuantity: 50, Method: MethodCaseBreak, SourceLocationType: warehouse.LocationTypeBulk, Active: true},
		locationWide:    &LocationConfig{TriggerValue: 10, TargetQuantity: 100, Method: MethodFullCase, SourceLocationType: warehouse.LocationTypeBulk, Active: true},
		rule:            &Rule{TriggerValue: 20, TargetQuantity: 200, Method: MethodFullCase, SourceLocationType: warehouse.LocationTypeReserve, Active: true},
		tierDefault:     &TierDefault{TriggerValue: 30, TargetQuantity: 300, Method: MethodFullCase, SourceLocationType: warehouse.LocationTypeBulk, Active: true},
	}
	chain := NewDefaultChain(repo)

	threshold, err := chain.Resolve(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, threshold)
	assert.Equal(t, int64(5), threshold.TriggerValue)
	assert.Equal(t, "location_variant_config", threshold.Origin)
}

func TestResolverChain_FallsThroughLayers(t *testing.T) {
	repo := &stubConfigRepository{
		rule:        &Rule{TriggerValue: 20, TargetQuantity: 200, Method: MethodFullCase, SourceLocationType: warehouse.LocationTypeReserve, Active: true},
		tierDefault: &TierDefault{TriggerValue: 30, TargetQuantity: 300, Method: MethodFullCase, SourceLocationType: warehouse.LocationTypeBulk, Active: true},
	}
	chain := NewDefaultChain(repo)

	threshold, err := chain.Resolve(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, threshold)
	assert.Equal(t, int64(20), threshold.TriggerValue)
	assert.Equal(t, "sku_rule", threshold.Origin)
}

func TestResolverChain_TierDefaultIsLastResort(t *testing.T) {
	repo := &stubConfigRepository{
		tierDefault: &TierDefault{TriggerValue: 30, TargetQuantity: 300, Method: MethodPalletDrop, SourceLocationType: warehouse.LocationTypeReserve, Active: true},
	}
	chain := NewDefaultChain(repo)

	threshold, err := chain.Resolve(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, threshold)
	assert.Equal(t, "tier_default", threshold.Origin)
	assert.True(t, threshold.Method.UsesCoverageDays())
}

func TestResolverChain_NoOpinionAnywhere(t *testing.T) {
	chain := NewDefaultChain(&stubConfigRepository{})

	threshold, err := chain.Resolve(context.Background(), testRequest())
	require.NoError(t, err)
	assert.Nil(t, threshold)
}

func TestResolverChain_InactiveConfigIsSkipped(t *testing.T) {
	repo := &stubConfigRepository{
		locationWide: &LocationConfig{TriggerValue: 10, Method: MethodFullCase, SourceLocationType: warehouse.LocationTypeBulk, Active: false},
		rule:         &Rule{TriggerValue: 20, TargetQuantity: 200, Method: MethodFullCase, SourceLocationType: warehouse.LocationTypeReserve, Active: true},
	}
	chain := NewDefaultChain(repo)

	threshold, err := chain.Resolve(context.Background(), testRequest())
	require.NoError(t, err)
	require.NotNil(t, threshold)
	assert.Equal(t, "sku_rule", threshold.Origin)
}
