package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wms/backend/internal/domain/catalog"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/order"
	"github.com/wms/backend/internal/domain/replenishment"
	"github.com/wms/backend/internal/domain/shared"
	"github.com/wms/backend/internal/domain/warehouse"
)

// MemLevelRepo is an in-memory inventory.LevelRepository. ApplyDelta mirrors
// the SQL guard semantics: a negative delta only lands when the bucket still
// covers it at apply time. Rows keep insertion order, which doubles as the
// walk order in tests.
type MemLevelRepo struct {
	mu       sync.Mutex
	order    []uuid.UUID
	levels   map[uuid.UUID]*inventory.InventoryLevel
	locTypes map[uuid.UUID]warehouse.LocationType
}

// NewMemLevelRepo creates an empty in-memory level repository.
func NewMemLevelRepo() *MemLevelRepo {
	return &MemLevelRepo{
		levels:   make(map[uuid.UUID]*inventory.InventoryLevel),
		locTypes: make(map[uuid.UUID]warehouse.LocationType),
	}
}

// SetLocationType registers a location's type for FindOldestWithStock, which
// joins against it. Rows at unregistered locations never qualify as sources.
func (r *MemLevelRepo) SetLocationType(locationID uuid.UUID, locType warehouse.LocationType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locTypes[locationID] = locType
}

// Seed inserts a row with the given bucket values and returns it.
func (r *MemLevelRepo) Seed(variantID, locationID uuid.UUID, onHand, reserved, picked, packed int64) *inventory.InventoryLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	level, _ := inventory.NewInventoryLevel(variantID, locationID)
	level.OnHand = onHand
	level.Reserved = reserved
	level.Picked = picked
	level.Packed = packed
	r.levels[level.ID] = level
	r.order = append(r.order, level.ID)
	copied := *level
	return &copied
}

// Get returns a snapshot of a row by ID, or nil.
func (r *MemLevelRepo) Get(id uuid.UUID) *inventory.InventoryLevel {
	r.mu.Lock()
	defer r.mu.Unlock()
	level, ok := r.levels[id]
	if !ok {
		return nil
	}
	copied := *level
	return &copied
}

// FindByID implements inventory.LevelRepository.
func (r *MemLevelRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	level, ok := r.levels[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *level
	return &copied, nil
}

// FindByVariantAndLocation implements inventory.LevelRepository.
func (r *MemLevelRepo) FindByVariantAndLocation(_ context.Context, variantID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		level, ok := r.levels[id]
		if ok && level.VariantID == variantID && level.LocationID == locationID {
			copied := *level
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByVariant implements inventory.LevelRepository.
func (r *MemLevelRepo) FindByVariant(_ context.Context, variantID uuid.UUID) ([]inventory.InventoryLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryLevel
	for _, id := range r.order {
		if level, ok := r.levels[id]; ok && level.VariantID == variantID {
			out = append(out, *level)
		}
	}
	return out, nil
}

// FindByLocation implements inventory.LevelRepository.
func (r *MemLevelRepo) FindByLocation(_ context.Context, locationID uuid.UUID) ([]inventory.InventoryLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryLevel
	for _, id := range r.order {
		if level, ok := r.levels[id]; ok && level.LocationID == locationID {
			out = append(out, *level)
		}
	}
	return out, nil
}

// FindAll implements inventory.LevelRepository.
func (r *MemLevelRepo) FindAll(_ context.Context, _ shared.Filter) ([]inventory.InventoryLevel, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryLevel
	for _, id := range r.order {
		if level, ok := r.levels[id]; ok {
			out = append(out, *level)
		}
	}
	return out, int64(len(out)), nil
}

// GetOrCreate implements inventory.LevelRepository.
func (r *MemLevelRepo) GetOrCreate(_ context.Context, variantID, locationID uuid.UUID) (*inventory.InventoryLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		level, ok := r.levels[id]
		if ok && level.VariantID == variantID && level.LocationID == locationID {
			copied := *level
			return &copied, nil
		}
	}
	level, err := inventory.NewInventoryLevel(variantID, locationID)
	if err != nil {
		return nil, err
	}
	r.levels[level.ID] = level
	r.order = append(r.order, level.ID)
	copied := *level
	return &copied, nil
}

// ApplyDelta implements inventory.LevelRepository.
func (r *MemLevelRepo) ApplyDelta(_ context.Context, id uuid.UUID, delta inventory.BucketDelta) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	level, ok := r.levels[id]
	if !ok {
		return false, shared.ErrNotFound
	}

	if delta.GuardAvailable > 0 && level.OnHand-level.Reserved < delta.GuardAvailable {
		return false, nil
	}
	if delta.OnHand < 0 && !delta.AllowNegativeOnHand && level.OnHand+delta.OnHand < 0 {
		return false, nil
	}
	if delta.Reserved < 0 && level.Reserved+delta.Reserved < 0 {
		return false, nil
	}
	if delta.Picked < 0 && level.Picked+delta.Picked < 0 {
		return false, nil
	}
	if delta.Packed < 0 && level.Packed+delta.Packed < 0 {
		return false, nil
	}
	if delta.Backorder < 0 && level.Backorder+delta.Backorder < 0 {
		return false, nil
	}

	level.OnHand += delta.OnHand
	level.Reserved += delta.Reserved
	level.Picked += delta.Picked
	level.Packed += delta.Packed
	level.Backorder += delta.Backorder
	if delta.ReleaseReservedUpTo > 0 {
		if level.Reserved < delta.ReleaseReservedUpTo {
			level.Reserved = 0
		} else {
			level.Reserved -= delta.ReleaseReservedUpTo
		}
	}
	level.Version++
	level.UpdatedAt = time.Now()
	return true, nil
}

// DeleteIfEmpty implements inventory.LevelRepository.
func (r *MemLevelRepo) DeleteIfEmpty(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	level, ok := r.levels[id]
	if !ok || !level.IsEmpty() {
		return false, nil
	}
	delete(r.levels, id)
	return true, nil
}

// FindByVariantInWalkOrder implements inventory.LevelRepository. Insertion
// order stands in for the physical walk sequence.
func (r *MemLevelRepo) FindByVariantInWalkOrder(ctx context.Context, variantID uuid.UUID, _ *uuid.UUID) ([]inventory.InventoryLevel, error) {
	return r.FindByVariant(ctx, variantID)
}

// FindOldestWithStock implements inventory.LevelRepository. Insertion order
// stands in for update recency.
func (r *MemLevelRepo) FindOldestWithStock(_ context.Context, variantID uuid.UUID, locType warehouse.LocationType, _ uuid.UUID) (*inventory.InventoryLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		level, ok := r.levels[id]
		if ok && level.VariantID == variantID && level.OnHand > 0 && r.locTypes[level.LocationID] == locType {
			copied := *level
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindReservationDeficits implements inventory.LevelRepository.
func (r *MemLevelRepo) FindReservationDeficits(_ context.Context) ([]inventory.InventoryLevel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryLevel
	for _, id := range r.order {
		if level, ok := r.levels[id]; ok && level.HasReservationDeficit() {
			out = append(out, *level)
		}
	}
	return out, nil
}

var _ inventory.LevelRepository = (*MemLevelRepo)(nil)

// MemTxRepo is an in-memory append-only inventory.TransactionRepository.
type MemTxRepo struct {
	mu  sync.Mutex
	txs []inventory.InventoryTransaction
}

// NewMemTxRepo creates an empty in-memory transaction log.
func NewMemTxRepo() *MemTxRepo {
	return &MemTxRepo{}
}

// All returns a snapshot of every appended transaction, in append order.
func (r *MemTxRepo) All() []inventory.InventoryTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]inventory.InventoryTransaction, len(r.txs))
	copy(out, r.txs)
	return out
}

// Append implements inventory.TransactionRepository.
func (r *MemTxRepo) Append(_ context.Context, txs ...*inventory.InventoryTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range txs {
		r.txs = append(r.txs, *tx)
	}
	return nil
}

// FindByVariantAndLocation implements inventory.TransactionRepository.
func (r *MemTxRepo) FindByVariantAndLocation(_ context.Context, variantID, locationID uuid.UUID, _ shared.Filter) ([]inventory.InventoryTransaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryTransaction
	for _, tx := range r.txs {
		atLocation := (tx.FromLocationID != nil && *tx.FromLocationID == locationID) ||
			(tx.ToLocationID != nil && *tx.ToLocationID == locationID)
		if tx.VariantID == variantID && atLocation {
			out = append(out, tx)
		}
	}
	return out, int64(len(out)), nil
}

// FindByOrder implements inventory.TransactionRepository.
func (r *MemTxRepo) FindByOrder(_ context.Context, orderID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryTransaction
	for _, tx := range r.txs {
		if tx.OrderID != nil && *tx.OrderID == orderID {
			out = append(out, tx)
		}
	}
	return out, nil
}

// PickedQuantitySince implements inventory.TransactionRepository.
func (r *MemTxRepo) PickedQuantitySince(_ context.Context, variantID, locationID uuid.UUID, since time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, tx := range r.txs {
		if tx.Type != inventory.TransactionTypePick || tx.VariantID != variantID {
			continue
		}
		if tx.FromLocationID == nil || *tx.FromLocationID != locationID {
			continue
		}
		if tx.OccurredAt.Before(since) {
			continue
		}
		total += -tx.Quantity
	}
	return total, nil
}

// FindReservationSources implements inventory.TransactionRepository.
func (r *MemTxRepo) FindReservationSources(_ context.Context, variantID, locationID uuid.UUID) ([]inventory.InventoryTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []inventory.InventoryTransaction
	for _, tx := range r.txs {
		if tx.Type != inventory.TransactionTypeReserve || tx.VariantID != variantID {
			continue
		}
		if tx.ToLocationID == nil || *tx.ToLocationID != locationID {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

var _ inventory.TransactionRepository = (*MemTxRepo)(nil)

// MemConfigRepo is an in-memory replenishment.ConfigRepository.
type MemConfigRepo struct {
	mu              sync.Mutex
	locationVariant map[string]*replenishment.LocationConfig
	locationWide    map[uuid.UUID]*replenishment.LocationConfig
	rules           map[uuid.UUID]*replenishment.Rule
	tierDefaults    map[int]*replenishment.TierDefault
}

// NewMemConfigRepo creates an empty in-memory config repository.
func NewMemConfigRepo() *MemConfigRepo {
	return &MemConfigRepo{
		locationVariant: make(map[string]*replenishment.LocationConfig),
		locationWide:    make(map[uuid.UUID]*replenishment.LocationConfig),
		rules:           make(map[uuid.UUID]*replenishment.Rule),
		tierDefaults:    make(map[int]*replenishment.TierDefault),
	}
}

func pairKey(locationID, variantID uuid.UUID) string {
	return locationID.String() + "/" + variantID.String()
}

// PutLocationConfig stores a location config in the appropriate layer.
func (r *MemConfigRepo) PutLocationConfig(cfg *replenishment.LocationConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.VariantID != nil {
		r.locationVariant[pairKey(cfg.LocationID, *cfg.VariantID)] = cfg
		return
	}
	r.locationWide[cfg.LocationID] = cfg
}

// PutRule stores a SKU rule.
func (r *MemConfigRepo) PutRule(rule *replenishment.Rule) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rules[rule.VariantID] = rule
}

// PutTierDefault stores a tier default.
func (r *MemConfigRepo) PutTierDefault(def *replenishment.TierDefault) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tierDefaults[def.HierarchyLevel] = def
}

// FindLocationVariantConfig implements replenishment.ConfigRepository.
func (r *MemConfigRepo) FindLocationVariantConfig(_ context.Context, locationID, variantID uuid.UUID) (*replenishment.LocationConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locationVariant[pairKey(locationID, variantID)], nil
}

// FindLocationWideConfig implements replenishment.ConfigRepository.
func (r *MemConfigRepo) FindLocationWideConfig(_ context.Context, locationID uuid.UUID) (*replenishment.LocationConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locationWide[locationID], nil
}

// FindRuleByVariant implements replenishment.ConfigRepository.
func (r *MemConfigRepo) FindRuleByVariant(_ context.Context, variantID uuid.UUID) (*replenishment.Rule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rules[variantID], nil
}

// FindTierDefault implements replenishment.ConfigRepository.
func (r *MemConfigRepo) FindTierDefault(_ context.Context, hierarchyLevel int) (*replenishment.TierDefault, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tierDefaults[hierarchyLevel], nil
}

// HasBinAssignment implements replenishment.ConfigRepository.
func (r *MemConfigRepo) HasBinAssignment(_ context.Context, locationID, variantID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.locationVariant[pairKey(locationID, variantID)]
	return ok && cfg.Active, nil
}

var _ replenishment.ConfigRepository = (*MemConfigRepo)(nil)

// MemVariantRepo is an in-memory catalog.VariantRepository.
type MemVariantRepo struct {
	mu       sync.Mutex
	variants map[uuid.UUID]*catalog.ProductVariant
}

// NewMemVariantRepo creates an empty in-memory variant repository.
func NewMemVariantRepo() *MemVariantRepo {
	return &MemVariantRepo{variants: make(map[uuid.UUID]*catalog.ProductVariant)}
}

// Add creates and stores a variant.
func (r *MemVariantRepo) Add(productID uuid.UUID, sku string, unitsPerVariant int64, hierarchyLevel int) *catalog.ProductVariant {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, _ := catalog.NewProductVariant(productID, sku, sku, unitsPerVariant, hierarchyLevel)
	r.variants[v.ID] = v
	return v
}

// FindByID implements catalog.VariantRepository.
func (r *MemVariantRepo) FindByID(_ context.Context, id uuid.UUID) (*catalog.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return v, nil
}

// FindBySKU implements catalog.VariantRepository.
func (r *MemVariantRepo) FindBySKU(_ context.Context, sku string) (*catalog.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.variants {
		if v.SKU == sku {
			return v, nil
		}
	}
	return nil, shared.ErrNotFound
}

// FindByProduct implements catalog.VariantRepository.
func (r *MemVariantRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]catalog.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []catalog.ProductVariant
	for _, v := range r.variants {
		if v.ProductID == productID {
			out = append(out, *v)
		}
	}
	return out, nil
}

// FindSmallerSiblings implements catalog.VariantRepository.
func (r *MemVariantRepo) FindSmallerSiblings(_ context.Context, variant *catalog.ProductVariant) ([]catalog.ProductVariant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []catalog.ProductVariant
	for _, v := range r.variants {
		if v.ProductID == variant.ProductID && v.UnitsPerVariant < variant.UnitsPerVariant {
			out = append(out, *v)
		}
	}
	return out, nil
}

var _ catalog.VariantRepository = (*MemVariantRepo)(nil)

// MemOrderRepo is an in-memory order.Repository.
type MemOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]*order.Order
}

// NewMemOrderRepo creates an empty in-memory order repository.
func NewMemOrderRepo() *MemOrderRepo {
	return &MemOrderRepo{orders: make(map[uuid.UUID]*order.Order)}
}

// Put stores an order.
func (r *MemOrderRepo) Put(ord *order.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[ord.ID] = ord
}

// FindByID implements order.Repository.
func (r *MemOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *ord
	copied.Lines = make([]order.Line, len(ord.Lines))
	copy(copied.Lines, ord.Lines)
	return &copied, nil
}

// FindByIDs implements order.Repository.
func (r *MemOrderRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, id := range ids {
		if ord, ok := r.orders[id]; ok {
			copied := *ord
			copied.Lines = make([]order.Line, len(ord.Lines))
			copy(copied.Lines, ord.Lines)
			out = append(out, copied)
		}
	}
	return out, nil
}

// SaveLine implements order.Repository.
func (r *MemOrderRepo) SaveLine(_ context.Context, line *order.Line) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ord, ok := r.orders[line.OrderID]
	if !ok {
		return shared.ErrNotFound
	}
	for i := range ord.Lines {
		if ord.Lines[i].ID == line.ID {
			ord.Lines[i] = *line
			return nil
		}
	}
	return shared.ErrNotFound
}

var _ order.Repository = (*MemOrderRepo)(nil)

// MemTaskRepo is an in-memory replenishment.TaskRepository.
type MemTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*replenishment.Task
}

// NewMemTaskRepo creates an empty in-memory task repository.
func NewMemTaskRepo() *MemTaskRepo {
	return &MemTaskRepo{tasks: make(map[uuid.UUID]*replenishment.Task)}
}

// All returns a snapshot of every stored task.
func (r *MemTaskRepo) All() []replenishment.Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []replenishment.Task
	for _, task := range r.tasks {
		out = append(out, *task)
	}
	return out
}

// FindByID implements replenishment.TaskRepository.
func (r *MemTaskRepo) FindByID(_ context.Context, id uuid.UUID) (*replenishment.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	copied := *task
	return &copied, nil
}

// FindAll implements replenishment.TaskRepository.
func (r *MemTaskRepo) FindAll(_ context.Context, _ shared.Filter) ([]replenishment.Task, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []replenishment.Task
	for _, task := range r.tasks {
		out = append(out, *task)
	}
	return out, int64(len(out)), nil
}

// Save implements replenishment.TaskRepository.
func (r *MemTaskRepo) Save(_ context.Context, task *replenishment.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *task
	r.tasks[task.ID] = &copied
	return nil
}

// FindActiveByVariantAndDestination implements replenishment.TaskRepository.
func (r *MemTaskRepo) FindActiveByVariantAndDestination(_ context.Context, pickVariantID, destinationLocationID uuid.UUID) (*replenishment.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, task := range r.tasks {
		if task.PickVariantID == pickVariantID &&
			task.DestinationLocationID == destinationLocationID &&
			task.Status.IsActive() {
			copied := *task
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

var _ replenishment.TaskRepository = (*MemTaskRepo)(nil)

// MemLocationRepo is an in-memory warehouse.LocationRepository.
type MemLocationRepo struct {
	mu        sync.Mutex
	order     []uuid.UUID
	locations map[uuid.UUID]*warehouse.Location
}

// NewMemLocationRepo creates an empty in-memory location repository.
func NewMemLocationRepo() *MemLocationRepo {
	return &MemLocationRepo{locations: make(map[uuid.UUID]*warehouse.Location)}
}

// Put stores a location.
func (r *MemLocationRepo) Put(loc *warehouse.Location) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locations[loc.ID] = loc
	r.order = append(r.order, loc.ID)
}

// FindByID implements warehouse.LocationRepository.
func (r *MemLocationRepo) FindByID(_ context.Context, id uuid.UUID) (*warehouse.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loc, ok := r.locations[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return loc, nil
}

// FindPickLocations implements warehouse.LocationRepository. Insertion order
// stands in for the physical walk sequence.
func (r *MemLocationRepo) FindPickLocations(_ context.Context, warehouseID *uuid.UUID) ([]warehouse.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []warehouse.Location
	for _, id := range r.order {
		loc := r.locations[id]
		if loc == nil || !loc.Pickable || !loc.Active {
			continue
		}
		if warehouseID != nil && loc.WarehouseID != *warehouseID {
			continue
		}
		out = append(out, *loc)
	}
	return out, nil
}

var _ warehouse.LocationRepository = (*MemLocationRepo)(nil)

// CapturingPublisher records every published event for assertions.
type CapturingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

// Publish implements shared.EventPublisher.
func (p *CapturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

// Events returns a snapshot of everything published.
func (p *CapturingPublisher) Events() []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.DomainEvent, len(p.events))
	copy(out, p.events)
	return out
}

// ByType returns published events of one type.
func (p *CapturingPublisher) ByType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

var _ shared.EventPublisher = (*CapturingPublisher)(nil)
