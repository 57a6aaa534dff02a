package shared

// BaseAggregateRoot adds a version counter to BaseEntity. The counter is
// bumped on every write; the guarded UPDATE paths increment it in SQL, the
// in-memory state machines call IncrementVersion themselves.
type BaseAggregateRoot struct {
	BaseEntity
	Version int `gorm:"not null;default:1"`
}

// IncrementVersion bumps the version counter
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// NewBaseAggregateRoot creates a base aggregate root at version 1
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity: NewBaseEntity(),
		Version:    1,
	}
}
