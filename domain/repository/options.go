package repository

// WithOwnerID filters by the "owner_id" column.
func WithOwnerID(ownerID string) Option {
	return WithCondition("owner_id", ownerID)
}

// WithSlot filters by the "slot" column.
func WithSlot(slot string) Option {
	return WithCondition("slot", slot)
}

// WithSlotIn filters by the "slot" column using IN.
func WithSlotIn(slots []string) Option {
	return WithConditionIn("slot", slots)
}

// WithHasEmbedding filters for rows whose embedding column is (not) null.
func WithHasEmbedding(has bool) Option {
	return WithCondition("has_embedding", has)
}

// WithName filters by the "name" column.
func WithName(name string) Option {
	return WithCondition("name", name)
}
