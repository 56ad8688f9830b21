package core

// Service is the entry point for import and export operations. It owns the
// storage collaborator and the optional alias overlay; all batch-scoped
// state (transaction, reference cache, schema shapes) lives in the batch,
// never on the service, so concurrent batches cannot cross-contaminate.
type Service struct {
	store   Store
	overlay AliasOverlay
}

// NewService creates a Service over the given store.
func NewService(store Store, overlay AliasOverlay) *Service {
	return &Service{store: store, overlay: overlay}
}
