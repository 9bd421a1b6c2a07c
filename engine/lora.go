package engine

// LoRAProvider is optionally implemented by text-generation backends
// that support low-rank adapters on top of a loaded base model.
type LoRAProvider interface {
	// LoadLoRA applies the adapter at path with the given scale.
	LoadLoRA(path string, scale float32) error

	// RemoveLoRA detaches a previously applied adapter.
	RemoveLoRA(path string) error

	// ClearLoRA detaches all applied adapters.
	ClearLoRA() error
}
