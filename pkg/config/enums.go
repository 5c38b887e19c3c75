package config

// AdapterBackend defines how an adapter executes its tool
type AdapterBackend string

const (
	// AdapterBackendProcess spawns a local binary through the process runner
	AdapterBackendProcess AdapterBackend = "process"
	// AdapterBackendContainer runs a container image with a mounted evidence
	// volume through the container runner
	AdapterBackendContainer AdapterBackend = "container"
	// AdapterBackendNetwork issues HTTP or DNS requests directly
	AdapterBackendNetwork AdapterBackend = "network"
)

// IsValid checks if the adapter backend is valid
func (b AdapterBackend) IsValid() bool {
	return b == AdapterBackendProcess || b == AdapterBackendContainer || b == AdapterBackendNetwork
}

// StoreType defines supported persistent store backends
type StoreType string

const (
	// StoreTypePostgres persists to PostgreSQL
	StoreTypePostgres StoreType = "postgres"
	// StoreTypeMemory keeps everything in process memory (tests, dry runs)
	StoreTypeMemory StoreType = "memory"
)

// IsValid checks if the store type is valid
func (t StoreType) IsValid() bool {
	return t == StoreTypePostgres || t == StoreTypeMemory
}

// InputType defines the value types an agent input may declare
type InputType string

const (
	InputTypeString  InputType = "string"
	InputTypeNumber  InputType = "number"
	InputTypeBoolean InputType = "boolean"
	InputTypeObject  InputType = "object"
	InputTypeArray   InputType = "array"
)

// IsValid checks if the input type is valid
func (t InputType) IsValid() bool {
	switch t {
	case InputTypeString, InputTypeNumber, InputTypeBoolean, InputTypeObject, InputTypeArray:
		return true
	default:
		return false
	}
}
