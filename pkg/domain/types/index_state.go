package types

import "fmt"

// IndexState represents the lifecycle state of a building's vector index.
// The vector store itself has no first-class readiness flag, so the state is
// tracked explicitly in a sidecar record next to the collection.
type IndexState string

const (
	// IndexStateBuilding means an ingestion run is in progress. The collection
	// may be partially populated and must not be queried.
	IndexStateBuilding IndexState = "BUILDING"

	// IndexStateReady means every record of the last ingestion run was
	// verified retrievable. Only this state makes a building queryable.
	IndexStateReady IndexState = "READY"

	// IndexStateFailed means the last run left unverified records behind.
	// The collection still exists but must not be treated as usable.
	IndexStateFailed IndexState = "FAILED"
)

// AllIndexStates returns all valid index states
func AllIndexStates() []IndexState {
	return []IndexState{
		IndexStateBuilding,
		IndexStateReady,
		IndexStateFailed,
	}
}

// IsValid checks if the index state is valid
func (s IndexState) IsValid() bool {
	switch s {
	case IndexStateBuilding,
		IndexStateReady,
		IndexStateFailed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the index state
func (s IndexState) String() string {
	return string(s)
}

// ParseIndexState parses a string into an IndexState
func ParseIndexState(s string) (IndexState, error) {
	state := IndexState(s)
	if !state.IsValid() {
		return "", fmt.Errorf("invalid index state: %s", s)
	}
	return state, nil
}
