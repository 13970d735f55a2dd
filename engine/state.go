package engine

// turnState is a node in the per-turn state machine. The graph is a fixed
// three-node, one-branch shape, so an explicit enum and transition function
// replace any generic graph engine:
//
//	stateRetrieve -> stateGenerate -> {statePrune | stateDone}
//
// Every invocation starts at stateRetrieve; there is no mid-turn resumption.
// Checkpointing is turn-granular.
type turnState int

const (
	stateRetrieve turnState = iota
	stateGenerate
	statePrune
	stateDone
)

func (s turnState) String() string {
	switch s {
	case stateRetrieve:
		return "RETRIEVE"
	case stateGenerate:
		return "GENERATE"
	case statePrune:
		return "PRUNE"
	case stateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// nextState returns the state following s for a turn that retrieved
// `retrieved` snippets. The prune branch is taken when the count reaches the
// threshold, inclusive.
func nextState(s turnState, retrieved, pruneThreshold int) turnState {
	switch s {
	case stateRetrieve:
		return stateGenerate
	case stateGenerate:
		if retrieved >= pruneThreshold {
			return statePrune
		}
		return stateDone
	default:
		return stateDone
	}
}
