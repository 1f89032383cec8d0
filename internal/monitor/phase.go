package monitor

import (
	"github.com/jerryjalapeno/claude-island/internal/types"
)

// phaseTransitions is the validity table keyed by (current, proposed).
// Forward progress through a turn is always legal; Ended absorbs everything;
// same-kind transitions are legal so a WaitingForApproval phase can advance
// to the next queued approval context. Signal sources are not mutually
// synchronized, so an illegal transition is expected occasionally and is
// dropped rather than treated as fatal.
var phaseTransitions = map[types.PhaseKind][]types.PhaseKind{
	types.PhaseIdle: {
		types.PhaseIdle,
		types.PhaseProcessing,
		types.PhaseWaitingForApproval,
		types.PhaseCompacting,
		types.PhaseEnded,
	},
	types.PhaseProcessing: {
		types.PhaseProcessing,
		types.PhaseWaitingForApproval,
		types.PhaseWaitingForInput,
		types.PhaseCompacting,
		types.PhaseEnded,
	},
	types.PhaseWaitingForApproval: {
		types.PhaseWaitingForApproval,
		types.PhaseProcessing,
		types.PhaseWaitingForInput,
		types.PhaseIdle,
		types.PhaseEnded,
	},
	types.PhaseWaitingForInput: {
		types.PhaseWaitingForInput,
		types.PhaseProcessing,
		types.PhaseWaitingForApproval,
		types.PhaseCompacting,
		types.PhaseEnded,
	},
	types.PhaseCompacting: {
		types.PhaseCompacting,
		types.PhaseProcessing,
		types.PhaseIdle,
		types.PhaseEnded,
	},
	types.PhaseEnded: {},
}

func transitionAllowed(from, to types.PhaseKind) bool {
	for _, kind := range phaseTransitions[from] {
		if kind == to {
			return true
		}
	}
	return false
}

func phaseOf(kind types.PhaseKind) types.Phase {
	return types.Phase{Kind: kind}
}

func approvalPhase(ctx types.ApprovalContext) types.Phase {
	return types.Phase{Kind: types.PhaseWaitingForApproval, Approval: &ctx}
}
