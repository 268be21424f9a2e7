package domain

// Action is the event action carried in the envelope metadata.
type Action string

const (
	ActionPrepare           Action = "prepare"
	ActionCommit            Action = "commit"
	ActionReserve           Action = "reserve"
	ActionReject            Action = "reject"
	ActionAbort             Action = "abort"
	ActionAbortValidation   Action = "abort-validation"
	ActionTimeoutReserved   Action = "timeout-reserved"
	ActionBulkPrepare       Action = "bulk-prepare"
	ActionFxPrepare         Action = "fx-prepare"
	ActionFxReserve         Action = "fx-reserve"
	ActionFxCommit          Action = "fx-commit"
	ActionFxAbort           Action = "fx-abort"
	ActionFxTimeoutReserved Action = "fx-timeout-reserved"
)

// ActionKind is the set of actions the position pipeline knows how to process.
// Every other action is carried through unchanged.
type ActionKind int

const (
	ActionKindUnsupported ActionKind = iota
	ActionKindPrepare
)

func (k ActionKind) String() string {
	switch k {
	case ActionKindPrepare:
		return "prepare"
	default:
		return "unsupported"
	}
}

// Kind maps an action onto its processing variant.
func (a Action) Kind() ActionKind {
	switch a {
	case ActionPrepare:
		return ActionKindPrepare
	default:
		return ActionKindUnsupported
	}
}

// Known reports whether the action is one of the position stream actions.
func (a Action) Known() bool {
	switch a {
	case ActionPrepare, ActionCommit, ActionReserve, ActionReject, ActionAbort,
		ActionAbortValidation, ActionTimeoutReserved, ActionBulkPrepare,
		ActionFxPrepare, ActionFxReserve, ActionFxCommit, ActionFxAbort, ActionFxTimeoutReserved:
		return true
	}
	return false
}
