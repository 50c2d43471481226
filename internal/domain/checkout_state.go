package domain

// CheckoutState is a step of the checkout state machine.
type CheckoutState string

const (
	CheckoutStateIdle       CheckoutState = "IDLE"
	CheckoutStateValidating CheckoutState = "VALIDATING"
	CheckoutStateSubmitting CheckoutState = "SUBMITTING"
	CheckoutStateSuccess    CheckoutState = "SUCCESS"
	CheckoutStateFailed     CheckoutState = "FAILED"
)

var checkoutTransitions = map[CheckoutState][]CheckoutState{
	CheckoutStateIdle:       {CheckoutStateValidating},
	CheckoutStateValidating: {CheckoutStateSubmitting, CheckoutStateFailed},
	CheckoutStateSubmitting: {CheckoutStateSuccess, CheckoutStateFailed},
	CheckoutStateSuccess:    {CheckoutStateIdle},
	CheckoutStateFailed:     {CheckoutStateIdle},
}

// CanTransitionTo reports whether the state machine allows from -> to.
func CanTransitionTo(from, to CheckoutState) bool {
	for _, s := range checkoutTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func (s CheckoutState) IsTerminal() bool {
	return s == CheckoutStateSuccess || s == CheckoutStateFailed
}

// String representation (for logging)
func (s CheckoutState) String() string {
	return string(s)
}
