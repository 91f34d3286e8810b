package lottery

// Kind classifies why a call was rejected.
type Kind uint8

const (
	KindConfig Kind = iota + 1
	KindAuthorization
	KindPhase
	KindIntegrity
	KindState
	KindFunding
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuthorization:
		return "authorization"
	case KindPhase:
		return "phase"
	case KindIntegrity:
		return "integrity"
	case KindState:
		return "state"
	case KindFunding:
		return "funding"
	default:
		return "unknown"
	}
}

// Error is a rejected call. Reason is the stable, user facing message.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string {
	return e.Reason
}

func newError(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Deployment
var (
	ErrTicketPrice    = newError(KindConfig, "REQ: ticketPrice > 0")
	ErrSalesDuration  = newError(KindConfig, "REQ: salesDuration > 0")
	ErrRevealDuration = newError(KindConfig, "REQ: revealDuration > 0")
	ErrEndDuration    = newError(KindConfig, "REQ: endDuration > 0")
	ErrCommission     = newError(KindConfig, "REQ: commission < 100")
	ErrDepositTooLow  = newError(KindFunding, "Not enough funds for deposit")
)

// Operations
var (
	ErrWrongPayment       = newError(KindFunding, "Not enough funds to buy a ticket")
	ErrSalesClosed        = newError(KindPhase, "No more ticket sales")
	ErrTicketExists       = newError(KindState, "Ticket already purchased")
	ErrRevealTooEarly     = newError(KindPhase, "It's too early to reveal")
	ErrRevealClosed       = newError(KindPhase, "No more reveals")
	ErrNoTicket           = newError(KindState, "No ticket")
	ErrSecretMismatch     = newError(KindIntegrity, "Secret doesn't match stored hash")
	ErrAlreadyRevealed    = newError(KindState, "Secret already revealed")
	ErrNotOwner           = newError(KindAuthorization, "Ownable: caller is not the owner")
	ErrInProgress         = newError(KindPhase, "Lottery is still in progress")
	ErrEndTooLate         = newError(KindPhase, "It's too late to end the lottery")
	ErrAlreadyEnded       = newError(KindState, "Lottery has already ended")
	ErrNoReveals          = newError(KindState, "No revealed tickets")
	ErrReturnTooEarly     = newError(KindPhase, "It's too early to return tickets")
	ErrInsufficientEscrow = newError(KindFunding, "Insufficient escrow balance")
)
