package ledger

import "errors"

var (
	ErrTicketExists    = errors.New("ticket already exists")
	ErrWrongPayment    = errors.New("payment does not equal ticket price")
	ErrNoTicket        = errors.New("no ticket")
	ErrHashMismatch    = errors.New("secret does not match committed hash")
	ErrAlreadyRevealed = errors.New("secret already revealed")
	ErrAlreadySettled  = errors.New("ticket already settled")
	ErrInconsistent    = errors.New("inconsistent ledger snapshot")
)
