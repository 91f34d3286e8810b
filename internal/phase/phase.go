package phase

// Phase is one of the consecutive time windows of a lottery round
type Phase uint8

const (
	// Sale accepts ticket purchases.
	Sale Phase = iota
	// Reveal accepts ticket secret reveals.
	Reveal
	// End is the window in which the owner must close the round.
	End
	// Expired means the owner missed the End window; ticket holders may
	// reclaim their payment.
	Expired
)

func (p Phase) String() string {
	switch p {
	case Sale:
		return "sale"
	case Reveal:
		return "reveal"
	case End:
		return "end"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}
