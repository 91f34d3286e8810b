package lottery

// Names of the events a round emits, one per accepted call.
const (
	EventStartLottery = "StartLottery"
	EventBuyTicket    = "BuyTicket"
	EventRevealSecret = "RevealSecret"
	EventEndLottery   = "EndLottery"
	EventReturnTicket = "ReturnTicket"
)
