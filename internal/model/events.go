package model

// Event types appended to the factory journal.
const (
	EventNewPair                = "NewPair"
	EventNFTDeposit             = "NFTDeposit"
	EventTokenDeposit           = "TokenDeposit"
	EventCurveStatusUpdate      = "CurveStatusUpdate"
	EventCallTargetStatusUpdate = "CallTargetStatusUpdate"
	EventRouterStatusUpdate     = "RouterStatusUpdate"
	EventFeeRecipientUpdate     = "ProtocolFeeRecipientUpdate"
	EventFeeMultiplierUpdate    = "ProtocolFeeMultiplierUpdate"
	EventOwnershipTransferred   = "OwnershipTransferred"
)

// Event is one journal entry. Seq is assigned by the factory and strictly
// increases; exporters use it as their resume cursor.
type Event struct {
	Seq        uint64 `json:"seq"`
	Type       string `json:"type"`
	Caller     string `json:"caller"`
	Pair       string `json:"pair,omitempty"`
	Collection string `json:"collection,omitempty"`
	Token      string `json:"token,omitempty"`
	Subject    string `json:"subject,omitempty"`
	Allowed    *bool  `json:"allowed,omitempty"`
	Amount     string `json:"amount,omitempty"`
	Timestamp  uint64 `json:"timestamp"`
	EmittedAt  string `json:"emitted_at"`
}
