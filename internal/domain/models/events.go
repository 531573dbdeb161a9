package models

import "time"

// VenueEvent is the closed set of messages the venue stream can deliver.
// The engine loop dispatches on these variants through one transition
// function instead of branching on raw message strings.
type VenueEvent interface {
	venueEvent()
}

// TickEvent carries one raw price tick.
type TickEvent struct {
	Epoch int64
	Price float64
}

// ProposalReadyEvent reports that the venue priced a proposal.
type ProposalReadyEvent struct {
	ProposalID string
	AskPrice   float64
	Payout     float64
}

// TradeFilledEvent reports that a buy was accepted.
type TradeFilledEvent struct {
	ContractID string
	BuyPrice   float64
}

// ContractResolvedEvent reports a settled contract and its profit.
type ContractResolvedEvent struct {
	ContractID string
	Profit     float64
}

// VenueErrorEvent reports a venue-side error; a pending proposal must be
// cleared so a new decision cycle can proceed.
type VenueErrorEvent struct {
	Code    string
	Message string
}

func (TickEvent) venueEvent()             {}
func (ProposalReadyEvent) venueEvent()    {}
func (TradeFilledEvent) venueEvent()      {}
func (ContractResolvedEvent) venueEvent() {}
func (VenueErrorEvent) venueEvent()       {}

// EngineEvent is a structured event emitted toward observability sinks.
type EngineEvent struct {
	Type      string                 `json:"type"`
	Time      time.Time              `json:"time"`
	Seq       int64                  `json:"seq,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

// Engine event types.
const (
	EventDecisionMade  = "decision_made"
	EventDecisionSkip  = "decision_skipped"
	EventTradeResolved = "trade_resolved"
	EventModeSwitch    = "mode_switch"
	EventHealthWarning = "health_warning"
	EventAnomalyFlag   = "anomaly_flagged"
	EventCooldown      = "cooldown_engaged"
)
