// Package observation holds the immutable per-tick world snapshot the
// decision engine reasons over.
package observation

import "time"

// PlotStatus mirrors the town service's plot lifecycle.
type PlotStatus string

const (
	PlotEmpty             PlotStatus = "EMPTY"
	PlotClaimed           PlotStatus = "CLAIMED"
	PlotUnderConstruction PlotStatus = "UNDER_CONSTRUCTION"
	PlotComplete          PlotStatus = "COMPLETE"
)

// Zone categorizes a plot's build cost and minimum work steps.
type Zone string

const (
	ZoneResidential   Zone = "RESIDENTIAL"
	ZoneCommercial    Zone = "COMMERCIAL"
	ZoneCivic         Zone = "CIVIC"
	ZoneIndustrial    Zone = "INDUSTRIAL"
	ZoneEntertainment Zone = "ENTERTAINMENT"
)

// MinWorkSteps returns the minimum number of do_work submissions a zone's
// building requires before it can be completed.
func (z Zone) MinWorkSteps() int {
	switch z {
	case ZoneResidential:
		return 3
	case ZoneCommercial:
		return 4
	case ZoneCivic:
		return 5
	case ZoneIndustrial:
		return 4
	case ZoneEntertainment:
		return 4
	default:
		return 3
	}
}

// Plot is a land parcel inside the active town.
type Plot struct {
	ID            string
	Index         int
	Zone          Zone
	Status        PlotStatus
	OwnerAgentID  string
	BuildingType  string
	BuildingName  string
	ApiCallsUsed  int
	ClaimedAt     time.Time
}

// Town is the currently active town.
type Town struct {
	ID        string
	Name      string
	Level     int
	Status    string // BUILDING | COMPLETE
	CreatedAt time.Time
}

// PoolSummary is the AMM's public view of the shared economy pool.
type PoolSummary struct {
	SpotPrice      float64
	FeeBps         int
	ReserveBalance int
	ArenaBalance   int
}

// Event is a logged town event, already filtered of private kinds.
type Event struct {
	ID          string
	TownID      string
	Type        string
	Title       string
	Description string
	AgentID     string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// Private event kinds the observation builder strips before returning.
const (
	EventKindSkillPaid        = "X402_SKILL"
	EventKindAgentChat        = "AGENT_CHAT"
	EventKindRelationshipChange = "RELATIONSHIP_CHANGE"
	EventKindAgentTrade       = "AGENT_TRADE"
)

// SkillOutput is a recent paid-skill result visible to the owning agent.
type SkillOutput struct {
	Skill       string
	Summary     string
	PriceArena  int
	RequestedAt time.Time
}

// PublicAgent is another agent's publicly observable state.
type PublicAgent struct {
	ID        string
	Name      string
	Archetype string
	Bankroll  int
	Elo       int
	Health    int
	IsInMatch bool
}

// Relationship captures a friend/rival score with another agent.
type Relationship struct {
	AgentID string
	Score   int
	Kind    string // "friend" | "rival"
}

// WorldStats is a coarse snapshot of town/world level indicators.
type WorldStats struct {
	CompletedTowns      int
	UpkeepMultiplier    float64
	CostMultiplier      float64
	ActiveWorldEventName string
}

// Observation is the immutable snapshot a single agent's pipeline observes
// for one tick. A degenerate Observation (no town, empty collections) is
// returned when no active town exists; the pipeline still runs.
type Observation struct {
	Tick             int64
	AgentID          string
	Town             *Town // nil when no active town
	OwnedPlots       []Plot
	AvailablePlots   []Plot
	Contributions    map[string]int // plotID -> this agent's contribution count
	Balances         struct {
		Bankroll int
		Reserve  int
	}
	Pool             PoolSummary
	RecentEvents     []Event
	RecentSkills     []SkillOutput
	OtherAgents      []PublicAgent
	Relationships    []Relationship
	WorldStats       WorldStats
}

// HasActiveTown reports whether this observation was taken against a live
// town. When false, every execution branch other than rest returns "no
// active town".
func (o Observation) HasActiveTown() bool {
	return o.Town != nil
}
