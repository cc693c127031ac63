// Package collaborator defines the interfaces agentcore consumes but
// never implements: the town/plot CRUD, the AMM, the arena/PvP engine,
// the paid-skill oracle, the language-model gateway, and the narrower
// world-event/social/goal/command-queue services. Names are semantic, not
// wire types — the host process supplies concrete implementations backed
// by whatever database, chain, or API it chooses.
package collaborator

import (
	"context"
	"time"

	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/command"
	"github.com/townforge/agentcore/domain/economy"
	"github.com/townforge/agentcore/domain/observation"
)

// AgentDirectory is the persistence boundary for agent identity/state. The
// core never owns agent storage; it reads the active roster each tick and
// writes back only the fields §3 names it as the mutator of.
type AgentDirectory interface {
	ListActive(ctx context.Context) ([]*agent.Agent, error)
	Save(ctx context.Context, a *agent.Agent) error
}

// TownService owns town/plot CRUD and the invariants around them.
type TownService interface {
	GetActiveTown(ctx context.Context) (*observation.Town, error)
	CreateTown(ctx context.Context, name string, level int) (*observation.Town, error)
	GetAgentPlots(ctx context.Context, agentID string) ([]observation.Plot, error)
	GetAvailablePlots(ctx context.Context, townID string) ([]observation.Plot, error)
	GetRecentEvents(ctx context.Context, townID string, n int) ([]observation.Event, error)
	GetWorldStats(ctx context.Context) (observation.WorldStats, error)
	ClaimPlot(ctx context.Context, agentID, townID string, plotIndex int) (*observation.Plot, error)
	StartBuild(ctx context.Context, agentID, plotID, buildingType string) error
	SubmitWork(ctx context.Context, agentID, plotID, designStep string) (apiCallsUsed int, err error)
	SubmitMiningWork(ctx context.Context, agentID, plotID string) error
	CompleteBuild(ctx context.Context, agentID, plotID string) error
	TransferArena(ctx context.Context, fromAgentID, toAgentID string, amount int) error
	DistributeYield(ctx context.Context, townID string) error
	LogEvent(ctx context.Context, townID, kind, title, description, agentID string, metadata map[string]any) error
}

// CompletedTownsCount is implemented by TownService collaborators that can
// also report how many towns have reached COMPLETE, used by the
// scheduler to level a freshly created town.
type CompletedTownsCount interface {
	CompletedTownsCount(ctx context.Context) (int, error)
}

// EconomyPoolStore is the persistence boundary for the shared economy
// pool row. agentcore never holds a long-lived handle to the row; every
// hook that moves coins calls TryApplyDelta, so the floor re-check
// happens inside the same transaction as the read. Some hooks also read
// the row first with GetPool to size or pre-check the amount.
type EconomyPoolStore interface {
	GetPool(ctx context.Context) (economy.Pool, error)
	// TryApplyDelta atomically re-reads the row, verifies arenaBalance +
	// delta would not breach economy.SolvencyPoolFloor when delta is
	// negative, applies it, and returns the resulting pool. ok is false
	// (no error) when the floor would be breached.
	TryApplyDelta(ctx context.Context, delta int) (result economy.Pool, ok bool, err error)
}

// SwapSide is the direction of an AMM swap.
type SwapSide string

const (
	SwapBuyArena  SwapSide = "BUY_ARENA"
	SwapSellArena SwapSide = "SELL_ARENA"
)

// SwapOptions carries optional slippage protection for a swap.
type SwapOptions struct {
	MinAmountOut int
}

// Swap is one executed AMM trade.
type Swap struct {
	ID         string
	Side       SwapSide
	AmountIn   int
	AmountOut  int
	FeeAmount  int
}

// AMM is the off-chain automated market maker swap engine.
type AMM interface {
	GetPoolSummary(ctx context.Context) (observation.PoolSummary, error)
	Swap(ctx context.Context, agentID string, side SwapSide, amountIn int, opts SwapOptions) (Swap, error)
}

// MatchState is the arena/PvP engine's view of an in-progress match.
type MatchState struct {
	ID         string
	GameType   string
	AgentA     string
	AgentB     string
	Wager      int
	Phase      string
	ActionsTaken int
}

// CreateMatchRequest parameterizes Arena.CreateMatch.
type CreateMatchRequest struct {
	AgentID              string
	OpponentID           string
	GameType             string
	WagerAmount          int
	SkipPredictionMarket bool
}

// Arena is the PvP match engine.
type Arena interface {
	CreateMatch(ctx context.Context, req CreateMatchRequest) (*MatchState, error)
	GetMatchState(ctx context.Context, matchID string) (*MatchState, error)
	SubmitMove(ctx context.Context, matchID, agentID, actionName string) error
	CancelMatch(ctx context.Context, matchID, agentID string) error
}

// BuySkillRequest is forwarded to the paid-skill oracle.
type BuySkillRequest struct {
	AgentID            string
	Skill              string
	Question           string
	WhyNow             string
	ExpectedNextAction string
	IfThen             string
	Params             map[string]any
}

// BuySkillResult is the oracle's answer, already debited from the agent.
type BuySkillResult struct {
	PriceArena    int
	PublicSummary string
}

// SkillOracle is the paid-skill oracle (x402-style skill purchases).
type SkillOracle interface {
	BuySkill(ctx context.Context, req BuySkillRequest) (BuySkillResult, error)
	EstimateSkillPriceArena(ctx context.Context, skill string, spotPrice float64) (int, error)
	// RecentOutputs returns agentID's own trailing skill purchases, newest
	// first, capped at limit, for the "recent skills" block of its own
	// observation.
	RecentOutputs(ctx context.Context, agentID string, limit int) ([]observation.SkillOutput, error)
}

// ModelSpec identifies a language model and its calling conventions.
type ModelSpec struct {
	ModelID     string
	Provider    string
	MaxTokens   int
}

// ChatMessage is one turn in the prompt sent to the language-model
// gateway.
type ChatMessage struct {
	Role    string
	Content string
}

// ModelResponse is the raw completion returned by the gateway.
type ModelResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// ModelCost is the computed cost of one gateway call.
type ModelCost struct {
	Model      string
	InputTokens  int
	OutputTokens int
	CostCents    float64
	LatencyMs    int64
}

// LanguageModel is the smart-AI gateway collaborator.
type LanguageModel interface {
	GetModelSpec(ctx context.Context, modelID string) (ModelSpec, error)
	CallModel(ctx context.Context, spec ModelSpec, messages []ChatMessage, temperature float64, forceNoJSONMode bool) (ModelResponse, error)
	CalculateCost(ctx context.Context, spec ModelSpec, inputTokens, outputTokens int, latency time.Duration) (ModelCost, error)
}

// BuildingVisual selects a cosmetic sprite/emoji for a newly completed
// building (spec complete_build step, best-effort). The core never renders
// anything itself; it only records whichever identifier the collaborator
// returns.
type BuildingVisual interface {
	SelectVisual(ctx context.Context, buildingType string, zone observation.Zone) (string, error)
}

// YieldAdjuster is implemented by TownService collaborators that support
// nudging a completed building's town yield after a judged quality score
// (spec complete_build step, best-effort).
type YieldAdjuster interface {
	AdjustYield(ctx context.Context, townID string, delta int) error
}

// ConstructionBounty is implemented by TownService collaborators that track
// active bounties on a plot. ClaimBounty is a no-op returning zero when no
// bounty is active on plotID.
type ConstructionBounty interface {
	ClaimBounty(ctx context.Context, plotID string) (amount int, err error)
}

// WorldEvents pulses world-level events (e.g. wheel-of-fate windows).
type WorldEvents interface {
	Pulse(ctx context.Context, tick int64) (*observation.Event, error)
}

// Social exposes the agent relationship graph.
type Social interface {
	GetRelationships(ctx context.Context, agentID string) ([]observation.Relationship, error)
}

// Goals exposes per-agent persistent goal stacks.
type Goals interface {
	GetGoalStack(ctx context.Context, agentID string) ([]string, error)
}

// CommandQueue is the owner/operator control-plane's durable queue.
type CommandQueue interface {
	NextQueued(ctx context.Context, agentID string) (*command.Command, error)
	Transition(ctx context.Context, commandID string, status command.Status, reason command.ReasonCode) error
	EmitReceipt(ctx context.Context, receipt command.Receipt) error
}
