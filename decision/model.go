package decision

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/action"
	"github.com/townforge/agentcore/domain/observation"
)

// rawModelDecision is the stable JSON schema the language model must
// answer with (spec §4.3(3)): {type, reasoning, calculations, details,
// humanReply}.
type rawModelDecision struct {
	Type         string          `json:"type"`
	Reasoning    string          `json:"reasoning"`
	Calculations string          `json:"calculations"`
	Details      json.RawMessage `json:"details"`
	HumanReply   string          `json:"humanReply"`
}

// ModelLimiter throttles outbound language-model calls with one token
// bucket per archetype, so a burst of simultaneous agent decisions cannot
// overrun the gateway — grounded on the host platform's rate-limit
// middleware, generalized from one global bucket to per-archetype buckets
// since each archetype's agents share a temperature/prompt profile.
type ModelLimiter struct {
	mu       sync.Mutex
	perSec   float64
	buckets  map[agent.Archetype]*rate.Limiter
}

// NewModelLimiter builds a limiter allowing ratePerSec calls/sec, burst 1,
// per archetype.
func NewModelLimiter(ratePerSec float64) *ModelLimiter {
	return &ModelLimiter{perSec: ratePerSec, buckets: make(map[agent.Archetype]*rate.Limiter)}
}

func (m *ModelLimiter) bucket(arch agent.Archetype) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.buckets[arch]
	if !ok {
		b = rate.NewLimiter(rate.Limit(m.perSec), 1)
		m.buckets[arch] = b
	}
	return b
}

// Wait blocks until arch's bucket admits one call.
func (m *ModelLimiter) Wait(ctx context.Context, arch agent.Archetype) error {
	return m.bucket(arch).Wait(ctx)
}

// ModelEngine drives the language-model decision path.
type ModelEngine struct {
	LM      collaborator.LanguageModel
	Limiter *ModelLimiter
}

// NewModelEngine wires a ModelEngine.
func NewModelEngine(lm collaborator.LanguageModel, limiter *ModelLimiter) *ModelEngine {
	return &ModelEngine{LM: lm, Limiter: limiter}
}

// Decide calls the language model and parses its response into an Action.
// On any parse or transport failure it degrades to rest, carrying the raw
// content prefix (or error) as reasoning, per spec §4.3(3).
func (e *ModelEngine) Decide(ctx context.Context, a *agent.Agent, obs observation.Observation, systemPrompt string) action.Action {
	if err := e.Limiter.Wait(ctx, a.Archetype); err != nil {
		return action.Action{Type: action.Rest, Reasoning: "rate limiter: " + err.Error()}
	}

	spec, err := e.LM.GetModelSpec(ctx, a.ModelID)
	if err != nil {
		return action.Action{Type: action.Rest, Reasoning: "model spec lookup failed: " + err.Error()}
	}

	messages := []collaborator.ChatMessage{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: buildUserTurn(a, obs)},
	}

	resp, err := e.LM.CallModel(ctx, spec, messages, a.Archetype.Temperature(), false)
	if err != nil {
		return action.Action{Type: action.Rest, Reasoning: "model call failed: " + err.Error()}
	}

	return parseModelResponse(resp.Content)
}

// parseModelResponse defensively pre-checks the raw content with gjson
// before committing to a full encoding/json unmarshal: if there's no
// "type" field at all the engine short-circuits to rest without ever
// reaching the strict decoder.
func parseModelResponse(content string) action.Action {
	content = strings.TrimSpace(content)
	typeResult := gjson.Get(content, "type")
	if !typeResult.Exists() || typeResult.String() == "" {
		prefix := content
		if len(prefix) > 200 {
			prefix = prefix[:200]
		}
		return action.Action{Type: action.Rest, Reasoning: prefix}
	}

	var raw rawModelDecision
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		prefix := content
		if len(prefix) > 200 {
			prefix = prefix[:200]
		}
		return action.Action{Type: action.Rest, Reasoning: prefix}
	}

	a := actionFromDetails(action.Type(raw.Type), raw.Details)
	a.Reasoning = raw.Reasoning
	return a
}

// actionFromDetails maps the untyped "details" bag to the tagged Action
// variant named by typ, per spec §9's dynamic-command-bag note. Unknown
// types route to rest.
func actionFromDetails(typ action.Type, details json.RawMessage) action.Action {
	var d map[string]any
	if len(details) > 0 {
		_ = json.Unmarshal(details, &d)
	}

	get := func(key string) (any, bool) { v, ok := d[key]; return v, ok }
	str := func(key string) string {
		if v, ok := get(key); ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	num := func(key string) int {
		if v, ok := get(key); ok {
			if f, ok := v.(float64); ok {
				return int(f)
			}
		}
		return 0
	}

	switch typ {
	case action.BuyArena, action.SellArena:
		return action.Action{Type: typ, AmountIn: num("amountIn"), MinAmountOut: num("minAmountOut"), Why: str("why"), NextAction: str("nextAction")}
	case action.ClaimPlot:
		return action.Action{Type: typ, PlotIndex: num("plotIndex")}
	case action.StartBuild:
		return action.Action{Type: typ, PlotID: str("plotId"), PlotIndex: num("plotIndex"), BuildingType: str("buildingType")}
	case action.DoWork:
		return action.Action{Type: typ, PlotID: str("plotId"), PlotIndex: num("plotIndex")}
	case action.CompleteBuild:
		return action.Action{Type: typ, PlotID: str("plotId")}
	case action.PlayArena:
		return action.Action{Type: typ, GameType: str("gameType"), Wager: num("wager")}
	case action.TransferArena:
		return action.Action{Type: typ, TargetAgentName: str("targetAgentName"), Amount: num("amount")}
	case action.BuySkill:
		return action.Action{
			Type: typ, Skill: action.Skill(str("skill")), Question: str("question"),
			WhyNow: str("whyNow"), ExpectedNextAction: str("expectedNextAction"), IfThen: str("ifThen"),
		}
	case action.Rest:
		return action.Action{Type: action.Rest}
	default:
		return action.Action{Type: action.Rest, Reasoning: fmt.Sprintf("unrecognized action type %q", typ)}
	}
}

func buildUserTurn(a *agent.Agent, obs observation.Observation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "tick=%d bankroll=%d reserve=%d health=%d\n", obs.Tick, obs.Balances.Bankroll, obs.Balances.Reserve, a.Health)
	if obs.Town == nil {
		b.WriteString("no active town\n")
	} else {
		fmt.Fprintf(&b, "town=%s level=%d owned_plots=%d available_plots=%d\n", obs.Town.Name, obs.Town.Level, len(obs.OwnedPlots), len(obs.AvailablePlots))
	}
	if len(a.Scratchpad) > 0 {
		b.WriteString("journal:\n")
		for _, e := range a.Scratchpad {
			b.WriteString("- " + e + "\n")
		}
	}
	return b.String()
}
