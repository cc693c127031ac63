package decision

import (
	"fmt"
	"strings"

	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/command"
	"github.com/townforge/agentcore/domain/observation"
)

// archetypeTemplate is the personality block seeded per archetype (spec
// §4.3(3)).
func archetypeTemplate(a agent.Archetype) string {
	switch a {
	case agent.Shark:
		return "You are a SHARK: aggressive, opportunistic, chase the highest-EV play every tick."
	case agent.Rock:
		return "You are a ROCK: conservative, patient, protect your bankroll and avoid unnecessary risk."
	case agent.Chameleon:
		return "You are a CHAMELEON: adaptive, read the table and shift strategy to match the situation."
	case agent.Degen:
		return "You are a DEGEN: impulsive, high variance, bias toward action over caution."
	case agent.Grinder:
		return "You are a GRINDER: methodical, prioritize steady construction progress over gambling."
	default:
		return "You are a town-building agent."
	}
}

const jsonOutputSchema = `Respond with exactly one JSON object: ` +
	`{"type": string, "reasoning": string, "calculations": string, "details": object, "humanReply": string}. ` +
	`"type" must be one of buy_arena, sell_arena, claim_plot, start_build, do_work, complete_build, ` +
	`play_arena, transfer_arena, buy_skill, rest.`

const economyRules = `Economy: bankroll is $ARENA, reserveBalance is stable currency swappable via the AMM. ` +
	`Claiming and building cost $ARENA scaled by town level and scarcity. Work pays a wage, completing a ` +
	`build pays a bonus. Health reaches 0 if upkeep goes unpaid for too long.`

const survivalRules = `Survival: health <= 0 means you may only rest. Keep a buffer of $ARENA for upkeep ` +
	`and trade cooldowns apply between consecutive buy_arena/sell_arena actions.`

// BuildSystemPrompt assembles the full system prompt for a's tick: the
// personality template, economy/survival rules, priorities, persistent
// goal stack, active world events, the journal, the active command block
// (SUGGEST mode only — STRONG/OVERRIDE never reach here), and the output
// schema.
func BuildSystemPrompt(a *agent.Agent, obs observation.Observation, goalStack []string, suggested *command.Command, humanInstructions []string) string {
	var b strings.Builder

	b.WriteString(archetypeTemplate(a.Archetype))
	b.WriteString("\n\n")
	b.WriteString(economyRules)
	b.WriteString("\n")
	b.WriteString(survivalRules)
	b.WriteString("\n\n")

	b.WriteString("Priorities: stay solvent, grow your owned plots toward completion, seek fights when ")
	b.WriteString("favorable, avoid repeating the same trade two ticks in a row.\n\n")

	if len(goalStack) > 0 {
		b.WriteString("Your current goals (highest priority first):\n")
		for _, g := range goalStack {
			b.WriteString("- " + g + "\n")
		}
		b.WriteString("\n")
	}

	if obs.WorldStats.ActiveWorldEventName != "" {
		fmt.Fprintf(&b, "Active world event: %s\n\n", obs.WorldStats.ActiveWorldEventName)
	}

	if len(obs.OtherAgents) > 0 {
		b.WriteString("Other agents you can see:\n")
		for _, pa := range obs.OtherAgents {
			fmt.Fprintf(&b, "- %s (%s) bankroll=%d elo=%d health=%d inMatch=%v\n", pa.Name, pa.Archetype, pa.Bankroll, pa.Elo, pa.Health, pa.IsInMatch)
		}
		b.WriteString("\n")
	}

	if len(a.Scratchpad) > 0 {
		b.WriteString("Your recent journal:\n")
		for _, e := range a.Scratchpad {
			b.WriteString("- " + e + "\n")
		}
		b.WriteString("\n")
	}

	if suggested != nil {
		fmt.Fprintf(&b, "The owner suggests (non-binding): intent=%s params=%v\n\n", suggested.Intent, suggested.Params)
	}

	if len(humanInstructions) > 0 {
		b.WriteString("Queued human instructions:\n")
		for _, instr := range humanInstructions {
			b.WriteString("- " + instr + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(jsonOutputSchema)
	return b.String()
}
