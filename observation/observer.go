// Package observation builds the per-tick world snapshot the decision
// engine reasons over (spec §4.2). Collaborator fetches run concurrently
// and their errors are folded with github.com/hashicorp/go-multierror so
// one slow or failing collaborator is reported precisely without aborting
// the rest of the gather — grounded on the host platform's pattern of
// fanning out independent reads and joining their errors rather than
// failing fast on the first one.
package observation

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/townforge/agentcore/collaborator"
	"github.com/townforge/agentcore/domain/agent"
	"github.com/townforge/agentcore/domain/observation"
)

const recentEventsWindow = 20
const recentSkillsWindow = 10

// Builder gathers a per-agent Observation from the external collaborators.
type Builder struct {
	Town    collaborator.TownService
	AMM     collaborator.AMM
	Social  collaborator.Social
	Goals   collaborator.Goals
	Agents  collaborator.AgentDirectory
	Oracle  collaborator.SkillOracle
}

// NewBuilder wires a Builder from its collaborators.
func NewBuilder(town collaborator.TownService, amm collaborator.AMM, social collaborator.Social, goals collaborator.Goals, agents collaborator.AgentDirectory, oracle collaborator.SkillOracle) *Builder {
	return &Builder{Town: town, AMM: amm, Social: social, Goals: goals, Agents: agents, Oracle: oracle}
}

// Observe fetches a's current Observation. When there is no active town it
// returns a degenerate Observation (Town == nil, all collections empty);
// the caller's pipeline still runs to completion on a degenerate snapshot.
func (b *Builder) Observe(ctx context.Context, a *agent.Agent, tick int64) (observation.Observation, error) {
	town, err := b.Town.GetActiveTown(ctx)
	if err != nil {
		return observation.Observation{}, err
	}

	obs := observation.Observation{
		Tick:    tick,
		AgentID: a.ID,
	}
	obs.Balances.Bankroll = a.Bankroll
	obs.Balances.Reserve = a.ReserveBalance

	if town == nil {
		return obs, nil
	}
	obs.Town = town

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs *multierror.Error
	)

	fetch := func(f func() error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := f(); err != nil {
				mu.Lock()
				errs = multierror.Append(errs, err)
				mu.Unlock()
			}
		}()
	}

	fetch(func() error {
		plots, err := b.Town.GetAgentPlots(ctx, a.ID)
		if err != nil {
			return err
		}
		mu.Lock()
		obs.OwnedPlots = plots
		mu.Unlock()
		return nil
	})
	fetch(func() error {
		plots, err := b.Town.GetAvailablePlots(ctx, town.ID)
		if err != nil {
			return err
		}
		mu.Lock()
		obs.AvailablePlots = plots
		mu.Unlock()
		return nil
	})
	fetch(func() error {
		events, err := b.Town.GetRecentEvents(ctx, town.ID, recentEventsWindow)
		if err != nil {
			return err
		}
		mu.Lock()
		obs.RecentEvents = filterPrivateEvents(events)
		mu.Unlock()
		return nil
	})
	fetch(func() error {
		stats, err := b.Town.GetWorldStats(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		obs.WorldStats = stats
		mu.Unlock()
		return nil
	})
	fetch(func() error {
		if b.AMM == nil {
			return nil
		}
		summary, err := b.AMM.GetPoolSummary(ctx)
		if err != nil {
			return err
		}
		mu.Lock()
		obs.Pool = summary
		mu.Unlock()
		return nil
	})
	fetch(func() error {
		if b.Social == nil {
			return nil
		}
		rels, err := b.Social.GetRelationships(ctx, a.ID)
		if err != nil {
			return err
		}
		mu.Lock()
		obs.Relationships = rels
		mu.Unlock()
		return nil
	})
	fetch(func() error {
		if b.Agents == nil {
			return nil
		}
		roster, err := b.Agents.ListActive(ctx)
		if err != nil {
			return err
		}
		others := make([]observation.PublicAgent, 0, len(roster))
		for _, other := range roster {
			if other.ID == a.ID {
				continue
			}
			others = append(others, observation.PublicAgent{
				ID: other.ID, Name: other.Name, Archetype: string(other.Archetype),
				Bankroll: other.Bankroll, Elo: other.Elo, Health: other.Health, IsInMatch: other.IsInMatch,
			})
		}
		mu.Lock()
		obs.OtherAgents = others
		mu.Unlock()
		return nil
	})
	fetch(func() error {
		if b.Oracle == nil {
			return nil
		}
		outputs, err := b.Oracle.RecentOutputs(ctx, a.ID, recentSkillsWindow)
		if err != nil {
			return err
		}
		mu.Lock()
		obs.RecentSkills = outputs
		mu.Unlock()
		return nil
	})

	wg.Wait()
	if errs.ErrorOrNil() != nil {
		return obs, errs
	}
	return obs, nil
}

// filterPrivateEvents strips the event kinds that must never leave an
// agent's own observation (spec §4.2).
func filterPrivateEvents(events []observation.Event) []observation.Event {
	out := make([]observation.Event, 0, len(events))
	for _, e := range events {
		switch e.Type {
		case observation.EventKindSkillPaid, observation.EventKindAgentChat,
			observation.EventKindRelationshipChange, observation.EventKindAgentTrade:
			continue
		}
		out = append(out, e)
	}
	return out
}
