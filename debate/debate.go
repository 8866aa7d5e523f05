// Package debate implements the structured multi-round debate coordinator:
// position statements gathered in parallel and in isolation, rebuttal rounds
// where every agent sees the others' contributions, and a consensus synthesis
// that always yields a well-formed result, even under full disagreement.
package debate

import (
	"context"
	"fmt"
	"sync"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/invoker"
	"github.com/colloquyhq/colloquy/logging"
)

// DefaultRounds is the number of rebuttal rounds run when unconfigured.
const DefaultRounds = 1

// unavailable marks a participant whose contribution failed in a round. The
// debate proceeds without them.
const unavailable = "(unavailable)"

// Round records one completed debate round. Positions holds the statements
// agents entered the round with; Rebuttals what they produced responding to
// each other.
type Round struct {
	RoundNumber int               `json:"round_number"`
	Positions   map[string]string `json:"positions"`
	Rebuttals   map[string]string `json:"rebuttals"`
}

// Session is the full record of one debate run.
type Session struct {
	RunID        string                 `json:"run_id"`
	Topic        string                 `json:"topic"`
	Participants []core.AgentDescriptor `json:"participants"`
	Rounds       []Round                `json:"rounds"`
	Consensus    core.ConsensusResult   `json:"consensus"`
}

// Options configure a Coordinator.
type Options struct {
	// Rounds is the number of rebuttal rounds. Zero selects DefaultRounds.
	Rounds int
	// Judge is the descriptor used for the consensus synthesis call. A zero
	// value reuses the first participant's model with a neutral prompt.
	Judge core.AgentDescriptor
	// Logger receives debate diagnostics. Nil disables logging.
	Logger logging.Logger
}

// Coordinator runs debates between configured agents.
type Coordinator struct {
	invoker *invoker.Invoker
	rounds  int
	judge   core.AgentDescriptor
	logger  logging.Logger
}

// New creates a Coordinator on top of an agent invoker.
func New(inv *invoker.Invoker, optFns ...func(o *Options)) *Coordinator {
	opts := Options{Rounds: DefaultRounds}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultRounds
	}
	return &Coordinator{
		invoker: inv,
		rounds:  opts.Rounds,
		judge:   opts.Judge,
		logger:  logging.OrDefault(opts.Logger),
	}
}

// Run executes a debate synchronously and returns the completed session.
func (c *Coordinator) Run(ctx context.Context, topic string, agents []core.AgentDescriptor) (*Session, error) {
	return c.run(ctx, topic, agents, func(core.Event) {})
}

// Stream executes a debate asynchronously, emitting typed events on the
// returned channel: debate-start, agent-position and agent-rebuttal per
// participant and round, then exactly one consensus-reached (or error) as the
// terminal event, after which the channel closes.
func (c *Coordinator) Stream(ctx context.Context, topic string, agents []core.AgentDescriptor) <-chan core.Event {
	ch := make(chan core.Event, 64)
	go func() {
		defer close(ch)
		emit := func(ev core.Event) {
			select {
			case ch <- ev:
			case <-ctx.Done():
			}
		}
		session, err := c.run(ctx, topic, agents, emit)
		runID := ""
		if session != nil {
			runID = session.RunID
		}
		// The terminal event skips the cancellation guard: the channel is
		// buffered and closes right after, so a draining consumer always
		// observes exactly one terminal event, cancelled or not.
		if err != nil {
			ch <- core.RunErrorEvent{Meta: core.NewMeta(runID), Err: err.Error()}
			return
		}
		ch <- core.ConsensusReachedEvent{Meta: core.NewMeta(runID), Consensus: session.Consensus}
	}()
	return ch
}

// run drives the debate state machine: position round, rebuttal rounds,
// consensus derivation. Non-terminal events only; Stream owns the terminal.
func (c *Coordinator) run(ctx context.Context, topic string, agents []core.AgentDescriptor, emit func(core.Event)) (*Session, error) {
	if len(agents) < 2 {
		return nil, fmt.Errorf("debate on %q: %w", topic, core.ErrInsufficientParticipants)
	}

	session := &Session{RunID: core.NewID(), Topic: topic, Participants: agents}
	emit(core.DebateStartEvent{Meta: core.NewMeta(session.RunID), Topic: topic, Participants: len(agents)})
	c.logger.Info("debate.start", "run", session.RunID, "topic", topic, "participants", len(agents))

	// Position round: all agents in parallel, nobody sees another's position.
	positions, err := c.gather(ctx, session, agents, nil, 1, true, emit)
	if err != nil {
		return session, fmt.Errorf("position round: %w", err)
	}

	// Rebuttal rounds: each agent sees everyone else's latest contribution.
	current := positions
	for roundNumber := 1; roundNumber <= c.rounds; roundNumber++ {
		rebuttals, err := c.gather(ctx, session, agents, current, roundNumber, false, emit)
		if err != nil {
			return session, fmt.Errorf("rebuttal round %d: %w", roundNumber, err)
		}
		session.Rounds = append(session.Rounds, Round{
			RoundNumber: roundNumber,
			Positions:   current,
			Rebuttals:   rebuttals,
		})
		current = rebuttals
	}

	session.Consensus = c.deriveConsensus(ctx, session, positions)
	c.logger.Info("debate.complete", "run", session.RunID, "rounds", len(session.Rounds),
		"consensus_points", len(session.Consensus.ConsensusPoints))
	return session, nil
}

// gather invokes every agent in parallel and waits for all to settle (the
// round barrier). prior carries the contributions agents should respond to;
// nil means an isolated position statement. A failed agent is recorded as
// unavailable; the round errors only when every participant fails.
func (c *Coordinator) gather(ctx context.Context, session *Session, agents []core.AgentDescriptor, prior map[string]string, roundNumber int, positionRound bool, emit func(core.Event)) (map[string]string, error) {
	type outcome struct {
		text string
		err  error
	}
	outcomes := make([]outcome, len(agents))
	var wg sync.WaitGroup

	for i, agent := range agents {
		wg.Add(1)
		go func(idx int, agent core.AgentDescriptor) {
			defer wg.Done()
			var prompt string
			if positionRound {
				prompt = positionPrompt(session.Topic)
			} else {
				prompt = rebuttalPrompt(session.Topic, agent, agents, prior)
			}
			text, err := c.invoker.Invoke(ctx, agent, []core.Message{core.UserMessage(prompt)})
			outcomes[idx] = outcome{text: text, err: err}
		}(i, agent)
	}
	wg.Wait()

	results := make(map[string]string, len(agents))
	failures := 0
	for i, agent := range agents {
		if err := outcomes[i].err; err != nil {
			failures++
			results[agent.ID] = unavailable
			c.logger.Warn("debate.agent.failed", "run", session.RunID, "agent", agent.ID, "error", err.Error())
			emit(core.AgentErrorEvent{Meta: core.NewMeta(session.RunID), AgentID: agent.ID, AgentName: agent.Name, Err: err.Error()})
			continue
		}
		results[agent.ID] = outcomes[i].text
		if positionRound {
			emit(core.AgentPositionEvent{Meta: core.NewMeta(session.RunID), AgentID: agent.ID, AgentName: agent.Name, Text: outcomes[i].text, Round: roundNumber})
		} else {
			emit(core.AgentRebuttalEvent{Meta: core.NewMeta(session.RunID), AgentID: agent.ID, AgentName: agent.Name, Text: outcomes[i].text, Round: roundNumber})
		}
	}
	if failures == len(agents) {
		return nil, core.ErrAllAgentsFailed
	}
	return results, nil
}

func positionPrompt(topic string) string {
	return fmt.Sprintf("Debate topic: %s\n\nState your initial position on this topic. "+
		"Be specific and give your strongest supporting arguments. Do not anticipate other speakers.", topic)
}

func rebuttalPrompt(topic string, self core.AgentDescriptor, agents []core.AgentDescriptor, prior map[string]string) string {
	out := fmt.Sprintf("Debate topic: %s\n\nThe other participants argued:\n", topic)
	for _, agent := range agents {
		if agent.ID == self.ID {
			continue
		}
		text, ok := prior[agent.ID]
		if !ok || text == unavailable {
			continue
		}
		out += fmt.Sprintf("\n--- %s ---\n%s\n", agent.Name, text)
	}
	out += "\nRespond to these arguments: concede what is right, rebut what is wrong, and refine your own position."
	return out
}
