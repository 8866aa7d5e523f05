package debate

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/internal/jsonx"
)

const judgeInstruction = "You are a neutral debate judge. Given the transcript, reply with a single " +
	"JSON object and nothing else, of the form " +
	`{"consensus_points":["..."],"conclusion":"...","strongest":{"agent_id":"...","argument":"..."}}. ` +
	"consensus_points lists only claims the participants genuinely agree on; leave it empty if they " +
	"agree on nothing. strongest identifies the single most compelling argument made by any participant."

// deriveConsensus synthesizes the debate outcome. It first asks the judge
// model for a structured verdict; if the call fails or the reply is
// unusable, it falls back to a deterministic aggregation so the result is
// always well-formed.
func (c *Coordinator) deriveConsensus(ctx context.Context, session *Session, positions map[string]string) core.ConsensusResult {
	judge := c.judge
	if judge.ID == "" {
		// Reuse the first participant's model under a neutral persona.
		judge = core.AgentDescriptor{
			ID:           "debate-judge",
			Name:         "Debate Judge",
			SystemPrompt: judgeInstruction,
			ModelID:      session.Participants[0].ModelID,
		}
	}

	reply, err := c.invoker.Invoke(ctx, judge, []core.Message{core.UserMessage(transcript(session))})
	if err == nil {
		if consensus, ok := parseConsensus(reply, session); ok {
			return consensus
		}
		c.logger.Warn("debate.consensus.parse_fallback", "run", session.RunID)
	} else {
		c.logger.Warn("debate.consensus.judge_failed", "run", session.RunID, "error", err.Error())
	}
	return fallbackConsensus(session, positions)
}

// transcript renders the session for the judge.
func transcript(session *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Debate topic: %s\n", session.Topic)
	names := make(map[string]string, len(session.Participants))
	for _, p := range session.Participants {
		names[p.ID] = p.Name
		fmt.Fprintf(&b, "Participant %s (id=%s): %s\n", p.Name, p.ID, p.Description)
	}
	for _, round := range session.Rounds {
		fmt.Fprintf(&b, "\n== Round %d positions ==\n", round.RoundNumber)
		for _, p := range session.Participants {
			fmt.Fprintf(&b, "\n[%s]\n%s\n", names[p.ID], round.Positions[p.ID])
		}
		fmt.Fprintf(&b, "\n== Round %d rebuttals ==\n", round.RoundNumber)
		for _, p := range session.Participants {
			fmt.Fprintf(&b, "\n[%s]\n%s\n", names[p.ID], round.Rebuttals[p.ID])
		}
	}
	return b.String()
}

// parseConsensus extracts the judge's structured verdict, tolerating fences
// and prose around the JSON object.
func parseConsensus(reply string, session *Session) (core.ConsensusResult, bool) {
	raw := jsonx.ExtractObject(reply)
	if raw == "" {
		return core.ConsensusResult{}, false
	}
	conclusion := gjson.Get(raw, "conclusion").String()
	if conclusion == "" {
		return core.ConsensusResult{}, false
	}

	var points []string
	gjson.Get(raw, "consensus_points").ForEach(func(_, v gjson.Result) bool {
		if s := v.String(); s != "" {
			points = append(points, s)
		}
		return true
	})

	strongest := core.Attribution{
		AgentID: gjson.Get(raw, "strongest.agent_id").String(),
		Text:    gjson.Get(raw, "strongest.argument").String(),
	}
	for _, p := range session.Participants {
		if p.ID == strongest.AgentID {
			strongest.AgentName = p.Name
		}
	}

	return core.ConsensusResult{
		ConsensusPoints:   points,
		Conclusion:        conclusion,
		StrongestArgument: strongest,
	}, true
}

// fallbackConsensus derives a deterministic, well-formed result when the
// judge is unusable: no consensus points are claimed, the conclusion states
// the disagreement, and the longest available position stands in as the
// strongest argument.
func fallbackConsensus(session *Session, positions map[string]string) core.ConsensusResult {
	strongest := core.Attribution{}
	for _, p := range session.Participants {
		text := positions[p.ID]
		if text == unavailable {
			continue
		}
		if len(text) > len(strongest.Text) {
			strongest = core.Attribution{AgentID: p.ID, AgentName: p.Name, Text: text}
		}
	}
	return core.ConsensusResult{
		ConsensusPoints: nil,
		Conclusion: fmt.Sprintf("The %d participants did not reach a machine-verified consensus on %q; "+
			"their positions are preserved in the debate transcript.", len(session.Participants), session.Topic),
		StrongestArgument: strongest,
	}
}
