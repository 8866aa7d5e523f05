package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/gateway"
)

var candidates = []core.AgentDescriptor{
	{ID: "ba", Name: "Business Analyst", Description: "Financial analysis"},
	{ID: "ra", Name: "Research Assistant", Description: "Academic research"},
	{ID: "cm", Name: "Code Mentor", Description: "Programming help"},
}

func TestClassify_ParsesRankedReply(t *testing.T) {
	gw := gateway.NewScripted().Enqueue(
		`{"rankings":[{"agent_id":"ba","score":80,"reason":"finance"},{"agent_id":"cm","score":95,"reason":"code"}],"mode":"sequential"}`)
	c := New(gw)

	analysis := c.Classify(context.Background(), "review my trading bot", candidates)
	assert.False(t, analysis.Fallback)
	assert.Equal(t, core.ModeSequential, analysis.SuggestedMode)
	// Sorted descending by score.
	assert.Len(t, analysis.Rankings, 2)
	assert.Equal(t, "cm", analysis.Rankings[0].AgentID)
	assert.Equal(t, 95, analysis.Rankings[0].Score)
	assert.Equal(t, "ba", analysis.Rankings[1].AgentID)
}

func TestClassify_TolerantOfProseAndFences(t *testing.T) {
	gw := gateway.NewScripted().Enqueue(
		"Sure, here is my assessment:\n```json\n" +
			`{"rankings":[{"agent_id":"ra","score":70,"reason":"research"}],"mode":"parallel"}` +
			"\n```\nHope this helps!")
	c := New(gw)

	analysis := c.Classify(context.Background(), "survey the literature", candidates)
	assert.False(t, analysis.Fallback)
	assert.Len(t, analysis.Rankings, 1)
	assert.Equal(t, "ra", analysis.Rankings[0].AgentID)
}

func TestClassify_DropsUnknownIDsAndClampsScores(t *testing.T) {
	gw := gateway.NewScripted().Enqueue(
		`{"rankings":[{"agent_id":"ghost","score":99},{"agent_id":"ba","score":250},{"agent_id":"ra","score":-5}],"mode":"parallel"}`)
	c := New(gw)

	analysis := c.Classify(context.Background(), "anything", candidates)
	assert.Len(t, analysis.Rankings, 2)
	assert.Equal(t, "ba", analysis.Rankings[0].AgentID)
	assert.Equal(t, 100, analysis.Rankings[0].Score)
	assert.Equal(t, 0, analysis.Rankings[1].Score)
}

func TestClassify_GatewayErrorFallsBack(t *testing.T) {
	gw := gateway.NewScripted().FailWith(fmt.Errorf("provider down"))
	c := New(gw)

	analysis := c.Classify(context.Background(), "anything", candidates)
	assert.True(t, analysis.Fallback)
	assert.Equal(t, core.ModeParallel, analysis.SuggestedMode)
	assert.Len(t, analysis.Rankings, len(candidates))
	for _, r := range analysis.Rankings {
		assert.Equal(t, DefaultFallbackScore, r.Score)
	}
}

func TestClassify_UnparseableReplyFallsBack(t *testing.T) {
	for _, reply := range []string{
		"I cannot rank these agents.",
		`{"mode":"parallel"}`,
		`{"rankings":[{"agent_id":"ghost","score":10}]}`,
	} {
		gw := gateway.NewScripted().Enqueue(reply)
		analysis := New(gw).Classify(context.Background(), "anything", candidates)
		assert.True(t, analysis.Fallback, "reply %q", reply)
		assert.Len(t, analysis.Rankings, len(candidates))
	}
}

func TestClassify_InvalidModeDefaultsToParallel(t *testing.T) {
	gw := gateway.NewScripted().Enqueue(
		`{"rankings":[{"agent_id":"ba","score":60}],"mode":"zigzag"}`)
	analysis := New(gw).Classify(context.Background(), "anything", candidates)
	assert.False(t, analysis.Fallback)
	assert.Equal(t, core.ModeParallel, analysis.SuggestedMode)
}

func TestClassify_NoCandidates(t *testing.T) {
	gw := gateway.NewScripted()
	analysis := New(gw).Classify(context.Background(), "anything", nil)
	assert.True(t, analysis.Fallback)
	assert.Empty(t, analysis.Rankings)
	assert.Equal(t, 0, gw.CallCount())
}

func TestSelected_AppliesThreshold(t *testing.T) {
	analysis := core.IntentAnalysis{Rankings: []core.AgentRanking{
		{AgentID: "a", Score: 90},
		{AgentID: "b", Score: 30},
		{AgentID: "c", Score: 10},
	}}
	assert.Equal(t, []string{"a", "b"}, analysis.Selected(30))
	assert.Equal(t, []string{"a"}, analysis.Selected(50))
	assert.Empty(t, analysis.Selected(95))
}
