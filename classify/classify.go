// Package classify implements the smart-routing intent classification step:
// given a user prompt and candidate agent descriptors, ask the gateway for a
// ranked relevance list and a task-shape hint. The exact scoring heuristic is
// whatever the model produces; unusable output degrades to the defined
// fallback (all candidates, equal weight) instead of failing the request.
package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/colloquyhq/colloquy/core"
	"github.com/colloquyhq/colloquy/gateway"
	"github.com/colloquyhq/colloquy/internal/jsonx"
	"github.com/colloquyhq/colloquy/logging"
)

const (
	// DefaultFallbackScore is assigned to every candidate when classification
	// falls back to equal weighting.
	DefaultFallbackScore = 50
	// DefaultCallTimeout bounds the classification gateway call.
	DefaultCallTimeout = 30 * time.Second
)

// Options configure a Classifier.
type Options struct {
	// ModelID selects the model used for classification. Empty defers to the
	// gateway default.
	ModelID string
	// Temperature for the classification call. Ranking benefits from low
	// variance, so the default is 0.
	Temperature float64
	// CallTimeout bounds the gateway call. Zero selects DefaultCallTimeout.
	CallTimeout time.Duration
	// Logger receives diagnostics. Nil disables logging.
	Logger logging.Logger
}

// Classifier ranks candidate agents for a prompt via an LLM call.
type Classifier struct {
	gateway     gateway.Gateway
	modelID     string
	temperature float64
	timeout     time.Duration
	logger      logging.Logger
}

// New creates a Classifier.
func New(gw gateway.Gateway, optFns ...func(o *Options)) *Classifier {
	opts := Options{CallTimeout: DefaultCallTimeout}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	return &Classifier{
		gateway:     gw,
		modelID:     opts.ModelID,
		temperature: opts.Temperature,
		timeout:     opts.CallTimeout,
		logger:      logging.OrDefault(opts.Logger),
	}
}

// Classify produces a ranked relevance list and a suggested workflow mode for
// the prompt. It never fails: a gateway error or unparseable reply yields the
// equal-weight fallback analysis with Fallback set.
func (c *Classifier) Classify(ctx context.Context, prompt string, candidates []core.AgentDescriptor) core.IntentAnalysis {
	if len(candidates) == 0 {
		return core.IntentAnalysis{SuggestedMode: core.ModeParallel, Fallback: true}
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reply, err := c.gateway.Call(cctx, c.modelID, []core.Message{
		core.SystemMessage(classifierInstruction),
		core.UserMessage(c.buildPrompt(prompt, candidates)),
	}, c.temperature)
	if err != nil {
		c.logger.Warn("classify.gateway.error", "error", err.Error())
		return c.fallback(candidates)
	}

	analysis, err := parseAnalysis(reply, candidates)
	if err != nil {
		c.logger.Warn("classify.parse.fallback", "error", err.Error())
		return c.fallback(candidates)
	}
	return analysis
}

// fallback selects all candidates with equal weight, per the defined
// degradation policy for classification errors.
func (c *Classifier) fallback(candidates []core.AgentDescriptor) core.IntentAnalysis {
	rankings := make([]core.AgentRanking, 0, len(candidates))
	for _, a := range candidates {
		rankings = append(rankings, core.AgentRanking{
			AgentID: a.ID,
			Score:   DefaultFallbackScore,
			Reason:  "classification unavailable; selected by fallback",
		})
	}
	return core.IntentAnalysis{Rankings: rankings, SuggestedMode: core.ModeParallel, Fallback: true}
}

const classifierInstruction = "You route user requests to specialist agents. " +
	"Reply with a single JSON object and nothing else, of the form " +
	`{"rankings":[{"agent_id":"...","score":0-100,"reason":"..."}],"mode":"sequential"|"parallel"}. ` +
	"Score every candidate. Choose \"sequential\" when the task naturally decomposes into " +
	"dependent stages, otherwise \"parallel\"."

func (c *Classifier) buildPrompt(prompt string, candidates []core.AgentDescriptor) string {
	var b strings.Builder
	b.WriteString("User request:\n")
	b.WriteString(prompt)
	b.WriteString("\n\nCandidate agents:\n")
	for _, a := range candidates {
		fmt.Fprintf(&b, "- id=%s name=%q: %s\n", a.ID, a.Name, a.Description)
	}
	return b.String()
}

// parseAnalysis extracts the analysis from a possibly messy LLM reply: code
// fences and surrounding prose are tolerated as long as a JSON object with a
// rankings array is present. IDs not among the candidates are dropped;
// scores are clamped to [0,100].
func parseAnalysis(reply string, candidates []core.AgentDescriptor) (core.IntentAnalysis, error) {
	raw := jsonx.ExtractObject(reply)
	if raw == "" {
		return core.IntentAnalysis{}, fmt.Errorf("%w: no JSON object in reply", core.ErrClassification)
	}

	rankingsVal := gjson.Get(raw, "rankings")
	if !rankingsVal.IsArray() {
		return core.IntentAnalysis{}, fmt.Errorf("%w: missing rankings array", core.ErrClassification)
	}

	known := make(map[string]bool, len(candidates))
	for _, a := range candidates {
		known[a.ID] = true
	}

	var rankings []core.AgentRanking
	rankingsVal.ForEach(func(_, entry gjson.Result) bool {
		id := entry.Get("agent_id").String()
		if !known[id] {
			return true
		}
		score := int(entry.Get("score").Int())
		if score < 0 {
			score = 0
		} else if score > 100 {
			score = 100
		}
		rankings = append(rankings, core.AgentRanking{
			AgentID: id,
			Score:   score,
			Reason:  entry.Get("reason").String(),
		})
		return true
	})
	if len(rankings) == 0 {
		return core.IntentAnalysis{}, fmt.Errorf("%w: no usable rankings", core.ErrClassification)
	}
	sort.SliceStable(rankings, func(i, j int) bool { return rankings[i].Score > rankings[j].Score })

	mode := core.Mode(gjson.Get(raw, "mode").String())
	if !mode.Valid() {
		mode = core.ModeParallel
	}
	return core.IntentAnalysis{Rankings: rankings, SuggestedMode: mode}, nil
}

