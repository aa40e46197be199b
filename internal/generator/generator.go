// Package generator runs one QA generation attempt at a time: sample a
// context window, assemble the prompt with few-shot guidance from the
// cache, call the model, parse its structured output and commit the
// candidate to the cache. Failures at any step produce a typed Rejected
// outcome; the quota loop in the driver decides whether to retry.
package generator

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/qagen-cli/internal/config"
	"github.com/sells-group/qagen-cli/internal/model"
	"github.com/sells-group/qagen-cli/internal/qacache"
	"github.com/sells-group/qagen-cli/internal/resilience"
	"github.com/sells-group/qagen-cli/internal/sampler"
	"github.com/sells-group/qagen-cli/pkg/anthropic"
)

// OutcomeKind classifies the result of one generation attempt.
type OutcomeKind int

const (
	// Committed means a parsed item was written to the cache.
	Committed OutcomeKind = iota
	// Rejected means the attempt produced nothing cacheable; the
	// caller may retry with fresh sampling.
	Rejected
)

// Outcome is the typed result of Attempt. No generation failure is ever
// propagated as an error past the driver.
type Outcome struct {
	Kind     OutcomeKind
	Reason   string
	Item     *model.QAItem
	Inserted bool
}

func rejected(reason string) Outcome {
	return Outcome{Kind: Rejected, Reason: reason}
}

// Generator orchestrates generation attempts. Single-threaded; the
// limiter paces model calls, it does not admit concurrency.
type Generator struct {
	client  anthropic.Client
	cache   *qacache.Cache
	sampler *sampler.Sampler
	limiter *rate.Limiter
	rng     *rand.Rand
	cfg     config.GeneratorConfig
	model   config.AnthropicConfig

	// Interactive step mode: a human classifies each parsed item on
	// stdin before it is cached.
	Interactive bool
	reviewIn    *bufio.Reader
	reviewOut   io.Writer
}

// New creates a generator. seed feeds both session sampling and
// few-shot example sampling so runs can be reproduced.
func New(client anthropic.Client, cache *qacache.Cache, cfg config.GeneratorConfig, modelCfg config.AnthropicConfig, seed uint64) *Generator {
	rpm := modelCfg.RequestsPerMin
	if rpm <= 0 {
		rpm = 30
	}
	return &Generator{
		client:    client,
		cache:     cache,
		sampler:   sampler.New(seed),
		limiter:   rate.NewLimiter(rate.Limit(rpm/60.0), 1),
		rng:       rand.New(rand.NewPCG(seed, seed+1)),
		cfg:       cfg,
		model:     modelCfg,
		reviewIn:  bufio.NewReader(os.Stdin),
		reviewOut: os.Stdout,
	}
}

// SetReviewIO overrides the interactive review streams (tests). One
// buffered reader lives for the generator's lifetime so input typed
// ahead of the prompt is not dropped between reviews.
func (g *Generator) SetReviewIO(in io.Reader, out io.Writer) {
	g.reviewIn = bufio.NewReader(in)
	g.reviewOut = out
}

// Attempt runs one full generation attempt for a conversation at a
// difficulty tier.
func (g *Generator) Attempt(ctx context.Context, conv *model.Conversation, difficulty model.Difficulty) Outcome {
	sessions, ok := g.sampler.Select(conv, g.cfg.MinSessions, g.cfg.MaxSessions)
	if !ok {
		return rejected("too few sessions")
	}

	prompt, system := g.buildPrompt(sessions, difficulty)

	response, err := g.complete(ctx, system, prompt)
	if err != nil {
		zap.L().Warn("generator: model call failed",
			zap.String("conversation_id", conv.ID),
			zap.String("difficulty", string(difficulty)),
			zap.Error(err),
		)
		return rejected("model call failed: " + err.Error())
	}
	if strings.TrimSpace(response) == "" {
		return rejected("empty model response")
	}

	item, err := parseResponse(response)
	if err != nil {
		zap.L().Warn("generator: unparsable response",
			zap.String("conversation_id", conv.ID),
			zap.Error(err),
		)
		return rejected("unparsable response: " + err.Error())
	}

	item.QAID = model.HashQuestion(item.Question)
	item.ConversationID = conv.ID
	item.SessionIDs = sessionIDs(sessions)
	item.Difficulty = difficulty
	item.Timestamp = time.Now().UTC()
	item.SQLInfo = model.SQLInfo{Status: model.ValidationNotYet}

	status := model.StatusGenerated
	if g.Interactive {
		var regenerate bool
		status, regenerate = g.review(item)
		if regenerate {
			return rejected("regeneration requested by reviewer")
		}
	}

	inserted := g.cache.Upsert(*item, status)
	if err := g.cache.Persist(); err != nil {
		zap.L().Warn("generator: cache persist failed", zap.Error(err))
	}

	zap.L().Info("generator: item committed",
		zap.String("qa_id", item.QAID),
		zap.String("conversation_id", conv.ID),
		zap.String("difficulty", string(difficulty)),
		zap.String("status", string(status)),
		zap.Bool("inserted", inserted),
	)
	return Outcome{Kind: Committed, Item: item, Inserted: inserted}
}

// complete paces and bounds one model call, accumulating streamed output
// into a single text response.
func (g *Generator) complete(ctx context.Context, system, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	timeout := time.Duration(g.model.CallTimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return resilience.Call(ctx, resilience.ModelCallPolicy("generate_qa"), func(ctx context.Context) (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		return g.client.CompleteText(callCtx, anthropic.MessageRequest{
			Model:     g.model.Model,
			MaxTokens: g.model.MaxTokens,
			System:    anthropic.BuildCachedSystemBlocks(system),
			Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
			Stream:    g.model.StreamResponses,
		})
	})
}

// buildPrompt renders the context window into the tier template and
// appends few-shot guidance sampled from the cache.
func (g *Generator) buildPrompt(sessions []model.Session, difficulty model.Difficulty) (prompt, system string) {
	structured := false
	for i := range sessions {
		if sessions[i].Tabular() {
			structured = true
			break
		}
	}

	contract := fmt.Sprintf(outputContract, g.cfg.MinEvidences, g.cfg.MaxEvidences)
	template, system := promptFor(structured, string(difficulty))
	prompt = fmt.Sprintf(template, sampler.Render(sessions), g.cfg.SessionThreshold, contract)

	if guidance := g.fewShotBlock(difficulty); guidance != "" {
		prompt += "\n" + guidance
	}
	return prompt, system
}

// fewShotBlock assembles up to MaxLikedShots positive and
// MaxDislikedShots negative examples, sampled without replacement. Tier
// filtering falls back to all tiers when the tier itself has none.
func (g *Generator) fewShotBlock(difficulty model.Difficulty) string {
	liked := g.pickExamples(g.cache.Liked(difficulty), g.cache.Liked(""), g.cfg.MaxLikedShots)
	disliked := g.pickExamples(g.cache.Disliked(difficulty), g.cache.Disliked(""), g.cfg.MaxDislikedShots)
	if len(liked) == 0 && len(disliked) == 0 {
		return ""
	}

	var b strings.Builder
	if len(liked) > 0 {
		b.WriteString("Good examples (match this style, never copy the content):\n")
		for _, item := range liked {
			b.WriteString(exampleLine(item))
		}
	}
	if len(disliked) > 0 {
		b.WriteString("Bad examples (avoid questions like these):\n")
		for _, item := range disliked {
			b.WriteString(exampleLine(item))
		}
	}
	return b.String()
}

func (g *Generator) pickExamples(tiered, all []model.QAItem, max int) []model.QAItem {
	pool := tiered
	if len(pool) == 0 {
		pool = all
	}
	if max <= 0 || len(pool) == 0 {
		return nil
	}
	if len(pool) <= max {
		return pool
	}
	picked := make([]model.QAItem, 0, max)
	for _, idx := range g.rng.Perm(len(pool))[:max] {
		picked = append(picked, pool[idx])
	}
	return picked
}

func exampleLine(item model.QAItem) string {
	return fmt.Sprintf("- Q: %s | A: %v\n", item.Question, item.Answer)
}

// review prompts the human reviewer for a classification in step mode.
// Returns the chosen status, or regenerate=true to discard the item and
// try again without caching it.
func (g *Generator) review(item *model.QAItem) (status model.Status, regenerate bool) {
	fmt.Fprintf(g.reviewOut, "\nQuestion: %s\nAnswer: %v\nEvidence entries: %d\n", item.Question, item.Answer, len(item.Evidence))
	for {
		fmt.Fprint(g.reviewOut, "[l]ike / [d]islike / [g]enerated / [r]egenerate? ")
		line, err := g.reviewIn.ReadString('\n')
		if err != nil {
			// EOF on stdin: fall back to the non-interactive default.
			return model.StatusGenerated, false
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "l", "like", "liked":
			return model.StatusLiked, false
		case "d", "dislike", "disliked":
			return model.StatusDisliked, false
		case "g", "", "generated":
			return model.StatusGenerated, false
		case "r", "regen", "regenerate":
			return model.StatusGenerated, true
		}
		fmt.Fprintln(g.reviewOut, "unrecognized choice")
	}
}

func sessionIDs(sessions []model.Session) []string {
	ids := make([]string, len(sessions))
	for i := range sessions {
		ids[i] = sessions[i].ID
	}
	return ids
}
