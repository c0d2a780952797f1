package generative

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/KNBS-StatsChat/statschat-ke/config"
	apperrors "github.com/KNBS-StatsChat/statschat-ke/errors"
	"github.com/KNBS-StatsChat/statschat-ke/index"
	"github.com/KNBS-StatsChat/statschat-ke/llmclient"
)

// Answer surface strings. These are part of the API response contract.
const (
	FallbackAnswer = "No suitable answer found. However relevant information may be found in a PDF. Please check the link(s) provided."
	AnswerPrefix   = "Most relevant quote from publications below: "

	PlaceholderNoPDF     = "No suitable PDFs found. Please refer to context"
	PlaceholderNoContext = "No context available. Please refer to response"
)

// scoreSpread bounds which candidates reach the synthesis model: anything
// scoring worse than 1.5 times the best candidate is dropped.
const scoreSpread = 1.5

// Synthesizer is the chat side of the LLM client.
type Synthesizer interface {
	Chat(ctx context.Context, messages []llmclient.Message) (string, error)
}

// QueryOptions carries the per-request knobs from the API surface.
type QueryOptions struct {
	LatestFilter string
	Highlighting bool
	LatestWeight float64
}

// QueryResult is the full outcome of a query: the reranked citation list,
// the synthesized answer, and the parsed model response.
type QueryResult struct {
	Documents    []Candidate
	Placeholders []string
	Answer       string
	Response     LlmResponse
}

// Inquirer runs the retrieve, rerank and synthesize pipeline for a question.
type Inquirer struct {
	cfg    *config.Config
	index  index.Searcher
	llm    Synthesizer
	cache  *lru.Cache
	logger *zap.Logger
	now    func() time.Time
}

func NewInquirer(cfg *config.Config, idx index.Searcher, llm Synthesizer, logger *zap.Logger) (*Inquirer, error) {
	var cache *lru.Cache
	if cfg.QueryCacheSize > 0 {
		var err error
		cache, err = lru.New(cfg.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("creating query cache: %w", err)
		}
	}
	return &Inquirer{
		cfg:    cfg,
		index:  idx,
		llm:    llm,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}, nil
}

func cacheKey(question string, opts QueryOptions) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%t|%g", question, opts.LatestFilter, opts.Highlighting, opts.LatestWeight)
	return fmt.Sprintf("%x", h.Sum(nil))
}

func latestOnly(filter string) bool {
	switch strings.ToLower(filter) {
	case "on", "true":
		return true
	}
	return false
}

// MakeQuery answers a question against the index. Zero retrieved candidates
// short-circuit the pipeline without calling the model.
func (q *Inquirer) MakeQuery(ctx context.Context, question string, opts QueryOptions) (*QueryResult, error) {
	key := cacheKey(question, opts)
	if q.cache != nil {
		if cached, ok := q.cache.Get(key); ok {
			q.logger.Debug("Query cache hit", zap.String("question", question))
			res := cached.(QueryResult)
			return &res, nil
		}
	}

	candidates, err := q.similaritySearch(ctx, question, latestOnly(opts.LatestFilter))
	if err != nil {
		return nil, err
	}

	result := &QueryResult{}
	if len(candidates) == 0 {
		q.logger.Info("No candidates above similarity threshold", zap.String("question", question))
		result.Response = NoAnswer("no relevant context retrieved")
		if q.cache != nil {
			q.cache.Add(key, *result)
		}
		return result, nil
	}

	docs := Rerank(candidates, opts.LatestWeight, q.now())
	result.Documents = docs

	resp := q.queryTexts(ctx, question, docs)
	result.Response = resp

	if opts.Highlighting {
		result.Documents = Highlight(result.Documents, resp, q.logger)
	}

	if !resp.AnswerProvided || docs[0].Score > q.cfg.AnswerThreshold {
		result.Answer = FallbackAnswer
	} else {
		result.Answer = AnswerPrefix + resp.MostLikelyAnswer
	}

	if docs[0].Score > q.cfg.DocumentThreshold {
		result.Documents = nil
		result.Placeholders = []string{PlaceholderNoPDF, PlaceholderNoContext}
	}

	if q.cache != nil {
		q.cache.Add(key, *result)
	}
	return result, nil
}

// similaritySearch retrieves KDocs nearest fragments and keeps those within
// the similarity threshold.
func (q *Inquirer) similaritySearch(ctx context.Context, question string, latest bool) ([]Candidate, error) {
	hits, err := q.index.Search(ctx, question, q.cfg.KDocs, latest)
	if err != nil {
		if apperrors.IsEmptyIndex(err) {
			return nil, err
		}
		return nil, apperrors.WrapError(err, "similarity search failed")
	}

	candidates := make([]Candidate, 0, len(hits))
	for _, hit := range hits {
		if hit.Distance > q.cfg.SimilarityThreshold {
			continue
		}
		candidates = append(candidates, candidateFromHit(hit))
	}
	return candidates, nil
}

// queryTexts sends the strongest candidates to the synthesis model. A chat
// or parse failure degrades to a no-answer response rather than an error.
func (q *Inquirer) queryTexts(ctx context.Context, question string, docs []Candidate) LlmResponse {
	selected := make([]Candidate, 0, q.cfg.KContexts)
	cutoff := docs[0].Score * scoreSpread
	for _, doc := range docs {
		if len(selected) == q.cfg.KContexts {
			break
		}
		if doc.Score > cutoff {
			continue
		}
		selected = append(selected, doc)
	}

	ctx, cancel := context.WithTimeout(ctx, q.cfg.LLMRequestTimeout)
	defer cancel()

	raw, err := q.llm.Chat(ctx, BuildMessages(question, selected))
	if err != nil {
		q.logger.Warn("Synthesis request failed", zap.Error(err))
		return NoAnswer(fmt.Sprintf("synthesis request failed: %v", err))
	}
	return ParseResponse(raw)
}
