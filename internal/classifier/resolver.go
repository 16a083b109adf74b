package classifier

import (
	"context"
	"fmt"
	"math"

	"github.com/disputeflow/backend/internal/config"
	"github.com/disputeflow/backend/internal/models"
)

// SemanticScorer produces an embedding similarity in [0,1] per scored
// category. Implementations must never fail: an unavailable backend scores
// 0.0 everywhere.
type SemanticScorer interface {
	Scores(ctx context.Context, text string) map[string]float64
}

// CategoryScore carries the evidence collected for one category.
type CategoryScore struct {
	Phrase   string  `json:"phrase"`
	Lexical  int     `json:"lexical"`
	Semantic float64 `json:"semantic"`
	Combined float64 `json:"combined"`
}

// Result is the resolver's verdict for one dispute.
type Result struct {
	Category    string
	Confidence  float64
	Explanation string
	Scores      map[string]CategoryScore
}

// thresholdRule is one tier of the priority waterfall: first rule whose
// category reaches its threshold wins. Evaluated strictly top-down, so a
// lower tier can never mask a higher one.
type thresholdRule struct {
	Category  string
	Threshold float64
	Adjust    func(conf float64, txn models.Transaction) (float64, string)
}

// Resolver turns per-category scores and the metadata duplicate rule into a
// single category, confidence, and explanation. Pure and synchronous; safe
// for concurrent use once constructed.
type Resolver struct {
	rules    config.Rules
	phrases  *PhraseIndex
	semantic SemanticScorer
	tiers    []thresholdRule
}

func NewResolver(rules config.Rules, phrases *PhraseIndex, semantic SemanticScorer) *Resolver {
	r := &Resolver{
		rules:    rules,
		phrases:  phrases,
		semantic: semantic,
	}
	// Business priority: fraud outranks everything text-based; a pending
	// refund outranks a failed transaction when both are plausible; the
	// text-based duplicate tier sits below all of them because the metadata
	// rule already handled the strong duplicate evidence.
	r.tiers = []thresholdRule{
		{Category: models.CategoryFraud, Threshold: rules.FraudThreshold},
		{Category: models.CategoryRefund, Threshold: rules.RefundThreshold},
		{Category: models.CategoryFailed, Threshold: rules.FailedThreshold, Adjust: r.failedStatusBump},
		{Category: models.CategoryDuplicate, Threshold: rules.DuplicateTextThreshold},
	}
	return r
}

// Classify runs the full waterfall for one dispute. txn is the dispute's
// linked transaction; ledger is the complete append-only transaction set.
func (r *Resolver) Classify(ctx context.Context, d models.Dispute, txn models.Transaction, ledger *Ledger) Result {
	if ledger.HasDuplicate(txn, r.rules.DuplicateWindow) {
		return Result{
			Category:   models.CategoryDuplicate,
			Confidence: r.rules.DuplicateConfidence,
			Explanation: fmt.Sprintf(
				"Ledger scan found another transaction with the same amount for customer %s within %s.",
				txn.CustomerID, r.rules.DuplicateWindow),
		}
	}

	scores := r.Score(ctx, d.Description)

	for _, tier := range r.tiers {
		s := scores[tier.Category]
		if s.Combined < tier.Threshold {
			continue
		}
		conf := r.mapConfidence(s.Combined)
		explanation := fmt.Sprintf("Description matched phrase %q with lexical score %d and combined score %.2f.",
			s.Phrase, s.Lexical, s.Combined)
		if tier.Adjust != nil {
			var note string
			conf, note = tier.Adjust(conf, txn)
			explanation += note
		}
		return Result{
			Category:    tier.Category,
			Confidence:  conf,
			Explanation: explanation,
			Scores:      scores,
		}
	}

	bestCat, best := argMax(scores)
	if best.Combined >= r.rules.FloorThreshold {
		return Result{
			Category:   bestCat,
			Confidence: r.mapConfidence(best.Combined),
			Explanation: fmt.Sprintf(
				"Low-confidence automatic match: best phrase %q with combined score %.2f.",
				best.Phrase, best.Combined),
			Scores: scores,
		}
	}

	return Result{
		Category:    models.CategoryOthers,
		Confidence:  0.5,
		Explanation: "No classification rule matched. Requires manual investigation.",
		Scores:      scores,
	}
}

// Score collects lexical, semantic, and combined scores for every scored
// category. The description is encoded at most once per call.
func (r *Resolver) Score(ctx context.Context, description string) map[string]CategoryScore {
	semantic := r.semantic.Scores(ctx, description)
	out := make(map[string]CategoryScore, len(models.ScoredCategories))
	for _, cat := range models.ScoredCategories {
		phrase, lexical := r.phrases.BestMatch(description, cat)
		sem := semantic[cat]
		out[cat] = CategoryScore{
			Phrase:   phrase,
			Lexical:  lexical,
			Semantic: sem,
			Combined: Combine(lexical, sem, r.rules.LexicalWeight),
		}
	}
	return out
}

// Combine blends a 0-100 lexical score with a 0-1 semantic score into one
// 0-1 signal, favoring the lexical side by weight.
func Combine(lexical int, semantic float64, weight float64) float64 {
	return weight*(float64(lexical)/100) + (1-weight)*semantic
}

// mapConfidence maps a combined score linearly onto [0.5, 0.95], rounded to
// two decimals.
func (r *Resolver) mapConfidence(score float64) float64 {
	return round2(0.5 + 0.45*clamp01(score))
}

func (r *Resolver) failedStatusBump(conf float64, txn models.Transaction) (float64, string) {
	if txn.Status != models.TxnFailed && txn.Status != models.TxnCancelled {
		return conf, ""
	}
	bumped := conf + r.rules.FailedStatusBump
	if bumped > r.rules.ConfidenceCap {
		bumped = r.rules.ConfidenceCap
	}
	return round2(bumped), fmt.Sprintf(" Transaction status %s corroborates the claim.", txn.Status)
}

// argMax iterates in ScoredCategories order so equal scores resolve to the
// higher-priority category deterministically.
func argMax(scores map[string]CategoryScore) (string, CategoryScore) {
	bestCat := ""
	var best CategoryScore
	for _, cat := range models.ScoredCategories {
		s := scores[cat]
		if bestCat == "" || s.Combined > best.Combined {
			bestCat = cat
			best = s
		}
	}
	return bestCat, best
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
