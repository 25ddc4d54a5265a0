package s1_candidates

import (
	"errors"
	"iter"
	"math"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/condor/internal/contracts"
	"github.com/wonny/condor/internal/metrics"
	"github.com/wonny/condor/internal/strategyconfig"
	"github.com/wonny/condor/pkg/logger"
)

// deltaEpsilon absorbs float noise in delta distance comparisons
const deltaEpsilon = 1e-9

// Builder implements S1: iron condor candidate generation
// ⭐ SSOT: S1 후보 생성 로직은 여기서만
type Builder struct {
	asOf    time.Time
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewBuilder creates a builder measuring DTE from asOf
func NewBuilder(asOf time.Time, log *logger.Logger, m *metrics.Metrics) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{
		asOf:    contracts.DateOf(asOf),
		logger:  log,
		metrics: m,
	}
}

// Generate validates cfg and returns a lazy, single-pass candidate sequence
//
// Configuration errors are returned immediately. Data problems never are:
// options without delta are skipped and invalid condors are logged and
// counted. Ranging over the sequence a second time yields nothing; call
// Generate again for a fresh pass.
func (b *Builder) Generate(options []contracts.Option, cfg strategyconfig.Strategy) (iter.Seq[contracts.IronCondor], error) {
	if err := strategyconfig.ValidateStrategy(cfg); err != nil {
		return nil, err
	}

	chain := slices.Clone(options)
	pairs := cfg.WidthPairs()
	var consumed atomic.Bool

	return func(yield func(contracts.IronCondor) bool) {
		if !consumed.CompareAndSwap(false, true) {
			b.logger.Warn("candidate sequence already consumed; call Generate again")
			return
		}

		for _, g := range groupByExpiration(chain, b.asOf, cfg) {
			if !b.emitGroup(g, cfg, pairs, yield) {
				return
			}
		}
	}, nil
}

// expirationGroup is one (ticker, expiration) slice of the chain
type expirationGroup struct {
	ticker     string
	expiration time.Time
	dte        int
	puts       []contracts.Option // strike asc
	calls      []contracts.Option // strike asc
}

// groupByExpiration keeps groups inside [min_dte, max_dte], ordered by ticker then expiration
func groupByExpiration(options []contracts.Option, asOf time.Time, cfg strategyconfig.Strategy) []*expirationGroup {
	type key struct {
		ticker string
		exp    time.Time
	}

	byKey := make(map[key]*expirationGroup)
	keys := make([]key, 0)

	for _, o := range options {
		exp := contracts.DateOf(o.Expiration)
		dte := contracts.DaysBetween(asOf, exp)
		if dte < cfg.MinDTE || dte > cfg.MaxDTE {
			continue
		}

		k := key{ticker: o.Ticker, exp: exp}
		g, ok := byKey[k]
		if !ok {
			g = &expirationGroup{ticker: o.Ticker, expiration: exp, dte: dte}
			byKey[k] = g
			keys = append(keys, k)
		}

		switch o.Type {
		case contracts.OptionPut:
			g.puts = append(g.puts, o)
		case contracts.OptionCall:
			g.calls = append(g.calls, o)
		}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ticker != keys[j].ticker {
			return keys[i].ticker < keys[j].ticker
		}
		return keys[i].exp.Before(keys[j].exp)
	})

	groups := make([]*expirationGroup, 0, len(keys))
	for _, k := range keys {
		g := byKey[k]
		sort.SliceStable(g.puts, func(i, j int) bool { return g.puts[i].Strike < g.puts[j].Strike })
		sort.SliceStable(g.calls, func(i, j int) bool { return g.calls[i].Strike < g.calls[j].Strike })
		groups = append(groups, g)
	}
	return groups
}

// emitGroup yields every valid wing combination for one expiration
// Returns false when the consumer stopped.
func (b *Builder) emitGroup(g *expirationGroup, cfg strategyconfig.Strategy, pairs [][2]float64, yield func(contracts.IronCondor) bool) bool {
	log := b.logger.WithFields(map[string]interface{}{
		"ticker":     g.ticker,
		"expiration": g.expiration.Format(contracts.DateLayout),
		"dte":        g.dte,
	})

	shortPut, ok := SelectShortLeg(g.puts, cfg.TargetDelta, cfg.DeltaTolerance)
	if !ok {
		log.Debug("no short put within delta tolerance")
		return true
	}
	shortCall, ok := SelectShortLeg(g.calls, cfg.TargetDelta, cfg.DeltaTolerance)
	if !ok {
		log.Debug("no short call within delta tolerance")
		return true
	}

	puts := indexByStrike(g.puts)
	calls := indexByStrike(g.calls)
	spStrike := decimal.NewFromFloat(shortPut.Strike)
	scStrike := decimal.NewFromFloat(shortCall.Strike)

	for _, pair := range pairs {
		longPut, ok := puts[strikeKey(spStrike.Sub(decimal.NewFromFloat(pair[0])))]
		if !ok {
			continue
		}
		longCall, ok := calls[strikeKey(scStrike.Add(decimal.NewFromFloat(pair[1])))]
		if !ok {
			continue
		}

		ic, err := contracts.NewIronCondor(longPut, shortPut, shortCall, longCall)
		if err != nil {
			var rej *contracts.RejectionError
			reason := "invalid"
			if errors.As(err, &rej) {
				reason = string(rej.Reason)
			}
			b.metrics.Rejected(contracts.StageCandidates, reason)
			log.WithFields(map[string]interface{}{
				"put_wing":  pair[0],
				"call_wing": pair[1],
				"reason":    reason,
			}).Debugf("candidate rejected: %v", err)
			continue
		}

		if !yield(ic) {
			return false
		}
	}
	return true
}

// SelectShortLeg picks the leg whose |delta| is closest to target within tolerance
//
// legs must be sorted by strike. Ties resolve to the lowest strike, then to
// the first encountered. Legs without delta are never eligible.
func SelectShortLeg(legs []contracts.Option, target, tolerance float64) (contracts.Option, bool) {
	var best contracts.Option
	bestDist := math.Inf(1)
	found := false

	for _, o := range legs {
		if !o.HasDelta() {
			continue
		}
		dist := math.Abs(math.Abs(*o.Delta) - target)
		if dist > tolerance+deltaEpsilon {
			continue
		}
		if !found || dist < bestDist-deltaEpsilon {
			best, bestDist, found = o, dist, true
		}
	}
	return best, found
}

// indexByStrike maps exact strikes to the first quoted option at that strike
func indexByStrike(legs []contracts.Option) map[string]contracts.Option {
	idx := make(map[string]contracts.Option, len(legs))
	for _, o := range legs {
		k := strikeKey(decimal.NewFromFloat(o.Strike))
		if _, exists := idx[k]; !exists {
			idx[k] = o
		}
	}
	return idx
}

func strikeKey(d decimal.Decimal) string {
	return d.StringFixed(4)
}
