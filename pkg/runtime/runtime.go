// Package runtime combines the premise index, the IR cache, and the shared
// tree-walking evaluation logic into the optimized evaluation path. The
// runtime exists purely for throughput: for any scenario it returns exactly
// what the interpretive engine would return for the rules that were
// candidates.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clauselab/regula/pkg/canonicalize"
	"github.com/clauselab/regula/pkg/compiler"
	"github.com/clauselab/regula/pkg/engine"
	"github.com/clauselab/regula/pkg/premise"
	"github.com/clauselab/regula/pkg/rulemodel"
)

// ErrNotLoaded is returned when Evaluate runs before any rule set was
// loaded.
var ErrNotLoaded = errors.New("runtime: no rule set loaded")

// Metrics receives evaluation telemetry. pkg/observability provides the
// OTel-backed implementation; nil disables recording.
type Metrics interface {
	RecordEvaluation(ctx context.Context, candidates, total int, duration time.Duration, ruleErrors int)
	RecordCacheLookup(ctx context.Context, hit bool)
}

// snapshot is one immutable view of the loaded rule set. Readers grab the
// current snapshot once per evaluation; reloads build a fresh snapshot and
// swap the pointer, so a half-built index is never observable and in-flight
// evaluations are unaffected.
type snapshot struct {
	index    *premise.Index
	compiled map[string]*compiler.CompiledRule
}

// Runtime is the optimized evaluation path. Safe for concurrent use; the
// only shared mutable state is the snapshot pointer and the IR cache, both
// updated atomically.
type Runtime struct {
	engine      *engine.Engine
	cache       Cache
	logger      *slog.Logger
	metrics     Metrics
	parallelism int

	snap atomic.Pointer[snapshot]
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithCache replaces the default in-memory LRU IR cache.
func WithCache(c Cache) RuntimeOption {
	return func(r *Runtime) { r.cache = c }
}

// WithLogger sets the runtime's logger.
func WithLogger(l *slog.Logger) RuntimeOption {
	return func(r *Runtime) { r.logger = l }
}

// WithMetrics attaches evaluation telemetry.
func WithMetrics(m Metrics) RuntimeOption {
	return func(r *Runtime) { r.metrics = m }
}

// WithParallelism bounds batch-evaluation fan-out.
func WithParallelism(n int) RuntimeOption {
	return func(r *Runtime) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// New builds a Runtime around the shared engine.
func New(eng *engine.Engine, opts ...RuntimeOption) *Runtime {
	r := &Runtime{
		engine:      eng,
		cache:       NewLRUCache(DefaultCacheSize),
		logger:      slog.Default(),
		parallelism: 8,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load compiles the rule set (through the IR cache) and atomically swaps
// in a fresh premise index. It may run concurrently with evaluation;
// in-flight evaluations keep the old snapshot.
func (r *Runtime) Load(ctx context.Context, rules []rulemodel.Rule) error {
	compiled := make(map[string]*compiler.CompiledRule, len(rules))
	list := make([]*compiler.CompiledRule, 0, len(rules))

	for i := range rules {
		cr, err := r.compileThrough(ctx, &rules[i])
		if err != nil {
			return err
		}
		if prev, dup := compiled[cr.RuleID]; dup {
			return fmt.Errorf("runtime: duplicate rule_id %q (hashes %s, %s)",
				cr.RuleID, prev.ContentHash, cr.ContentHash)
		}
		compiled[cr.RuleID] = cr
		list = append(list, cr)
	}

	next := &snapshot{
		index:    premise.Build(list),
		compiled: compiled,
	}
	r.snap.Store(next)

	ruleCount, keyCount := next.index.Size()
	r.logger.Info("rule set loaded",
		"rules", ruleCount, "premise_keys", keyCount,
		"always_candidates", len(next.index.AlwaysCandidates()))
	return nil
}

// LoadPack loads a single pack's rules.
func (r *Runtime) LoadPack(ctx context.Context, pack *rulemodel.RulePack) error {
	return r.Load(ctx, pack.Rules)
}

// compileThrough fetches the rule's IR from the cache by content hash,
// compiling and populating on miss. Racing fills are benign: compilation
// of the same content produces identical IR.
func (r *Runtime) compileThrough(ctx context.Context, rule *rulemodel.Rule) (*compiler.CompiledRule, error) {
	hash, err := canonicalize.CanonicalHash(rule)
	if err != nil {
		return nil, fmt.Errorf("runtime: rule %s: content hash: %w", rule.RuleID, err)
	}
	if cached, hit := r.cache.Get(ctx, hash); hit {
		if r.metrics != nil {
			r.metrics.RecordCacheLookup(ctx, true)
		}
		return cached, nil
	}
	if r.metrics != nil {
		r.metrics.RecordCacheLookup(ctx, false)
	}
	cr, err := compiler.Compile(rule)
	if err != nil {
		return nil, err
	}
	r.cache.Put(ctx, hash, cr)
	return cr, nil
}

// Evaluate narrows the loaded rule set to candidates via the premise index
// and routes each candidate through the same tree-walking logic as the
// interpretive engine. Results are ordered by rule id.
func (r *Runtime) Evaluate(ctx context.Context, scenario rulemodel.Scenario) ([]rulemodel.DecisionResult, error) {
	snap := r.snap.Load()
	if snap == nil {
		return nil, ErrNotLoaded
	}

	start := time.Now()
	candidates := snap.index.Candidates(scenario)
	at := r.engine.EvaluationDate(scenario)

	results := make([]rulemodel.DecisionResult, 0, len(candidates))
	ruleErrors := 0
	for _, id := range candidates {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}
		cr, ok := snap.compiled[id]
		if !ok {
			// Index and compiled map come from the same snapshot; a miss
			// here is an invariant violation.
			return nil, fmt.Errorf("runtime: candidate %q missing from snapshot", id)
		}
		res := r.engine.EvaluateRule(&cr.Rule, scenario, at)
		if res.Err != "" {
			ruleErrors++
		}
		results = append(results, res)
	}

	if r.metrics != nil {
		total, _ := snap.index.Size()
		r.metrics.RecordEvaluation(ctx, len(candidates), total, time.Since(start), ruleErrors)
	}
	return results, nil
}

// EvaluateBatch evaluates independent scenarios against the same snapshot
// in parallel. Per-scenario work shares the premise index and IR cache
// without recompilation.
func (r *Runtime) EvaluateBatch(ctx context.Context, scenarios []rulemodel.Scenario) ([][]rulemodel.DecisionResult, error) {
	batchID := uuid.New().String()
	out := make([][]rulemodel.DecisionResult, len(scenarios))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i := range scenarios {
		g.Go(func() error {
			results, err := r.Evaluate(gctx, scenarios[i])
			if err != nil {
				return fmt.Errorf("runtime: batch %s scenario %d: %w", batchID, i, err)
			}
			out[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.logger.Debug("batch evaluated", "batch_id", batchID, "scenarios", len(scenarios))
	return out, nil
}

// RuleCount reports the size of the current snapshot, zero before Load.
func (r *Runtime) RuleCount() int {
	snap := r.snap.Load()
	if snap == nil {
		return 0
	}
	n, _ := snap.index.Size()
	return n
}
