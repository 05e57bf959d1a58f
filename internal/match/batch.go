package match

import (
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/clinical-rosetta/internal/debug"
)

// BatchTranslate translates every text, returning one result per input in
// input order. Every item sees the same abbreviation dictionary, so the output
// matches calling Translate on each text in turn.
func (e *Engine) BatchTranslate(texts []string, minConfidence float64) []Result {
	localDebug := e.Debug
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results
	}
	e.metrics.ObserveBatch(len(texts))

	dict := e.dictionary.Load()

	workers := e.settings.BatchWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	debug.DebugOutput(localDebug, "Batch translating %d texts with %d workers", len(texts), workers)

	var g errgroup.Group
	g.SetLimit(workers)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			// per-item tracing would interleave across workers
			results[i] = e.translate(false, dict, text, minConfidence)
			return nil
		})
	}
	_ = g.Wait()

	if localDebug {
		resolved := 0
		for _, r := range results {
			if r.Resolved() {
				resolved++
			}
		}
		debug.DebugOutput(localDebug, "Batch complete - resolved %d of %d", resolved, len(results))
	}
	return results
}
