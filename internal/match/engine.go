package match

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clinical-rosetta/internal/debug"
	"github.com/clinical-rosetta/internal/index"
	"github.com/clinical-rosetta/internal/learning"
	"github.com/clinical-rosetta/internal/metrics"
	"github.com/clinical-rosetta/internal/model"
	"github.com/clinical-rosetta/internal/normalize"
	"github.com/clinical-rosetta/internal/symspell"
)

// Engine resolves lab test shorthand to canonical identifiers
type Engine struct {
	index      *index.Index
	dictionary *normalize.Holder
	learned    *learning.Store
	corrector  *symspell.Corrector
	generator  *Generator
	scorer     *Scorer
	settings   Settings
	metrics    *metrics.Metrics
	logger     *zap.Logger

	// Debug traces every resolution step through the debug logger
	Debug bool
}

// EngineConfig holds the engine's collaborators
type EngineConfig struct {
	Index      *index.Index
	Dictionary *normalize.Holder
	Learned    *learning.Store
	Corrector  *symspell.Corrector // optional spelling correction
	Settings   *Settings
	Metrics    *metrics.Metrics
	Logger     *zap.Logger
	Debug      bool
}

// NewEngine creates a resolution engine. Index and Learned are required, and
// the index must be built with Settings.IndexOptions.
func NewEngine(config EngineConfig) (*Engine, error) {
	if config.Index == nil {
		return nil, errors.New("engine requires a synonym index")
	}
	if config.Learned == nil {
		return nil, errors.New("engine requires a learning store")
	}

	settings := DefaultSettings()
	if config.Settings != nil {
		settings = *config.Settings
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine settings: %w", err)
	}
	// the prefilter runs inside the index, so its bounds are fixed at build time
	if got := config.Index.Options(); got.MinTokenOverlap != settings.MinTokenOverlap || got.MaxPrefilter != settings.MaxPrefilter {
		return nil, fmt.Errorf("index built with min token overlap %g and max prefilter %d, settings want %g and %d",
			got.MinTokenOverlap, got.MaxPrefilter, settings.MinTokenOverlap, settings.MaxPrefilter)
	}

	dict := config.Dictionary
	if dict == nil {
		dict = normalize.NewHolder(normalize.DefaultDictionary())
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Engine{
		index:      config.Index,
		dictionary: dict,
		learned:    config.Learned,
		corrector:  config.Corrector,
		generator:  NewGenerator(config.Index, config.Learned, settings),
		scorer:     NewScorer(settings),
		settings:   settings,
		metrics:    config.Metrics,
		logger:     logger.Named("engine"),
		Debug:      config.Debug,
	}, nil
}

// Settings returns the tunables in effect
func (e *Engine) Settings() Settings {
	return e.settings
}

// Translate resolves one text. Candidates below minConfidence are dropped;
// when none remain the result is unresolved. It never fails and does no I/O.
func (e *Engine) Translate(text string, minConfidence float64) Result {
	return e.translate(e.Debug, e.dictionary.Load(), text, minConfidence)
}

func (e *Engine) translate(localDebug bool, dict *normalize.Dictionary, text string, minConfidence float64) Result {
	debug.DebugHeader(localDebug)
	defer debug.DebugFooter(localDebug)

	start := time.Now()
	result := e.resolve(localDebug, dict, text, minConfidence)
	e.metrics.ObserveTranslate(string(result.Provenance), time.Since(start))

	debug.DebugOutput(localDebug, "Result: %q -> %q %s %.4f (%d candidates, ambiguous=%v, reason=%q)",
		text, result.Identifier, result.Provenance, result.Confidence,
		len(result.Candidates), result.Ambiguous, result.Reason)
	return result
}

func (e *Engine) resolve(localDebug bool, dict *normalize.Dictionary, text string, minConfidence float64) Result {
	// Step 1: Normalize
	debug.DebugOutput(localDebug, "=== Step 1: Normalization ===")
	query := normalize.NormalizeDebug(localDebug, text)
	result := Result{
		SourceText: text,
		Normalized: string(query),
		Provenance: model.ProvenanceUnresolved,
		Candidates: []Candidate{},
	}
	if query.IsEmpty() {
		result.Reason = ReasonNoInput
		return result
	}

	// Step 2: Expand
	debug.DebugOutput(localDebug, "=== Step 2: Expansion ===")
	expansions := e.expand(localDebug, dict, query)

	// Step 3: Generate
	debug.DebugOutput(localDebug, "=== Step 3: Candidate Generation ===")
	candidates := e.generator.Generate(localDebug, query, expansions)
	if len(candidates) == 0 {
		result.Reason = ReasonNoCandidates
		return result
	}

	// Step 4: Score
	debug.DebugOutput(localDebug, "=== Step 4: Scoring ===")
	scored, ambiguous := e.scorer.Score(localDebug, candidates)

	// Step 5: Threshold
	debug.DebugOutput(localDebug, "=== Step 5: Threshold %.4f ===", minConfidence)
	kept := scored[:0]
	for _, c := range scored {
		if c.Confidence >= minConfidence {
			if concept, ok := e.index.Concept(c.Identifier); ok {
				c.Name = concept.PreferredName()
			}
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		result.Reason = ReasonBelowThreshold
		return result
	}

	best := kept[0]
	result.Identifier = best.Identifier
	result.Name = best.Name
	result.Confidence = best.Confidence
	result.Provenance = best.Provenance
	result.Candidates = kept
	result.Ambiguous = ambiguous
	return result
}

// expand returns the query followed by its abbreviation expansions and, when
// spelling correction is enabled and the fan-out cap allows, the corrected text
func (e *Engine) expand(localDebug bool, dict *normalize.Dictionary, query normalize.Text) []normalize.Text {
	expansions := dict.ExpandLimit(query, e.settings.MaxExpansions)

	if e.corrector != nil && len(expansions)-1 < e.settings.MaxExpansions {
		corrected, corrections := e.corrector.CorrectText(string(query))
		if len(corrections) > 0 {
			fixed := normalize.Text(corrected)
			if !containsText(expansions, fixed) {
				expansions = append(expansions, fixed)
			}
			for _, c := range corrections {
				debug.DebugOutput(localDebug, "Spelling: %q -> %q (distance %d)", c.Original, c.Corrected, c.Distance)
			}
		}
	}

	for i, x := range expansions {
		debug.DebugOutput(localDebug, "Expansion %d: %q", i, x)
	}
	return expansions
}

func containsText(list []normalize.Text, t normalize.Text) bool {
	for _, x := range list {
		if x == t {
			return true
		}
	}
	return false
}

// Confirm records that text resolves to id. It fails with
// model.ErrUnknownIdentifier when id has no concept and with
// model.ErrDataStoreUnavailable when the learning backend cannot be written.
func (e *Engine) Confirm(ctx context.Context, text string, id model.Identifier) (model.LearnedEntry, error) {
	id = model.Identifier(strings.TrimSpace(string(id)))
	if !e.index.HasConcept(id) {
		e.metrics.ObserveConfirm("unknown_identifier")
		return model.LearnedEntry{}, &model.UnknownIdentifierError{Identifier: id}
	}

	entry, err := e.learned.Confirm(ctx, text, id)
	if err != nil {
		outcome := "error"
		if errors.Is(err, model.ErrEmptyInput) {
			outcome = "empty_input"
		}
		e.metrics.ObserveConfirm(outcome)
		return model.LearnedEntry{}, err
	}

	e.metrics.ObserveConfirm("ok")
	e.logger.Info("mapping confirmed",
		zap.String("text", text),
		zap.String("normalized", entry.Normalized),
		zap.String("identifier", string(entry.Identifier)),
		zap.Int64("usage_count", entry.UsageCount))
	return entry, nil
}

// Search browses concepts by official name or synonym. A non-positive limit
// uses index.DefaultSearchLimit.
func (e *Engine) Search(query string, limit int) []index.SearchHit {
	localDebug := e.Debug
	q := normalize.NormalizeDebug(localDebug, query)
	hits := e.index.Search(q, limit)
	debug.DebugOutput(localDebug, "Search %q: %d hits", q, len(hits))
	return hits
}

// Concept returns the canonical concept for id
func (e *Engine) Concept(id model.Identifier) (model.Concept, bool) {
	return e.index.Concept(model.Identifier(strings.TrimSpace(string(id))))
}

// Stats reports the size of the data behind the engine
func (e *Engine) Stats() model.Stats {
	return model.Stats{
		Concepts:        e.index.ConceptCount(),
		CuratedMappings: e.index.CuratedCount(),
		LearnedMappings: e.learned.Len(),
		Synonyms:        e.index.SynonymCount(),
		Abbreviations:   e.dictionary.Load().Len(),
	}
}
