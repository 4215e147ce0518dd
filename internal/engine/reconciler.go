// Package engine runs reconciliation batches: classify, extract, evaluate, learn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/accounts"
	"github.com/Veraticus/the-books-must-balance/internal/classification"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/extraction"
	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/learning"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/reconcile"
)

// Options tunes a Reconciler.
type Options struct {
	// OnDocumentDone is called once per document, from a single goroutine.
	OnDocumentDone  func(model.Document)
	SnapshotRetry   common.RetryOptions
	Workers         int
	DocumentTimeout time.Duration
}

// DefaultOptions returns the options of the built-in configuration.
func DefaultOptions() Options {
	return optionsFromConfig(config.Default().Engine)
}

func optionsFromConfig(cfg config.EngineConfig) Options {
	return Options{
		Workers:         cfg.Workers,
		DocumentTimeout: cfg.DocumentTimeout,
		SnapshotRetry: common.RetryOptions{
			MaxAttempts:  cfg.SnapshotRetries,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2.0,
		},
	}
}

// Reconciler orchestrates a batch of documents for one client.
type Reconciler struct {
	classifier Classifier
	extractor  Extractor
	evaluator  Evaluator
	generator  SuggestionGenerator
	store      knowledge.Store
	now        func() time.Time
	opts       Options
}

// New builds a reconciler from configuration. The store may be nil, in which case no
// knowledge is consulted and no suggestions are proposed. Configuration faults are
// returned as errors wrapping common.ErrRuleMisconfiguration or common.ErrInvalidConfig.
func New(cfg *config.Config, store knowledge.Store) (*Reconciler, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: configuration is required", common.ErrMissingConfig)
	}

	table, err := accounts.NewTable(cfg.Accounts)
	if err != nil {
		return nil, err
	}
	extractor, err := extraction.NewExtractor(cfg.Extraction, table)
	if err != nil {
		return nil, err
	}
	rules, err := reconcile.RulesFromConfig(cfg.Rules)
	if err != nil {
		return nil, err
	}
	evaluator, err := reconcile.NewEvaluator(rules)
	if err != nil {
		return nil, err
	}

	var generator SuggestionGenerator
	if store != nil {
		generator = learning.NewGenerator(store)
	}

	return NewWithComponents(
		classification.NewDefaultClassifier(table),
		extractor,
		evaluator,
		generator,
		store,
		optionsFromConfig(cfg.Engine),
	), nil
}

// NewWithComponents assembles a reconciler from explicit parts.
func NewWithComponents(classifier Classifier, extractor Extractor, evaluator Evaluator, generator SuggestionGenerator, store knowledge.Store, opts Options) *Reconciler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Reconciler{
		classifier: classifier,
		extractor:  extractor,
		evaluator:  evaluator,
		generator:  generator,
		store:      store,
		now:        time.Now,
		opts:       opts,
	}
}

// SetProgress installs a per-document completion callback.
func (r *Reconciler) SetProgress(fn func(model.Document)) {
	r.opts.OnDocumentDone = fn
}

type documentResult struct {
	doc   model.Document
	items []model.ExtractedItem
	index int
}

// Run reconciles a batch. Document-level problems never fail the run; they show up as
// excluded or incomplete documents and NO_DATA or INCOMPLETE results. Cancelling ctx
// stops the run and returns ctx.Err().
func (r *Reconciler) Run(ctx context.Context, clientID string, inputs []model.DocumentInput) (*Report, error) {
	start := r.now()
	slog.Info("Starting reconciliation", "client_id", clientID, "documents", len(inputs))

	var reader knowledge.Reader
	if r.store != nil {
		reader = r.store
	}
	snapshot := knowledge.TakeSnapshot(ctx, reader, clientID, r.opts.SnapshotRetry)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := r.processParallel(ctx, clientID, inputs, snapshot)
	if err := ctx.Err(); err != nil {
		slog.Warn("Reconciliation cancelled", "client_id", clientID, "completed", len(results))
		return nil, err
	}

	report := &Report{
		ClientID:  clientID,
		Documents: make([]model.Document, len(inputs)),
		Degraded:  snapshot.Degraded(),
	}
	itemsByInput := make([][]model.ExtractedItem, len(inputs))
	for _, res := range results {
		report.Documents[res.index] = res.doc
		if res.doc.Status == model.DocumentStatusOK {
			itemsByInput[res.index] = res.items
		}
	}
	for _, items := range itemsByInput {
		report.Items = append(report.Items, items...)
	}

	report.Results = r.evaluator.Evaluate(report.Items)

	if r.generator != nil {
		suggestions, err := r.generator.Generate(ctx, clientID, learning.Input{
			Documents: report.Documents,
			Items:     report.Items,
			Results:   report.Results,
		})
		if err != nil {
			common.LogError(err, "Suggestion generation failed", common.Fields{"client_id": clientID})
		}
		report.Suggestions = suggestions
	}

	report.GeneratedAt = r.now()
	report.Duration = report.GeneratedAt.Sub(start)

	summary := report.Summary()
	slog.Info("Reconciliation complete",
		"client_id", clientID,
		"items", len(report.Items),
		"match", summary[model.AuditMatch],
		"mismatch", summary[model.AuditMismatch],
		"incomplete", summary[model.AuditIncomplete],
		"no_data", summary[model.AuditNoData],
		"suggestions", len(report.Suggestions),
		"duration", report.Duration)

	return report, nil
}

// processParallel fans documents out to a bounded worker pool and collects results
// in completion order.
func (r *Reconciler) processParallel(ctx context.Context, clientID string, inputs []model.DocumentInput, snapshot *knowledge.Snapshot) []documentResult {
	workChan := make(chan int, len(inputs))
	for i := range inputs {
		workChan <- i
	}
	close(workChan)

	resultsChan := make(chan documentResult, len(inputs))

	workers := r.opts.Workers
	if workers > len(inputs) {
		workers = len(inputs)
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			r.worker(ctx, clientID, inputs, snapshot, workChan, resultsChan)
		}()
	}

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	results := make([]documentResult, 0, len(inputs))
	for res := range resultsChan {
		results = append(results, res)
		if r.opts.OnDocumentDone != nil {
			r.opts.OnDocumentDone(res.doc)
		}
	}
	return results
}

func (r *Reconciler) worker(
	ctx context.Context,
	clientID string,
	inputs []model.DocumentInput,
	snapshot *knowledge.Snapshot,
	workChan <-chan int,
	resultsChan chan<- documentResult,
) {
	for idx := range workChan {
		select {
		case <-ctx.Done():
			return
		default:
		}

		doc, items := r.processDocument(ctx, clientID, inputs[idx], snapshot)
		resultsChan <- documentResult{index: idx, doc: doc, items: items}
	}
}

// processDocument classifies and extracts a single document under its own deadline.
func (r *Reconciler) processDocument(ctx context.Context, clientID string, in model.DocumentInput, snapshot *knowledge.Snapshot) (model.Document, []model.ExtractedItem) {
	doc := r.classifier.ClassifyDocument(clientID, in)
	if doc.Status == model.DocumentStatusExcluded {
		slog.Debug("Document excluded", "document_id", doc.ID, "type", doc.Type)
		return doc, nil
	}

	docCtx := ctx
	if r.opts.DocumentTimeout > 0 {
		var cancel context.CancelFunc
		docCtx, cancel = context.WithTimeout(ctx, r.opts.DocumentTimeout)
		defer cancel()
	}

	res, err := r.extractor.Extract(docCtx, doc, snapshot)
	if err != nil {
		doc.Status = model.DocumentStatusIncomplete
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			common.LogError(common.ErrExtractionTimeout, "Document dropped", common.Fields{
				"document_id": doc.ID,
				"filename":    doc.Filename,
				"timeout":     r.opts.DocumentTimeout,
			})
		}
		return doc, nil
	}

	doc.Degraded = res.Degraded
	doc.ItemCount = len(res.Items)
	if len(res.Missing) > 0 {
		common.LogWarn("Target lines missing", common.Fields{
			"document_id": doc.ID,
			"type":        doc.Type,
			"missing":     res.Missing,
			"reason":      common.ErrExtractionMissing.Error(),
		})
	}
	return doc, res.Items
}
