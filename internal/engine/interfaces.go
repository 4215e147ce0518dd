package engine

import (
	"context"

	"github.com/Veraticus/the-books-must-balance/internal/extraction"
	"github.com/Veraticus/the-books-must-balance/internal/knowledge"
	"github.com/Veraticus/the-books-must-balance/internal/learning"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Classifier assigns a document type to raw input.
type Classifier interface {
	ClassifyDocument(clientID string, in model.DocumentInput) model.Document
}

// Extractor finds the line items of a classified document.
type Extractor interface {
	Extract(ctx context.Context, doc model.Document, r knowledge.Reader) (*extraction.Result, error)
}

// Evaluator turns the items of a batch into audit results.
type Evaluator interface {
	Evaluate(items []model.ExtractedItem) []model.AuditResult
}

// SuggestionGenerator proposes knowledge from the outcome of a batch.
type SuggestionGenerator interface {
	Generate(ctx context.Context, clientID string, in learning.Input) ([]model.LearningSuggestion, error)
}
