// Package classification assigns document types using an ordered list of detectors.
package classification

import (
	"regexp"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Confidence levels assigned by the classifier.
const (
	ConfidenceText     = 1.0
	ConfidenceFilename = 0.5
	ConfidenceNone     = 0.0
)

// Predicate is a pure test over document text or a filename.
type Predicate func(string) bool

// Detector pairs predicates with the document type they indicate.
// Filename is optional and only consulted when no text predicate matched.
type Detector struct {
	Text     Predicate
	Filename Predicate
	Name     string
	Type     model.DocumentType
}

// Result is the outcome of classifying one document.
type Result struct {
	Type       model.DocumentType
	MatchedBy  string
	Confidence float64
}

// Classifier runs detectors in priority order; the first positive match wins.
type Classifier struct {
	detectors []Detector
	mu        sync.RWMutex
}

// NewClassifier creates a classifier over detectors in the given priority order.
func NewClassifier(detectors []Detector) *Classifier {
	c := &Classifier{}
	c.SetDetectors(detectors)
	return c
}

// SetDetectors replaces the detector list.
func (c *Classifier) SetDetectors(detectors []Detector) {
	copied := make([]Detector, len(detectors))
	copy(copied, detectors)

	c.mu.Lock()
	c.detectors = copied
	c.mu.Unlock()
}

// Detectors returns the detector names in priority order.
func (c *Classifier) Detectors() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.detectors))
	for i, d := range c.detectors {
		names[i] = d.Name
	}
	return names
}

// Classify determines the document type. Text markers are checked first across all
// detectors; filename hints are only a fallback and yield a degraded confidence.
func (c *Classifier) Classify(text, filename string) Result {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, d := range c.detectors {
		if d.Text != nil && d.Text(text) {
			return Result{Type: d.Type, Confidence: ConfidenceText, MatchedBy: d.Name}
		}
	}

	for _, d := range c.detectors {
		if d.Filename != nil && d.Filename(filename) {
			return Result{Type: d.Type, Confidence: ConfidenceFilename, MatchedBy: d.Name + ":filename"}
		}
	}

	common.LogDebug("Document type undetermined", common.Fields{
		"filename": filename,
		"reason":   common.ErrClassificationAmbiguous.Error(),
	})
	return Result{Type: model.DocumentTypeUnknown, Confidence: ConfidenceNone}
}

// ClassifyDocument classifies an input and builds the immutable document record.
// IGNORED and UNKNOWN documents are marked excluded.
func (c *Classifier) ClassifyDocument(clientID string, in model.DocumentInput) model.Document {
	res := c.Classify(in.Text, in.Filename)

	status := model.DocumentStatusOK
	if !res.Type.IsReconcilable() {
		status = model.DocumentStatusExcluded
	}

	return model.Document{
		ID:         in.ID,
		ClientID:   clientID,
		Filename:   in.Filename,
		Text:       in.Text,
		Type:       res.Type,
		MatchedBy:  res.MatchedBy,
		Confidence: res.Confidence,
		Status:     status,
	}
}

// MatchRegex returns a predicate that matches the compiled expression.
func MatchRegex(re *regexp.Regexp) Predicate {
	return re.MatchString
}

// All returns a predicate that holds when every predicate holds.
func All(preds ...Predicate) Predicate {
	return func(s string) bool {
		for _, p := range preds {
			if !p(s) {
				return false
			}
		}
		return true
	}
}
