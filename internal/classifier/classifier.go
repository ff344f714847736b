// Package classifier predicts an expense category from receipt text with a
// TF-IDF vectorizer and an incrementally trained linear model.
package classifier

import (
	"sort"
	"strings"

	"receiptai/internal/domain"
)

const topAlternatives = 3

// Model pairs a fitted vectorizer with the linear model trained on its
// features. A Model is never modified after it is built.
type Model struct {
	Vectorizer *Vectorizer `json:"vectorizer"`
	Linear     *Linear     `json:"linear"`
}

// Classes returns the known labels in model order.
func (m *Model) Classes() []string {
	if m == nil || m.Linear == nil {
		return nil
	}
	return m.Linear.Classes
}

// Document is the classifier input: OCR text plus optional hints.
type Document struct {
	Text    string
	Vendor  string
	Amount  string
	Payment string
}

// Compose joins the non-empty parts with newlines.
func (d Document) Compose() string {
	return joinNonEmpty(d.Text, d.Vendor, d.Amount, d.Payment)
}

// Scored is a label with its probability.
type Scored struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Prediction is the best label with up to three ranked alternatives.
type Prediction struct {
	Label        string   `json:"label"`
	Score        float64  `json:"score"`
	Alternatives []Scored `json:"alternatives"`
	Fallback     bool     `json:"-"`
}

// FallbackPrediction is returned when no trained model is available.
func FallbackPrediction() Prediction {
	return Prediction{
		Label: domain.CategoryOfficeSupply,
		Score: 0.5,
		Alternatives: []Scored{
			{Label: domain.CategoryOfficeSupply, Score: 0.5},
			{Label: domain.CategoryMiscellaneous, Score: 0.4},
		},
		Fallback: true,
	}
}

// Predict classifies doc with m. A nil or class-less model yields the
// fallback prediction.
func Predict(doc Document, m *Model) Prediction {
	if m == nil || m.Vectorizer == nil || m.Linear == nil || len(m.Linear.Classes) == 0 {
		return FallbackPrediction()
	}

	probs := m.Linear.Probabilities(m.Vectorizer.Transform(doc.Compose()))
	ranked := make([]Scored, len(probs))
	for i, p := range probs {
		ranked[i] = Scored{Label: m.Linear.Classes[i], Score: p}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	n := topAlternatives
	if len(ranked) < n {
		n = len(ranked)
	}
	return Prediction{
		Label:        ranked[0].Label,
		Score:        ranked[0].Score,
		Alternatives: ranked[:n],
	}
}

func joinNonEmpty(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
