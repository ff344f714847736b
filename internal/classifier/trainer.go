package classifier

import (
	"sort"

	"receiptai/internal/domain"
)

// Sample is one labeled training example.
type Sample struct {
	Text    string `json:"text"`
	Vendor  string `json:"vendor,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Payment string `json:"payment,omitempty"`
	Label   string `json:"label"`
}

func (s Sample) document() string {
	return Document{Text: s.Text, Vendor: s.Vendor, Amount: s.Amount, Payment: s.Payment}.Compose()
}

func (s Sample) label() string {
	if s.Label == "" {
		return domain.CategoryUncategorized
	}
	return s.Label
}

// TrainOptions tunes PartialTrain. Zero values select the defaults.
type TrainOptions struct {
	Epochs int
	Alpha  float64
	Loss   string
	// RefitVocabulary rebuilds the vocabulary from the batch alone instead of
	// extending it. Weights of terms present in both vocabularies are kept.
	RefitVocabulary bool
}

func (o TrainOptions) withDefaults() TrainOptions {
	if o.Epochs <= 0 {
		o.Epochs = DefaultEpochs
	}
	if o.Alpha <= 0 {
		o.Alpha = DefaultAlpha
	}
	if o.Loss != LossHinge {
		o.Loss = LossLog
	}
	return o
}

// Metrics summarizes one training call.
type Metrics struct {
	N                int      `json:"n"`
	Skipped          bool     `json:"skipped,omitempty"`
	Classes          []string `json:"classes,omitempty"`
	VocabularySize   int      `json:"vocabulary_size,omitempty"`
	Epochs           int      `json:"epochs,omitempty"`
	TrainingAccuracy float64  `json:"training_accuracy,omitempty"`
}

// Map renders m as a generic map for persistence.
func (m Metrics) Map() map[string]any {
	if m.Skipped {
		return map[string]any{"n": m.N, "skipped": true}
	}
	classes := make([]any, len(m.Classes))
	for i, c := range m.Classes {
		classes[i] = c
	}
	return map[string]any{
		"n":                 m.N,
		"classes":           classes,
		"vocabulary_size":   m.VocabularySize,
		"epochs":            m.Epochs,
		"training_accuracy": m.TrainingAccuracy,
	}
}

// PartialTrain returns a new model updated with batch. old may be nil for a
// cold start. old is never modified; an empty batch returns it unchanged.
func PartialTrain(old *Model, batch []Sample, opts TrainOptions) (*Model, Metrics) {
	if len(batch) == 0 {
		return old, Metrics{N: 0, Skipped: true}
	}
	opts = opts.withDefaults()

	texts := make([]string, len(batch))
	labels := make([]string, len(batch))
	for i, s := range batch {
		texts[i] = s.document()
		labels[i] = s.label()
	}

	var (
		vec    *Vectorizer
		linear *Linear
	)
	switch {
	case old == nil || old.Vectorizer == nil || old.Linear == nil:
		vec = FitVectorizer(texts)
		base := &Linear{Loss: opts.Loss, Alpha: opts.Alpha}
		linear = base.reshape(unionSorted(nil, labels), vec.Size())
	case opts.RefitVocabulary:
		vec = FitVectorizer(texts)
		linear = remapFeatures(old.Linear, old.Vectorizer, vec).reshape(unionSorted(old.Linear.Classes, labels), vec.Size())
	default:
		vec = old.Vectorizer.Extend(texts)
		linear = old.Linear.reshape(unionSorted(old.Linear.Classes, labels), vec.Size())
	}

	xs := make([]SparseVector, len(texts))
	for i, t := range texts {
		xs[i] = vec.Transform(t)
	}
	linear.fit(xs, labels, opts.Epochs)

	model := &Model{Vectorizer: vec, Linear: linear}
	return model, Metrics{
		N:                len(batch),
		Classes:          append([]string(nil), linear.Classes...),
		VocabularySize:   vec.Size(),
		Epochs:           opts.Epochs,
		TrainingAccuracy: accuracy(model, xs, labels),
	}
}

// remapFeatures moves the weights of old onto the feature layout of next by
// term. Terms missing from next are dropped.
func remapFeatures(l *Linear, prev, next *Vectorizer) *Linear {
	out := &Linear{
		Classes:    l.Classes,
		Weights:    make([][]float64, len(l.Classes)),
		Intercepts: append([]float64(nil), l.Intercepts...),
		Loss:       l.Loss,
		Alpha:      l.Alpha,
		Steps:      l.Steps,
	}
	for c := range l.Classes {
		out.Weights[c] = make([]float64, next.Size())
		for term, oldIdx := range prev.Vocabulary {
			newIdx, ok := next.Vocabulary[term]
			if ok && oldIdx < len(l.Weights[c]) {
				out.Weights[c][newIdx] = l.Weights[c][oldIdx]
			}
		}
	}
	return out
}

func unionSorted(known, labels []string) []string {
	set := make(map[string]struct{}, len(known)+len(labels))
	for _, c := range known {
		set[c] = struct{}{}
	}
	for _, c := range labels {
		set[c] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func accuracy(m *Model, xs []SparseVector, labels []string) float64 {
	if len(xs) == 0 {
		return 0
	}
	var hits int
	for i, x := range xs {
		scores := m.Linear.Decision(x)
		best := 0
		for c := 1; c < len(scores); c++ {
			if scores[c] > scores[best] {
				best = c
			}
		}
		if m.Linear.Classes[best] == labels[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(xs))
}
