package classifier

import (
	"math"
)

// Loss functions supported by Linear.
const (
	LossLog   = "log_loss"
	LossHinge = "hinge"
)

const (
	DefaultAlpha  = 1e-4
	DefaultEpochs = 5

	minWeightScale = 1e-9
)

// Linear is a one-vs-rest linear model trained by stochastic gradient descent
// with L2 regularization and the "optimal" learning-rate schedule. Steps is
// the global sample counter that drives the schedule across partial fits.
type Linear struct {
	Classes    []string    `json:"classes"`
	Weights    [][]float64 `json:"weights"`
	Intercepts []float64   `json:"intercepts"`
	Loss       string      `json:"loss"`
	Alpha      float64     `json:"alpha"`
	Steps      int         `json:"steps"`
}

// Decision returns one raw score per class.
func (l *Linear) Decision(x SparseVector) []float64 {
	out := make([]float64, len(l.Classes))
	for c := range l.Classes {
		out[c] = dot(l.Weights[c], x) + l.Intercepts[c]
	}
	return out
}

// Probabilities converts decision scores into a distribution over classes.
// Log-loss models use normalized one-vs-rest sigmoids; hinge models use a
// softmax of the decision scores.
func (l *Linear) Probabilities(x SparseVector) []float64 {
	scores := l.Decision(x)
	if l.Loss != LossLog {
		return Softmax(scores)
	}
	var sum float64
	for i, s := range scores {
		scores[i] = sigmoid(s)
		sum += scores[i]
	}
	if sum == 0 {
		for i := range scores {
			scores[i] = 1 / float64(len(scores))
		}
		return scores
	}
	for i := range scores {
		scores[i] /= sum
	}
	return scores
}

// Softmax is the numerically stable softmax.
func Softmax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	maxScore := scores[0]
	for _, s := range scores[1:] {
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

// reshape returns a copy of l laid out for classes and dim features. Rows of
// known classes are carried over by name; new classes start at zero.
func (l *Linear) reshape(classes []string, dim int) *Linear {
	out := &Linear{
		Classes:    append([]string(nil), classes...),
		Weights:    make([][]float64, len(classes)),
		Intercepts: make([]float64, len(classes)),
		Loss:       l.Loss,
		Alpha:      l.Alpha,
		Steps:      l.Steps,
	}
	prev := make(map[string]int, len(l.Classes))
	for i, c := range l.Classes {
		prev[c] = i
	}
	for i, c := range classes {
		out.Weights[i] = make([]float64, dim)
		if j, ok := prev[c]; ok {
			copy(out.Weights[i], l.Weights[j])
			out.Intercepts[i] = l.Intercepts[j]
		}
	}
	return out
}

// fit runs epochs passes of SGD over xs in order, updating l in place. l must
// be a private copy.
func (l *Linear) fit(xs []SparseVector, labels []string, epochs int) {
	if len(xs) == 0 || len(l.Classes) == 0 {
		return
	}
	alpha := l.Alpha
	if alpha <= 0 {
		alpha = DefaultAlpha
		l.Alpha = alpha
	}
	dloss := lossGradient(l.Loss)

	typw := math.Sqrt(1 / math.Sqrt(alpha))
	eta0 := typw / math.Max(1, math.Abs(dloss(-typw, 1)))
	optimalInit := 1 / (eta0 * alpha)

	for c, class := range l.Classes {
		w := l.Weights[c]
		scale := 1.0
		b := l.Intercepts[c]
		t := l.Steps
		for e := 0; e < epochs; e++ {
			for i, x := range xs {
				t++
				y := -1.0
				if labels[i] == class {
					y = 1
				}
				eta := 1 / (alpha * (optimalInit + float64(t) - 1))
				p := scale*dot(w, x) + b
				d := dloss(p, y)

				scale *= 1 - eta*alpha
				if d != 0 {
					step := -eta * d
					for k, idx := range x.Indices {
						w[idx] += step * x.Values[k] / scale
					}
					b += step
				}
				if scale < minWeightScale {
					rescale(w, scale)
					scale = 1
				}
			}
		}
		rescale(w, scale)
		l.Intercepts[c] = b
	}
	l.Steps += epochs * len(xs)
}

func lossGradient(loss string) func(p, y float64) float64 {
	if loss == LossHinge {
		return func(p, y float64) float64 {
			if p*y <= 1 {
				return -y
			}
			return 0
		}
	}
	return func(p, y float64) float64 {
		z := p * y
		switch {
		case z > 18:
			return -y * math.Exp(-z)
		case z < -18:
			return -y
		default:
			return -y / (math.Exp(z) + 1)
		}
	}
}

func rescale(w []float64, scale float64) {
	if scale == 1 {
		return
	}
	for i := range w {
		w[i] *= scale
	}
}

func dot(w []float64, x SparseVector) float64 {
	var s float64
	for k, idx := range x.Indices {
		if idx < len(w) {
			s += w[idx] * x.Values[k]
		}
	}
	return s
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
