// Package classifier loads a trained cat classifier artifact and runs
// inference on camera frames. Training happens offline; the model is a
// fixed artifact loaded once at start-up.
package classifier

import (
	"errors"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/mat"
)

// ErrModelUnavailable is returned when no trained artifact can be loaded.
// Identification is disabled gracefully in that case.
var ErrModelUnavailable = errors.New("classifier model not available")

// Activation function names accepted in model artifacts.
const (
	ActivationReLU    = "relu"
	ActivationSoftmax = "softmax"
)

// modelArtifact is the msgpack wire format of a trained model: a stack of
// dense layers applied to a flattened grayscale frame.
type modelArtifact struct {
	InputSize int         `msgpack:"input_size"`
	Labels    []string    `msgpack:"labels,omitempty"`
	Layers    []LayerSpec `msgpack:"layers"`
}

// LayerSpec describes one dense layer of a model artifact.
type LayerSpec struct {
	Rows       int       `msgpack:"rows"`    // output units
	Cols       int       `msgpack:"cols"`    // input units
	Weights    []float64 `msgpack:"weights"` // row-major
	Bias       []float64 `msgpack:"bias"`
	Activation string    `msgpack:"activation"`
}

type layer struct {
	weights    *mat.Dense
	bias       *mat.VecDense
	activation string
}

// Model is a loaded classifier ready for inference.
type Model struct {
	inputSize int
	labels    []string
	layers    []layer
}

// Load reads a model artifact from disk. A missing file yields
// ErrModelUnavailable so callers can disable identification instead of
// failing start-up.
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, path)
		}
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	return LoadBytes(data)
}

// LoadBytes decodes and validates a msgpack model artifact.
func LoadBytes(data []byte) (*Model, error) {
	var artifact modelArtifact
	if err := msgpack.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}

	if artifact.InputSize <= 0 {
		return nil, fmt.Errorf("model artifact has invalid input size %d", artifact.InputSize)
	}
	if len(artifact.Layers) == 0 {
		return nil, fmt.Errorf("model artifact has no layers")
	}

	m := &Model{
		inputSize: artifact.InputSize,
		labels:    artifact.Labels,
	}

	expectedInputs := artifact.InputSize * artifact.InputSize
	for i, la := range artifact.Layers {
		if la.Cols != expectedInputs {
			return nil, fmt.Errorf("layer %d expects %d inputs, previous layer produces %d", i, la.Cols, expectedInputs)
		}
		if len(la.Weights) != la.Rows*la.Cols {
			return nil, fmt.Errorf("layer %d has %d weights, want %d", i, len(la.Weights), la.Rows*la.Cols)
		}
		if len(la.Bias) != la.Rows {
			return nil, fmt.Errorf("layer %d has %d biases, want %d", i, len(la.Bias), la.Rows)
		}
		m.layers = append(m.layers, layer{
			weights:    mat.NewDense(la.Rows, la.Cols, la.Weights),
			bias:       mat.NewVecDense(la.Rows, la.Bias),
			activation: la.Activation,
		})
		expectedInputs = la.Rows
	}

	return m, nil
}

// Classes returns the number of known cat classes.
func (m *Model) Classes() int {
	last := m.layers[len(m.layers)-1]
	r, _ := last.weights.Dims()
	return r
}

// Label returns the stored label for a class index, if the artifact
// carries labels.
func (m *Model) Label(class int) string {
	if class >= 0 && class < len(m.labels) {
		return m.labels[class]
	}
	return ""
}

// Classify runs one frame through the network and returns the arg-max
// class with its softmax probability as the confidence.
func (m *Model) Classify(frame image.Image) (int, float64, error) {
	if frame == nil {
		return 0, 0, fmt.Errorf("nil frame")
	}

	x := m.preprocess(frame)

	for _, l := range m.layers {
		rows, _ := l.weights.Dims()
		y := mat.NewVecDense(rows, nil)
		y.MulVec(l.weights, x)
		y.AddVec(y, l.bias)

		if l.activation == ActivationReLU {
			for i := 0; i < rows; i++ {
				if y.AtVec(i) < 0 {
					y.SetVec(i, 0)
				}
			}
		}
		x = y
	}

	probs := softmax(x)
	class := 0
	best := probs[0]
	for i, p := range probs {
		if p > best {
			class = i
			best = p
		}
	}
	return class, best, nil
}

// preprocess resizes the frame to the model's square input, converts it to
// grayscale, and normalizes pixels to [0, 1].
func (m *Model) preprocess(frame image.Image) *mat.VecDense {
	scaled := image.NewGray(image.Rect(0, 0, m.inputSize, m.inputSize))
	draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)

	data := make([]float64, m.inputSize*m.inputSize)
	for i, p := range scaled.Pix {
		data[i] = float64(p) / 255.0
	}
	return mat.NewVecDense(len(data), data)
}

// softmax converts the final layer's logits into a probability
// distribution, shifting by the max logit for numerical stability.
func softmax(v *mat.VecDense) []float64 {
	n := v.Len()
	maxLogit := math.Inf(-1)
	for i := 0; i < n; i++ {
		if v.AtVec(i) > maxLogit {
			maxLogit = v.AtVec(i)
		}
	}

	probs := make([]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		probs[i] = math.Exp(v.AtVec(i) - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Marshal encodes a model artifact; used by the offline training export
// and by tests.
func Marshal(inputSize int, labels []string, layers []LayerSpec) ([]byte, error) {
	return msgpack.Marshal(modelArtifact{InputSize: inputSize, Labels: labels, Layers: layers})
}
