package classifier

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/sammysam254/aitraderke/internal/market"
	"github.com/sammysam254/aitraderke/internal/signal"
)

// The exported model consumes a lookback window of feature rows and emits
// class scores over {sell, hold, buy}.
const classCount = 3

var ortOnce sync.Once
var ortErr error

func initORT() error {
	ortOnce.Do(func() {
		libPath := "/usr/lib/libonnxruntime.so"
		if runtime.GOOS == "windows" {
			libPath = "onnxruntime.dll"
		} else if runtime.GOOS == "darwin" {
			libPath = "libonnxruntime.dylib"
		}
		ort.SetSharedLibraryPath(libPath)
		ortErr = ort.InitializeEnvironment()
	})
	return ortErr
}

// Model runs a trained ONNX network over sliding feature windows. The zero
// value is an untrained model: Predict fails with ErrUntrained until Load
// succeeds.
type Model struct {
	mu       sync.Mutex
	lookback int
	session  *ort.AdvancedSession
	input    *ort.Tensor[float32]
	output   *ort.Tensor[float32]
}

// NewModel returns an untrained model with the given lookback window.
func NewModel(lookback int) *Model {
	if lookback <= 0 {
		lookback = 60
	}
	return &Model{lookback: lookback}
}

// Load opens the model artifact and prepares an inference session.
func (m *Model) Load(path string) error {
	if err := initORT(); err != nil {
		return fmt.Errorf("init onnxruntime: %w", err)
	}

	inputShape := ort.NewShape(1, int64(m.lookback), FeatureCount)
	inputTensor, err := ort.NewTensor(inputShape, make([]float32, m.lookback*FeatureCount))
	if err != nil {
		return fmt.Errorf("create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, classCount))
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(path,
		[]string{"input"}, []string{"output"},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor}, nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return fmt.Errorf("create session: %w", err)
	}

	m.mu.Lock()
	m.session = session
	m.input = inputTensor
	m.output = outputTensor
	m.mu.Unlock()
	return nil
}

// Trained reports whether an inference session is available.
func (m *Model) Trained() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Predict slides the lookback window across the feature rows and classifies
// each trailing bar. The output is aligned so that prediction k belongs to
// bar Offset+k of the input window.
func (m *Model) Predict(ind *market.IndicatorSet) (Output, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Output{}, ErrUntrained
	}

	rows := Features(ind)
	if len(rows) < m.lookback {
		return Output{}, fmt.Errorf("predict: need at least %d bars of features, got %d", m.lookback, len(rows))
	}

	offset := m.lookback - 1
	count := len(rows) - offset
	out := Output{
		Offset:     offset,
		Directions: make([]signal.Direction, count),
		Confidence: make([]float64, count),
	}

	buf := m.input.GetData()
	for k := 0; k < count; k++ {
		flattenWindow(rows[k:k+m.lookback], buf)
		if err := m.session.Run(); err != nil {
			return Output{}, fmt.Errorf("inference failed: %w", err)
		}
		dir, conf := classify(m.output.GetData())
		out.Directions[k] = dir
		out.Confidence[k] = conf
	}
	return out, nil
}

// Close releases the session and its tensors.
func (m *Model) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		m.session.Destroy()
		m.session = nil
	}
	if m.input != nil {
		m.input.Destroy()
		m.input = nil
	}
	if m.output != nil {
		m.output.Destroy()
		m.output = nil
	}
}

func flattenWindow(rows [][]float32, dst []float32) {
	i := 0
	for _, row := range rows {
		for _, v := range row {
			dst[i] = v
			i++
		}
	}
}

// classify softmaxes the class scores and maps argmax to a direction.
// Confidence is the winning probability.
func classify(scores []float32) (signal.Direction, float64) {
	var max float32 = scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	var sum float64
	probs := make([]float64, len(scores))
	for i, s := range scores {
		probs[i] = math.Exp(float64(s - max))
		sum += probs[i]
	}
	best, bestProb := 0, 0.0
	for i, p := range probs {
		p /= sum
		if p > bestProb {
			best, bestProb = i, p
		}
	}
	switch best {
	case 0:
		return signal.Sell, bestProb
	case 2:
		return signal.Buy, bestProb
	default:
		return signal.None, bestProb
	}
}
