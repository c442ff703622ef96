package detect

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	ort "github.com/yalue/onnxruntime_go"
)

const yoloInputSize = 640

// YOLOOpts configures a local ONNX detector.
type YOLOOpts struct {
	ModelPath string
	// ClassNames maps model output indices to detector-native labels.
	ClassNames []string
	// ConfidenceThreshold below which candidate boxes are dropped.
	// Defaults to 0.25.
	ConfidenceThreshold float64
	// NMSThreshold is the IoU threshold used for non-maximum suppression
	// of the raw model output. Defaults to DefaultIoUThreshold.
	NMSThreshold float64
}

// YOLODetector runs a YOLO detection model locally through onnxruntime.
// The session and its tensors are reused across calls; Run is serialized
// with a mutex because the tensors are shared state.
type YOLODetector struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]

	classNames          []string
	confidenceThreshold float64
	nmsThreshold        float64
	numBoxes            int

	mu sync.Mutex
}

// LoadYOLO initializes the ONNX runtime and creates an inference session
// for the model at opts.ModelPath. Returns ErrModelUnavailable (wrapped)
// when the model file is missing.
func LoadYOLO(opts YOLOOpts) (*YOLODetector, error) {
	if opts.ModelPath == "" {
		return nil, fmt.Errorf("model path is empty: %w", ErrModelUnavailable)
	}
	if _, err := os.Stat(opts.ModelPath); err != nil {
		return nil, fmt.Errorf("model file missing at %s: %w", opts.ModelPath, ErrModelUnavailable)
	}
	if len(opts.ClassNames) == 0 {
		return nil, fmt.Errorf("class names are required")
	}
	if opts.ConfidenceThreshold <= 0 {
		opts.ConfidenceThreshold = 0.25
	}
	if opts.NMSThreshold <= 0 {
		opts.NMSThreshold = DefaultIoUThreshold
	}

	libPath := resolveSharedLibraryPath(filepath.Dir(opts.ModelPath))
	if libPath == "" {
		return nil, fmt.Errorf("onnxruntime shared library not found; set ONNXRUNTIME_SHARED_LIBRARY_PATH or install the runtime")
	}
	ort.SetSharedLibraryPath(libPath)
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("initialize onnxruntime: %w", err)
		}
	}

	// YOLO head output is (1, 4+numClasses, numBoxes) where numBoxes is the
	// sum of anchor cells over the 8/16/32 strides of the input size.
	numBoxes := 0
	for _, stride := range []int{8, 16, 32} {
		cells := yoloInputSize / stride
		numBoxes += cells * cells
	}

	input, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, yoloInputSize, yoloInputSize))
	if err != nil {
		return nil, fmt.Errorf("allocate input tensor: %w", err)
	}
	output, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(4+len(opts.ClassNames)), int64(numBoxes)))
	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("allocate output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(
		opts.ModelPath,
		[]string{"images"},
		[]string{"output0"},
		[]ort.Value{input},
		[]ort.Value{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("create onnx session: %w", err)
	}

	log.Info().
		Str("model", opts.ModelPath).
		Int("classes", len(opts.ClassNames)).
		Msg("yolo model loaded")

	return &YOLODetector{
		session:             session,
		input:               input,
		output:              output,
		classNames:          opts.ClassNames,
		confidenceThreshold: opts.ConfidenceThreshold,
		nmsThreshold:        opts.NMSThreshold,
		numBoxes:            numBoxes,
	}, nil
}

// Detect implements the Detector interface with local inference.
func (d *YOLODetector) Detect(ctx context.Context, imageData []byte) ([]Detection, error) {
	if d == nil || d.session == nil {
		return nil, ErrModelUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	scale, padX, padY := letterbox(img, d.input.GetData())
	if err := d.session.Run(); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}

	detections := d.decodeOutput(img.Bounds().Dx(), img.Bounds().Dy(), scale, padX, padY)
	return Suppress(detections, d.nmsThreshold), nil
}

// Close releases the ONNX session and tensors.
func (d *YOLODetector) Close() {
	if d == nil {
		return
	}
	if d.session != nil {
		d.session.Destroy()
		d.session = nil
	}
	if d.input != nil {
		d.input.Destroy()
		d.input = nil
	}
	if d.output != nil {
		d.output.Destroy()
		d.output = nil
	}
}

// letterbox scales the image to fit the square model input while keeping
// aspect ratio, pads the rest with neutral gray, and writes normalized CHW
// pixels into dst. Returns the scale factor and padding offsets needed to
// map model coordinates back to the original image.
func letterbox(img image.Image, dst []float32) (scale, padX, padY float64) {
	bounds := img.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()

	scale = min(float64(yoloInputSize)/float64(w), float64(yoloInputSize)/float64(h))
	scaledW := int(float64(w) * scale)
	scaledH := int(float64(h) * scale)
	padX = float64(yoloInputSize-scaledW) / 2
	padY = float64(yoloInputSize-scaledH) / 2

	const gray = 114.0 / 255.0
	for i := range dst {
		dst[i] = gray
	}

	plane := yoloInputSize * yoloInputSize
	for y := 0; y < scaledH; y++ {
		srcY := bounds.Min.Y + int(float64(y)/scale)
		dy := y + int(padY)
		for x := 0; x < scaledW; x++ {
			srcX := bounds.Min.X + int(float64(x)/scale)
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			idx := dy*yoloInputSize + x + int(padX)
			dst[idx] = float32(r) / 65535
			dst[plane+idx] = float32(g) / 65535
			dst[2*plane+idx] = float32(b) / 65535
		}
	}
	return scale, padX, padY
}

// decodeOutput converts the raw (4+numClasses, numBoxes) output into
// detections in original-image coordinates.
func (d *YOLODetector) decodeOutput(imgW, imgH int, scale, padX, padY float64) []Detection {
	raw := d.output.GetData()
	var detections []Detection

	for j := 0; j < d.numBoxes; j++ {
		bestClass := -1
		bestScore := float32(0)
		for c := range d.classNames {
			score := raw[(4+c)*d.numBoxes+j]
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		if bestClass < 0 || float64(bestScore) < d.confidenceThreshold {
			continue
		}

		cx := float64(raw[0*d.numBoxes+j])
		cy := float64(raw[1*d.numBoxes+j])
		bw := float64(raw[2*d.numBoxes+j])
		bh := float64(raw[3*d.numBoxes+j])

		box := BBox{
			X1: clamp((cx-bw/2-padX)/scale, 0, float64(imgW)),
			Y1: clamp((cy-bh/2-padY)/scale, 0, float64(imgH)),
			X2: clamp((cx+bw/2-padX)/scale, 0, float64(imgW)),
			Y2: clamp((cy+bh/2-padY)/scale, 0, float64(imgH)),
		}
		if box.Area() == 0 {
			continue
		}
		detections = append(detections, NewDetection(d.classNames[bestClass], float64(bestScore), box))
	}
	return detections
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// resolveSharedLibraryPath locates a platform-specific onnxruntime shared
// library. ONNXRUNTIME_SHARED_LIBRARY_PATH wins when set; otherwise common
// names and locations are probed.
func resolveSharedLibraryPath(modelDir string) string {
	if env := strings.TrimSpace(os.Getenv("ONNXRUNTIME_SHARED_LIBRARY_PATH")); env != "" {
		return env
	}

	names := []string{
		"libonnxruntime.dylib",
		"onnxruntime.dylib",
		"libonnxruntime.so",
		"onnxruntime.so",
		"onnxruntime.dll",
	}
	dirs := []string{
		modelDir,
		filepath.Join(modelDir, "lib"),
		".",
		"/opt/homebrew/lib",
		"/usr/local/lib",
		"/usr/lib",
	}

	for _, dir := range dirs {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
	}
	return ""
}
