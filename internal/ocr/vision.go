package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	_ "image/jpeg" // register decoders for DecodeConfig
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/menu-cli/internal/fuzzy"
	"github.com/sells-group/menu-cli/internal/model"
	"github.com/sells-group/menu-cli/internal/resilience"
)

const defaultVisionEndpoint = "https://vision.googleapis.com"

// Vision detects words with the Google Cloud Vision TEXT_DETECTION feature.
type Vision struct {
	apiKey   string
	endpoint string
	client   *http.Client
	retry    resilience.RetryConfig
}

// NewVision creates a Vision client. An empty endpoint uses the public API.
func NewVision(apiKey, endpoint string, retry resilience.RetryConfig) *Vision {
	if endpoint == "" {
		endpoint = defaultVisionEndpoint
	}
	return &Vision{
		apiKey:   apiKey,
		endpoint: strings.TrimRight(endpoint, "/"),
		client:   &http.Client{Timeout: 60 * time.Second},
		retry:    retry,
	}
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionResponse struct {
	Responses []visionAnnotateResponse `json:"responses"`
}

type visionAnnotateResponse struct {
	TextAnnotations    []visionEntity `json:"textAnnotations"`
	FullTextAnnotation *struct {
		Pages []struct {
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		} `json:"pages"`
	} `json:"fullTextAnnotation"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type visionEntity struct {
	Description  string `json:"description"`
	BoundingPoly struct {
		Vertices []visionVertex `json:"vertices"`
	} `json:"boundingPoly"`
}

// visionVertex coordinates are omitted from the JSON when zero.
type visionVertex struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DetectWords annotates img and returns its word tokens in reading order.
// The first annotation (the whole text block) is skipped.
func (v *Vision) DetectWords(ctx context.Context, img model.Image) ([]model.WordToken, error) {
	cfg := v.retry
	cfg.OnRetry = resilience.RetryLogger("vision", "annotate")
	resp, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*visionAnnotateResponse, error) {
		return v.annotate(ctx, img.Data)
	})
	if err != nil {
		return nil, err
	}

	width, height := imageSize(img.Data, resp)
	if len(resp.TextAnnotations) <= 1 || width <= 0 || height <= 0 {
		return nil, nil
	}

	words := make([]model.WordToken, 0, len(resp.TextAnnotations)-1)
	for _, ann := range resp.TextAnnotations[1:] {
		text := strings.TrimSpace(ann.Description)
		if text == "" || len(ann.BoundingPoly.Vertices) == 0 {
			continue
		}
		words = append(words, model.WordToken{
			Text:           text,
			NormalizedText: fuzzy.NormalizeWord(text),
			Box:            normalizeBox(ann.BoundingPoly.Vertices, width, height),
		})
	}

	zap.L().Debug("ocr: detected words",
		zap.Int("words", len(words)),
		zap.Float64("width", width),
		zap.Float64("height", height),
	)
	return words, nil
}

func (v *Vision) annotate(ctx context.Context, data []byte) (*visionAnnotateResponse, error) {
	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(data)},
		Features: []visionFeature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return nil, eris.Wrap(err, "ocr: marshal vision request")
	}

	url := v.endpoint + "/v1/images:annotate?key=" + v.apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create vision request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "ocr: vision API call"), 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ocr: read vision response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("ocr: vision API returned %d: %s", resp.StatusCode, string(respBody))
		return nil, resilience.WrapHTTPStatus(err, resp.StatusCode, retryAfter(resp.Header))
	}

	var out visionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, eris.Wrap(err, "ocr: unmarshal vision response")
	}
	if len(out.Responses) == 0 {
		return &visionAnnotateResponse{}, nil
	}
	r := out.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, eris.Errorf("ocr: vision annotate error %d: %s", r.Error.Code, r.Error.Message)
	}
	return &r, nil
}

// imageSize prefers the decoded image header, then the page size Vision
// reports, then the furthest vertex seen.
func imageSize(data []byte, resp *visionAnnotateResponse) (float64, float64) {
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil && cfg.Width > 0 && cfg.Height > 0 {
		return float64(cfg.Width), float64(cfg.Height)
	}
	if resp.FullTextAnnotation != nil && len(resp.FullTextAnnotation.Pages) > 0 {
		p := resp.FullTextAnnotation.Pages[0]
		if p.Width > 0 && p.Height > 0 {
			return p.Width, p.Height
		}
	}
	var w, h float64
	for _, ann := range resp.TextAnnotations {
		for _, vx := range ann.BoundingPoly.Vertices {
			w = max(w, vx.X)
			h = max(h, vx.Y)
		}
	}
	return w, h
}

// normalizeBox converts pixel vertices to an axis-aligned box in the
// normalized coordinate space.
func normalizeBox(vertices []visionVertex, width, height float64) model.BoundingBox {
	minX, minY := vertices[0].X, vertices[0].Y
	maxX, maxY := minX, minY
	for _, vx := range vertices[1:] {
		minX = min(minX, vx.X)
		minY = min(minY, vx.Y)
		maxX = max(maxX, vx.X)
		maxY = max(maxY, vx.Y)
	}
	scale := func(v, extent float64) float64 {
		return max(0, min(model.CoordinateSpace, v/extent*model.CoordinateSpace))
	}
	return model.BoundingBox{
		X:  scale(minX, width),
		Y:  scale(minY, height),
		X2: scale(maxX, width),
		Y2: scale(maxY, height),
	}
}

// retryAfter reads a delay-seconds Retry-After header.
func retryAfter(h http.Header) time.Duration {
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
