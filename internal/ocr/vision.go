package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/promo-tracker/internal/common"
)

type VisionConfig struct {
	APIKey   string
	Endpoint string // default https://vision.googleapis.com/v1/images:annotate
	Timeout  time.Duration
}

// Vision is the Google Cloud Vision TEXT_DETECTION backend over REST.
type Vision struct {
	cfg    VisionConfig
	http   *http.Client
	logger *slog.Logger
}

func NewVision(cfg VisionConfig, client *http.Client, logger *slog.Logger) *Vision {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://vision.googleapis.com/v1/images:annotate"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Vision{cfg: cfg, http: client, logger: logger}
}

func (v *Vision) Name() string { return "google-vision" }

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text string `json:"text"`
		} `json:"fullTextAnnotation"`
		TextAnnotations []struct {
			Description string `json:"description"`
		} `json:"textAnnotations"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (v *Vision) Recognize(ctx context.Context, image []byte) (string, error) {
	reqID := uuid.New().String()
	body := map[string]any{
		"requests": []map[string]any{{
			"image":    map[string]any{"content": base64.StdEncoding.EncodeToString(image)},
			"features": []map[string]any{{"type": "TEXT_DETECTION"}},
		}},
	}
	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode vision request: %w: %w", common.ErrPermanent, err)
	}

	endpoint := v.cfg.Endpoint + "?key=" + url.QueryEscape(v.cfg.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build vision request: %w: %w", common.ErrPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := v.http.Do(req)
	if err != nil {
		return "", Transient(fmt.Errorf("vision http: %w", err))
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			v.logger.Warn("ocr.vision.response_body_close_error", "req_id", reqID, "error", err)
		}
	}(resp.Body)
	raw, _ := io.ReadAll(resp.Body)

	v.logger.Debug("ocr.vision.response",
		"req_id", reqID,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", Transient(fmt.Errorf("vision status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusBadRequest:
		return "", Invalid(fmt.Errorf("vision status 400: %s", truncate(string(raw), 512)))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("vision status %d: %w", resp.StatusCode, common.ErrPermanent)
	case resp.StatusCode/100 != 2:
		return "", Transient(fmt.Errorf("vision status %d", resp.StatusCode))
	}

	var vr visionResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return "", Transient(fmt.Errorf("decode vision response: %w", err))
	}
	if len(vr.Responses) == 0 {
		return "", Transient(errors.New("vision returned no responses"))
	}
	r := vr.Responses[0]
	if r.Error != nil {
		// per-image errors use google.rpc codes: 3 = INVALID_ARGUMENT
		if r.Error.Code == 3 {
			return "", Invalid(fmt.Errorf("vision: %s", r.Error.Message))
		}
		return "", Transient(fmt.Errorf("vision code %d: %s", r.Error.Code, r.Error.Message))
	}
	if r.FullTextAnnotation != nil && r.FullTextAnnotation.Text != "" {
		return r.FullTextAnnotation.Text, nil
	}
	if len(r.TextAnnotations) > 0 {
		return r.TextAnnotations[0].Description, nil
	}
	// no text in the image is a valid, empty result
	return "", nil
}
