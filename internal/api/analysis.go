package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rb-om1999/ensofinal/internal/domain"
)

// ImageRequest is an upload-mode analysis. The image is already base64 encoded.
type ImageRequest struct {
	ImageBase64  string              `json:"imageBase64"`
	Symbol       string              `json:"symbol"`
	Timeframe    domain.Timeframe    `json:"timeframe"`
	TradingStyle domain.TradingStyle `json:"tradingStyle,omitempty"`
	RiskProfile  domain.RiskProfile  `json:"riskProfile,omitempty"`
	Balance      string              `json:"balance,omitempty"`
}

// ChartRequest identifies a provider chart for capture or link analysis.
type ChartRequest struct {
	ChartURL     string              `json:"chartUrl"`
	Symbol       string              `json:"symbol"`
	Timeframe    domain.Timeframe    `json:"timeframe"`
	TradingStyle domain.TradingStyle `json:"tradingStyle,omitempty"`
}

// Analyze submits an uploaded chart image.
func (c *Client) Analyze(ctx context.Context, tokens TokenSource, req ImageRequest) (domain.Analysis, error) {
	return c.analysis(ctx, call{
		method:   http.MethodPost,
		path:     "/analyze",
		tokens:   tokens,
		body:     req,
		fallback: "Analysis failed. Please try again.",
	})
}

// AnalyzeChartLink analyses a previously captured provider chart.
func (c *Client) AnalyzeChartLink(ctx context.Context, tokens TokenSource, req ChartRequest) (domain.Analysis, error) {
	return c.analysis(ctx, call{
		method:   http.MethodPost,
		path:     "/analyze-chart-link",
		tokens:   tokens,
		body:     req,
		fallback: "Analysis failed. Please try again.",
	})
}

func (c *Client) analysis(ctx context.Context, req call) (domain.Analysis, error) {
	var out analysisWire
	if err := c.doJSON(ctx, req, &out); err != nil {
		return domain.Analysis{}, err
	}
	return out.toAnalysis(), nil
}

// CaptureChart asks the backend to screenshot a provider chart.
func (c *Client) CaptureChart(ctx context.Context, tokens TokenSource, req ChartRequest) (domain.ScreenshotPreview, error) {
	var out captureWire
	err := c.doJSON(ctx, call{
		method:   http.MethodPost,
		path:     "/capture-chart",
		tokens:   tokens,
		body:     req,
		fallback: "Failed to capture chart screenshot",
	}, &out)
	if err != nil {
		return domain.ScreenshotPreview{}, err
	}
	preview := out.toPreview(req)
	if preview.ScreenshotBase64 == "" {
		return domain.ScreenshotPreview{}, &Error{Kind: KindBackend, Status: http.StatusOK, Message: "Failed to capture chart screenshot"}
	}
	return preview, nil
}

// Analyses lists the user's past analyses, newest first as served.
func (c *Client) Analyses(ctx context.Context, tokens TokenSource) ([]domain.HistoryEntry, error) {
	raw, err := c.do(ctx, call{
		method:   http.MethodGet,
		path:     "/analyses",
		tokens:   tokens,
		fallback: "Failed to fetch analyses",
	})
	if err != nil {
		return nil, err
	}
	var list []historyWire
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("api: decode analyses: %w", err)
	}
	entries := make([]domain.HistoryEntry, 0, len(list))
	for _, item := range list {
		entries = append(entries, item.toEntry())
	}
	return entries, nil
}
