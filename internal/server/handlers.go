package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ironsheep/twostop/internal/imaging"
	"github.com/ironsheep/twostop/internal/pipeline"
	"github.com/ironsheep/twostop/internal/preview"
	"github.com/ironsheep/twostop/internal/rawio"
	"github.com/ironsheep/twostop/internal/sink"
	"github.com/ironsheep/twostop/internal/source"
	"github.com/ironsheep/twostop/internal/twostop"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "twostop_process").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.log.Warn().Str("tool", params.Name).Err(err).Msg("Tool failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches a tool call to its handler.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)
	case "image_crop":
		return s.handleImageCrop(args)

	case "twostop_process":
		return s.handleTwoStopProcess(ctx, args)
	case "twostop_sample":
		return s.handleTwoStopSample(ctx, args)

	case "image_histogram":
		return s.handleImageHistogram(ctx, args)
	case "image_preview":
		return s.handleImagePreview(ctx, args)
	case "image_compare":
		return s.handleImageCompare(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// loadBuffer returns the 16-bit source at path. Raw dumps are read
// directly; image files go through the cache.
// exposureShift returns the requested gain, or the configured one when the
// argument is absent.
func (s *Server) exposureShift(arg *float64) (float64, error) {
	if arg == nil {
		return s.cfg.ExposureShift, nil
	}
	if *arg <= 0 {
		return 0, fmt.Errorf("exp_shift must be greater than 0, got %g", *arg)
	}
	return *arg, nil
}

func (s *Server) loadBuffer(ctx context.Context, path string, exposureShift float64) (*twostop.PixelBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var buf *twostop.PixelBuffer
	if rawio.IsDump(path) {
		b, err := rawio.Read(path)
		if err != nil {
			return nil, err
		}
		buf = b
	} else {
		img, err := s.cache.Load(path)
		if err != nil {
			return nil, err
		}
		buf = imaging.FromImage(img)
	}
	if buf.Depth != twostop.Depth16 {
		return buf, nil
	}
	return source.ApplyExposureShift(buf, exposureShift), nil
}

// === Image information ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

type imageCropArgs struct {
	Path string `json:"path"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
	X2   int    `json:"x2"`
	Y2   int    `json:"y2"`
	Zoom int    `json:"zoom"`
}

func (s *Server) handleImageCrop(args json.RawMessage) (interface{}, error) {
	var a imageCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Zoom == 0 {
		a.Zoom = 1
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.Crop(img, a.X1, a.Y1, a.X2, a.Y2, a.Zoom)
}

// === Processing ===

type twoStopProcessArgs struct {
	Path      string   `json:"path"`
	OutputDir string   `json:"output_dir"`
	Format    string   `json:"format"`
	Quality   int      `json:"quality"`
	ExpShift  *float64 `json:"exp_shift"`
}

func (s *Server) handleTwoStopProcess(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a twoStopProcessArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("path is required")
	}

	out := s.cfg.Output
	if a.OutputDir != "" {
		out.Dir = a.OutputDir
	}
	if a.Format != "" {
		if !sink.ValidFormat(a.Format) {
			return nil, fmt.Errorf("unsupported output format %q", a.Format)
		}
		out.Format = a.Format
	}
	if a.Quality != 0 {
		out.Quality = a.Quality
	}
	shift, err := s.exposureShift(a.ExpShift)
	if err != nil {
		return nil, err
	}

	driver := pipeline.New(
		source.NewMux(shift),
		sink.FileSink{Dir: out.Dir, Format: out.Format, Quality: out.Quality, Suffix: out.Suffix},
		pipeline.Options{Workers: s.cfg.Workers},
		s.log.With().Str("tool", "twostop_process").Logger(),
		s.metrics,
	)
	result, err := driver.ProcessOne(ctx, a.Path)
	if err != nil {
		return nil, err
	}
	if result.Location != "" {
		// A previous run may have cached the file we just overwrote.
		s.cache.Evict(result.Location)
	}
	return result, nil
}

type twoStopSampleArgs struct {
	Path   string `json:"path"`
	Points []struct {
		X     int    `json:"x"`
		Y     int    `json:"y"`
		Label string `json:"label,omitempty"`
	} `json:"points"`
	ExpShift *float64 `json:"exp_shift"`
}

// TwoStopSampleResult lists sampled output pixels in request order.
type TwoStopSampleResult struct {
	Samples []imaging.BlockSample `json:"samples"`
}

func (s *Server) handleTwoStopSample(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a twoStopSampleArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Points) == 0 {
		return nil, fmt.Errorf("at least one point is required")
	}
	shift, err := s.exposureShift(a.ExpShift)
	if err != nil {
		return nil, err
	}

	buf, err := s.loadBuffer(ctx, a.Path, shift)
	if err != nil {
		return nil, err
	}

	points := make([]imaging.LabeledPoint, len(a.Points))
	for i, p := range a.Points {
		points[i] = imaging.LabeledPoint{X: p.X, Y: p.Y, Label: p.Label}
	}
	samples, err := imaging.SampleBlocks(buf, points)
	if err != nil {
		return nil, err
	}
	return &TwoStopSampleResult{Samples: samples}, nil
}

// === Inspection ===

type imageHistogramArgs struct {
	Path        string `json:"path"`
	IncludeBins bool   `json:"include_bins"`
}

func (s *Server) handleImageHistogram(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageHistogramArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	buf, err := s.loadBuffer(ctx, a.Path, 0)
	if err != nil {
		return nil, err
	}
	return preview.Histogram(buf, a.IncludeBins)
}

// Preview modes.
const (
	modeTwoStop = "twostop"
	modeBypass  = "bypass"
)

type imagePreviewArgs struct {
	Path      string   `json:"path"`
	Mode      string   `json:"mode"`
	MaxWidth  int      `json:"max_width"`
	MaxHeight int      `json:"max_height"`
	ExpShift  *float64 `json:"exp_shift"`
}

// ImagePreviewResult is a downscaled PNG rendition of a source.
type ImagePreviewResult struct {
	Mode        string `json:"mode"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handleImagePreview(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imagePreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Mode == "" {
		a.Mode = modeTwoStop
	}
	if a.MaxWidth == 0 {
		a.MaxWidth = 1024
	}
	if a.MaxHeight == 0 {
		a.MaxHeight = 1024
	}
	shift, err := s.exposureShift(a.ExpShift)
	if err != nil {
		return nil, err
	}

	buf, err := s.loadBuffer(ctx, a.Path, shift)
	if err != nil {
		return nil, err
	}

	switch a.Mode {
	case modeTwoStop:
		buf, err = twostop.TransformParallel(buf, s.cfg.Workers)
	case modeBypass:
		buf, err = twostop.Narrow(buf)
	default:
		return nil, fmt.Errorf("unknown preview mode %q (want %s or %s)", a.Mode, modeTwoStop, modeBypass)
	}
	if err != nil {
		return nil, err
	}

	img, err := preview.Fit(buf, a.MaxWidth, a.MaxHeight)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNGBase64(img)
	if err != nil {
		return nil, err
	}
	return &ImagePreviewResult{
		Mode:        a.Mode,
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

type imageCompareArgs struct {
	Path     string   `json:"path"`
	ExpShift *float64 `json:"exp_shift"`
}

// ImageCompareResult pairs the bypass and two-stop renditions of a source.
type ImageCompareResult struct {
	*preview.CompareResult
	ImageBase64 string `json:"image_base64"`
	MimeType    string `json:"mime_type"`
}

func (s *Server) handleImageCompare(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageCompareArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	shift, err := s.exposureShift(a.ExpShift)
	if err != nil {
		return nil, err
	}

	before, err := s.loadBuffer(ctx, a.Path, 0)
	if err != nil {
		return nil, err
	}
	after, err := twostop.TransformParallel(source.ApplyExposureShift(before, shift), s.cfg.Workers)
	if err != nil {
		return nil, err
	}

	res, err := preview.Compare(before, after)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodePNGBase64(res.Composite)
	if err != nil {
		return nil, err
	}
	return &ImageCompareResult{
		CompareResult: res,
		ImageBase64:   encoded,
		MimeType:      "image/png",
	}, nil
}
