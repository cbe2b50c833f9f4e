package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to a PNG, TIFF, JPEG or GIF file, or a .rgb16 sample dump (optionally .rgb16.zst)",
	}
}

func expShiftProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "number",
		"description": "Linear exposure gain applied to the 16-bit source before processing. Default from configuration (1.0)",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Image information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, bit depth and the size of its two-stop rendition.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_crop",
			Description: "Crop a rectangular region from an image and return it as base64-encoded PNG, magnified with nearest-neighbour sampling.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"zoom": map[string]interface{}{
						"type":        "integer",
						"description": "Integer magnification factor. Default 1",
						"default":     1,
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Processing
		{
			Name:        "twostop_process",
			Description: "Run the two-stop pipeline on one source: 2x2 downsample-average of the 16-bit image into an 8-bit image at half size, written to the output directory.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the result. Default from configuration",
					},
					"format": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"png", "jpeg", "tiff", "bmp", "gif", "raw", "raw.zst"},
						"description": "Output format. Default png",
					},
					"quality": map[string]interface{}{
						"type":        "integer",
						"description": "JPEG quality 1-100. Default 95",
					},
					"exp_shift": expShiftProperty(),
				},
				"required": []string{"path"},
			},
		},

		{
			Name:        "twostop_sample",
			Description: "Explain individual two-stop output pixels: the four 16-bit source samples of each 2x2 block, their channel sums, whether the result clamped, and the 8-bit output color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type": "object",
							"properties": map[string]interface{}{
								"x":     map[string]interface{}{"type": "integer"},
								"y":     map[string]interface{}{"type": "integer"},
								"label": map[string]interface{}{"type": "string"},
							},
							"required": []string{"x", "y"},
						},
						"description": "Output pixel coordinates to explain",
					},
					"exp_shift": expShiftProperty(),
				},
				"required": []string{"path", "points"},
			},
		},

		// Inspection
		{
			Name:        "image_histogram",
			Description: "Per-channel 8-bit histogram statistics (levels, mean, clipped and crushed share). 16-bit sources are narrowed first.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"include_bins": map[string]interface{}{
						"type":        "boolean",
						"description": "Include the 256 raw bin counts per channel (default false)",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_preview",
			Description: "Render a downscaled PNG of a source, either through the two-stop transform or by plain 16-to-8-bit narrowing (bypass).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"twostop", "bypass"},
						"description": "Rendering path. Default twostop",
						"default":     "twostop",
					},
					"max_width": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum preview width (default 1024)",
						"default":     1024,
					},
					"max_height": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum preview height (default 1024)",
						"default":     1024,
					},
					"exp_shift": expShiftProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_compare",
			Description: "Compare the bypass rendition of a source with its two-stop rendition: side-by-side PNG, mean CIEDE2000 difference, lightness and the gain in stops.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":      pathProperty(),
					"exp_shift": expShiftProperty(),
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
