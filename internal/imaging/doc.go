// Package imaging bridges Go's image types and twostop pixel buffers.
//
// It decodes source files (PNG, TIFF, JPEG, GIF), converts decoded images to
// 16-bit twostop.PixelBuffer values and converts 8-bit or 16-bit buffers back
// to standard image types for encoding or display. It also provides a small
// set of inspection helpers used by the MCP server.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner:
//   - X increases to the right
//   - Y increases downward
//   - For regions, (x1,y1) is inclusive and (x2,y2) is exclusive
//
// # Sample Conversion
//
// Decoded images are always converted to 16 bits per channel. 8-bit sources
// are widened with the standard color.Color expansion (v * 0x101), so an
// 8-bit white (255) becomes 65535. Alpha is discarded; non-opaque pixels are
// un-premultiplied first.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Conversion helpers are
// stateless and never mutate their inputs.
package imaging
