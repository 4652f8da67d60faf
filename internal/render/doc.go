// Package render is the software rasterization backend used by the stroke
// store's render pipeline and by the PNG exporter.
//
// A Canvas maps a document-space AABB onto an RGBA pixel buffer at a given
// image scale. Paths are filled with golang.org/x/image/vector, text uses the
// fixed 7x13 face from golang.org/x/image/font/basicfont scaled to size, and
// bitmaps are resampled with golang.org/x/image/draw.
//
// Images produced by a Canvas are immutable once handed out: the render
// cache shares them between the live store, history snapshots and exports.
package render
