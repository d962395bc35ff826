// internal/guidance/doc.go

// Package guidance implements both ends of the on-screen guidance channel.
// The Client sends show/hide requests in physical screen pixels. The Server
// accepts them into a coalescing Queue that a RenderLoop drains into
// Renderers, one of which broadcasts spotlight frames to a kiosk overlay page
// over a websocket.
package guidance
