// internal/oracle/doc.go

// Package oracle serves the planning endpoint the agent consults every
// cycle. It turns the agent's page observation into a prompt, asks a
// multimodal model for the next steps in JSON mode, and returns them.
package oracle
