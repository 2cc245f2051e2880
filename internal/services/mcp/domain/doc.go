// Package domain defines the operator tools exposed over MCP: their input
// and result shapes and the handlers that call into the pipeline.
package domain
