// Package service runs the operator MCP server over stdio or streamable HTTP
// and registers the pipeline tools with it.
package service
