// Package reportserver exposes the transcript engine as MCP tools:
// video_transcript and credential_status.
package reportserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers all transcript-related tools on the given MCP server.
func RegisterTools(server *mcp.Server) {
	registerVideoTranscript(server)
	registerCredentialStatus(server)
}
