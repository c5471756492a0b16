// Package toolserver exposes video resolution and teaching-video analysis as
// MCP tools.
package toolserver

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterTools registers youtube_video_resolve and teaching_video_analyze
// on the given MCP server.
func RegisterTools(server *mcp.Server) {
	registerVideoResolve(server)
	registerTeachingVideoAnalyze(server)
}
