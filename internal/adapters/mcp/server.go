package mcpadapter

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/manuscript-review/internal/core/ports"
)

const serverName = "manuscript-review"

func NewServer(version string, reviewer ports.ManuscriptReviewer, questioner ports.ManuscriptQuestioner) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Pass the full manuscript text to review_manuscript for a complete review, "+
			"or to ask_manuscript together with a question for a grounded answer."),
	)

	review := NewReviewTool(reviewer)
	s.AddTool(review.Definition(), review.Handle)

	ask := NewAskTool(questioner)
	s.AddTool(ask.Definition(), ask.Handle)

	return s
}
