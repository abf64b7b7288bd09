package reportserver

import (
	"context"
	"fmt"
	"regexp"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cbeau79/YouTubeReports/internal/engine"
	"github.com/cbeau79/YouTubeReports/internal/engine/subtitles"
)

type VideoTranscriptInput struct {
	VideoID   string   `json:"video_id" jsonschema:"The 11-character video ID (not a URL)"`
	Languages []string `json:"languages,omitempty" jsonschema:"Ordered language preference, e.g. [\"en\",\"en-US\"] (default: server config)"`
}

type VideoTranscriptOutput struct {
	VideoID    string              `json:"video_id"`
	Available  bool                `json:"available"`
	Transcript string              `json:"transcript,omitempty"`
	Strategy   string              `json:"strategy,omitempty"`
	Attempts   []subtitles.Attempt `json:"attempts"`
}

// videoIDRe matches a bare platform video ID. URL parsing is the caller's job.
var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// maxTranscriptRunes caps tool output; transcripts of multi-hour videos can
// run to megabytes.
const maxTranscriptRunes = 400_000

func registerVideoTranscript(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "video_transcript",
		Description: "Fetch the spoken-text transcript of a YouTube video as clean prose (no timestamps or markup). Tries the first-party transcript service, authenticated and anonymous yt-dlp, a watch-page scrape, and the raw timedtext endpoint in order. Returns available=false when no transcript exists.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input VideoTranscriptInput) (*mcp.CallToolResult, VideoTranscriptOutput, error) {
		if !videoIDRe.MatchString(input.VideoID) {
			return nil, VideoTranscriptOutput{}, fmt.Errorf("video_id must be an 11-character video ID, got %q", input.VideoID)
		}

		transcript, trail := subtitles.FetchTranscript(ctx, subtitles.Request{
			VideoID:   input.VideoID,
			Languages: input.Languages,
		})

		out := VideoTranscriptOutput{VideoID: input.VideoID, Attempts: trail}
		if transcript != nil {
			out.Available = true
			out.Transcript = engine.TruncateRunes(transcript.Text, maxTranscriptRunes, "")
			out.Strategy = transcript.Strategy
		}
		return nil, out, nil
	})
}
