package subtitles

import (
	"context"
	"testing"

	"github.com/cbeau79/YouTubeReports/internal/engine"
)

func TestWatchPageRequiresBrowserClient(t *testing.T) {
	saved := engine.Cfg.BrowserClient
	engine.Cfg.BrowserClient = nil
	defer func() { engine.Cfg.BrowserClient = saved }()

	_, err := watchPageStrategy{}.Attempt(context.Background(), Request{VideoID: "dQw4w9WgXcQ"})
	if err == nil {
		t.Fatal("expected error without a browser client")
	}
}

func TestExtractMarkedJSON(t *testing.T) {
	tests := []struct {
		name   string
		page   string
		marker string
		want   string
	}{
		{
			name:   "simple object",
			page:   `<script>var ytInitialPlayerResponse = {"a":1};</script>`,
			marker: "ytInitialPlayerResponse = ",
			want:   `{"a":1}`,
		},
		{
			name:   "nested braces",
			page:   `ytInitialPlayerResponse = {"a":{"b":{"c":2}},"d":[{"e":3}]};var next={"x":1};`,
			marker: "ytInitialPlayerResponse = ",
			want:   `{"a":{"b":{"c":2}},"d":[{"e":3}]}`,
		},
		{
			name:   "braces inside strings ignored",
			page:   `ytInitialPlayerResponse = {"title":"the } brace {","esc":"quote \" here"};`,
			marker: "ytInitialPlayerResponse = ",
			want:   `{"title":"the } brace {","esc":"quote \" here"}`,
		},
		{
			name:   "marker absent",
			page:   `<html>nothing here</html>`,
			marker: "ytInitialPlayerResponse = ",
			want:   "",
		},
		{
			name:   "unbalanced object",
			page:   `ytInitialPlayerResponse = {"a":{"b":1}`,
			marker: "ytInitialPlayerResponse = ",
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractMarkedJSON([]byte(tt.page), tt.marker)
			if string(got) != tt.want {
				t.Errorf("extractMarkedJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}
