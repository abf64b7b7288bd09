package reportserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/cbeau79/YouTubeReports/internal/engine/credentials"
)

type CredentialStatusInput struct{}

type CredentialStatusOutput struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
	Detail string `json:"detail,omitempty"`
}

func registerCredentialStatus(server *mcp.Server) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "credential_status",
		Description: "Check whether the configured session-cookie bundle is present, complete, and still authenticated against the platform (content inspection plus a lightweight live probe). Use before bulk transcript runs.",
		Annotations: &mcp.ToolAnnotations{ReadOnlyHint: true},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input CredentialStatusInput) (*mcp.CallToolResult, CredentialStatusOutput, error) {
		handle, err := credentials.DefaultManager().Acquire(ctx)
		if err != nil {
			if errors.Is(err, credentials.ErrNoCredentialFile) {
				return nil, CredentialStatusOutput{
					Valid:  false,
					Reason: "no-credential-file",
					Detail: err.Error(),
				}, nil
			}
			return nil, CredentialStatusOutput{}, fmt.Errorf("cookie isolation: %w", err)
		}
		defer handle.Release()

		res := credentials.Validate(ctx, handle)
		return nil, CredentialStatusOutput{
			Valid:  res.Valid,
			Reason: string(res.Reason),
			Detail: res.Detail,
		}, nil
	})
}
