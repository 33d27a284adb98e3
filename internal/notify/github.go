// Package notify publishes build outcomes as GitHub commit statuses,
// so the deployed commit shows the result next to CI checks.
package notify

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// Commit status states accepted by the GitHub API.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailure = "failure"
	StateError   = "error"
)

// EnvToken holds the GitHub token used to publish statuses.
const EnvToken = "SLIPWAY_GITHUB_TOKEN"

// Commit SHA sources, in precedence order. GITHUB_SHA is set by GitHub
// Actions, RENDER_GIT_COMMIT by Render's build environment.
var shaEnvVars = []string{"SLIPWAY_COMMIT_SHA", "GITHUB_SHA", "RENDER_GIT_COMMIT"}

// Notifier publishes commit statuses for a single repository
type Notifier struct {
	client        *github.Client
	owner         string
	repo          string
	statusContext string
}

// New creates an authenticated notifier for an "owner/repo" slug. The
// status context is the label GitHub shows next to the state.
func New(token, ownerRepo, statusContext string) (*Notifier, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}

	// Parse owner and repo
	parts := strings.Split(ownerRepo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("invalid owner/repo format: %s", ownerRepo)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(context.Background(), ts)

	return &Notifier{
		client:        github.NewClient(tc),
		owner:         parts[0],
		repo:          parts[1],
		statusContext: statusContext,
	}, nil
}

// SetBaseURL points the client at a different API endpoint, such as a
// test server.
func (n *Notifier) SetBaseURL(raw string) error {
	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	n.client.BaseURL = u
	return nil
}

// Publish sets the commit status for sha. The description is truncated
// to the 140-character limit the API enforces.
func (n *Notifier) Publish(ctx context.Context, sha, state, description string) error {
	if sha == "" {
		return fmt.Errorf("commit SHA is required")
	}

	status := &github.RepoStatus{
		State:       github.String(state),
		Context:     github.String(n.statusContext),
		Description: github.String(truncate(description, 140)),
	}

	_, _, err := n.client.Repositories.CreateStatus(ctx, n.owner, n.repo, sha, status)
	if err != nil {
		return fmt.Errorf("creating commit status: %w", err)
	}

	return nil
}

// DiscoverSHA returns the commit being deployed, taken from the first
// set environment variable, or "" when none is present.
func DiscoverSHA() string {
	for _, name := range shaEnvVars {
		if sha := strings.TrimSpace(os.Getenv(name)); sha != "" {
			return sha
		}
	}
	return ""
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
