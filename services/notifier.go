package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"
)

// Notifier posts command outcomes back to the originating issue or pull
// request. Every call happens after the state change is committed, so a
// failed post can never roll anything back — callers log and move on.
type Notifier interface {
	PostIssueComment(ctx context.Context, repo string, issueNumber int, body string) error
	PostPullRequestComment(ctx context.Context, repo string, prNumber int, body string) error
}

// GitHubNotifier implements Notifier against the GitHub REST API.
type GitHubNotifier struct {
	client *github.Client
}

// NewGitHubNotifier builds a notifier authenticated with the given token.
func NewGitHubNotifier(token string, httpClient *http.Client) *GitHubNotifier {
	client := github.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return &GitHubNotifier{client: client}
}

// NewGitHubNotifierWithBaseURL points the notifier at a custom API root.
// Used by tests with httptest servers.
func NewGitHubNotifierWithBaseURL(httpClient *http.Client, baseURL string) *GitHubNotifier {
	client := github.NewClient(httpClient)
	if baseURL != "" {
		client, _ = client.WithEnterpriseURLs(baseURL, baseURL)
	}
	return &GitHubNotifier{client: client}
}

func (n *GitHubNotifier) PostIssueComment(ctx context.Context, repo string, issueNumber int, body string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, _, err = n.client.Issues.CreateComment(ctx, owner, name, issueNumber, &github.IssueComment{
		Body: github.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("failed to post comment on %s#%d: %w", repo, issueNumber, err)
	}
	return nil
}

// PostPullRequestComment posts a review comment anchored on the PR's first
// changed file. When the file list can't be fetched (or is empty) it falls
// back to a plain conversation comment — PRs are issues on the REST surface.
func (n *GitHubNotifier) PostPullRequestComment(ctx context.Context, repo string, prNumber int, body string) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	pr, _, err := n.client.PullRequests.Get(ctx, owner, name, prNumber)
	if err == nil {
		files, _, filesErr := n.client.PullRequests.ListFiles(ctx, owner, name, prNumber, &github.ListOptions{PerPage: 1})
		if filesErr == nil && len(files) > 0 {
			_, _, commentErr := n.client.PullRequests.CreateComment(ctx, owner, name, prNumber, &github.PullRequestComment{
				Body:        github.Ptr(body),
				CommitID:    github.Ptr(pr.GetHead().GetSHA()),
				Path:        github.Ptr(files[0].GetFilename()),
				SubjectType: github.Ptr("file"),
			})
			if commentErr == nil {
				return nil
			}
			log.Printf("⚠️ [NOTIFY] Review comment on %s#%d failed, falling back to issue comment: %v", repo, prNumber, commentErr)
		}
	} else {
		log.Printf("⚠️ [NOTIFY] Could not load PR %s#%d, falling back to issue comment: %v", repo, prNumber, err)
	}

	return n.PostIssueComment(ctx, repo, prNumber, body)
}

func splitRepo(repo string) (string, string, error) {
	parts := strings.SplitN(strings.TrimSpace(repo), "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/name", repo)
	}
	return parts[0], parts[1], nil
}
