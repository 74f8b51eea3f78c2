package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"swing-trader/internal/errors"
	"swing-trader/internal/logging"
)

// Publisher posts a rendered digest. GitHub posting comments on a
// pinned issue found by title, creating it on first run; a webhook gets
// the raw markdown.
type Publisher struct {
	http       *resty.Client
	repo       string // "owner/repo"
	token      string
	issueTitle string
	labels     []string
	webhookURL string
}

// PublisherOptions configures a digest publisher.
type PublisherOptions struct {
	APIBase    string // override for tests, default https://api.github.com
	Repo       string
	Token      string
	IssueTitle string
	Labels     string // comma separated
	WebhookURL string
}

// NewPublisher creates a digest publisher.
func NewPublisher(opts PublisherOptions) *Publisher {
	base := opts.APIBase
	if base == "" {
		base = "https://api.github.com"
	}
	title := opts.IssueTitle
	if title == "" {
		title = "Daily Watchlist Digest"
	}

	http := resty.New().
		SetBaseURL(base).
		SetTimeout(15 * time.Second).
		SetHeader("Accept", "application/vnd.github+json")
	if opts.Token != "" {
		http.SetHeader("Authorization", "Bearer "+opts.Token)
	}

	var labels []string
	for _, l := range strings.Split(opts.Labels, ",") {
		if l = strings.TrimSpace(l); l != "" {
			labels = append(labels, l)
		}
	}

	return &Publisher{
		http:       http,
		repo:       opts.Repo,
		token:      opts.Token,
		issueTitle: title,
		labels:     labels,
		webhookURL: opts.WebhookURL,
	}
}

// Publish posts the digest everywhere configured. With neither a repo
// nor a webhook configured it is a no-op so local runs stay quiet.
func (p *Publisher) Publish(ctx context.Context, body string) error {
	log := logging.WithOperation(logging.FromContext(ctx), "digest_publish")

	if p.repo != "" {
		if p.token == "" {
			return fmt.Errorf("github repo configured but no token set: %w", errors.ErrConfigInvalid)
		}
		issue, err := p.ensureIssue(ctx)
		if err != nil {
			return err
		}
		if err := p.comment(ctx, issue, body); err != nil {
			return err
		}
		log.Info().Int("issue", issue).Msg("digest posted to github")
	}

	if p.webhookURL != "" {
		resp, err := p.http.R().
			SetContext(ctx).
			SetHeader("Content-Type", "application/json").
			SetBody(map[string]string{"text": body}).
			Post(p.webhookURL)
		if err != nil {
			return fmt.Errorf("posting digest webhook: %w", err)
		}
		if resp.IsError() {
			return fmt.Errorf("digest webhook returned %d", resp.StatusCode())
		}
		log.Info().Msg("digest posted to webhook")
	}

	return nil
}

type issue struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	State  string `json:"state"`
}

// ensureIssue finds the open digest issue by exact title, creating it
// when absent.
func (p *Publisher) ensureIssue(ctx context.Context) (int, error) {
	var issues []issue
	resp, err := p.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"state": "open", "per_page": "100"}).
		SetResult(&issues).
		ForceContentType("application/json").
		Get("/repos/" + p.repo + "/issues")
	if err != nil {
		return 0, fmt.Errorf("listing issues: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("listing issues: github returned %d", resp.StatusCode())
	}

	for _, is := range issues {
		if is.Title == p.issueTitle {
			return is.Number, nil
		}
	}

	var created issue
	payload := map[string]interface{}{
		"title": p.issueTitle,
		"body":  "Automated daily digest thread. Each day's digest lands as a comment.",
	}
	if len(p.labels) > 0 {
		payload["labels"] = p.labels
	}
	resp, err = p.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&created).
		ForceContentType("application/json").
		Post("/repos/" + p.repo + "/issues")
	if err != nil {
		return 0, fmt.Errorf("creating digest issue: %w", err)
	}
	if resp.IsError() {
		return 0, fmt.Errorf("creating digest issue: github returned %d", resp.StatusCode())
	}
	return created.Number, nil
}

func (p *Publisher) comment(ctx context.Context, issueNumber int, body string) error {
	resp, err := p.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"body": body}).
		Post(fmt.Sprintf("/repos/%s/issues/%d/comments", p.repo, issueNumber))
	if err != nil {
		return fmt.Errorf("posting digest comment: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("posting digest comment: github returned %d", resp.StatusCode())
	}
	return nil
}
