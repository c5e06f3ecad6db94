// Package jiraquery adapts a JIRA instance to the query gateway. It exposes
// read-only issue search, single-issue lookup, and project component/version
// listings, with a JQL keyword policy mirroring the SQL backend's blacklist.
package jiraquery

import (
	"context"
	"fmt"
	"net/http"
	"time"

	jira "github.com/andygrunwald/go-jira"

	"github.com/jatzz10/mcp-gateway/gateway"
)

// DefaultDangerousKeywords is the JQL blacklist applied when the config does
// not override it. JQL has no write verbs, but proposer output is untrusted
// text and these tokens never belong in a legitimate query.
var DefaultDangerousKeywords = []string{"DELETE", "UPDATE", "CREATE", "DROP", "ALTER"}

// Config describes the JIRA connection and project scope.
type Config struct {
	// BaseURL is the JIRA instance, e.g. https://example.atlassian.net.
	BaseURL string
	// Username and APIToken authenticate via basic auth; both empty means
	// anonymous access.
	Username string
	APIToken string
	// ProjectKey scopes component/version listings and the default search.
	ProjectKey string
	// DangerousKeywords overrides the default JQL blacklist.
	DangerousKeywords []string
}

// Backend implements gateway.Backend over a go-jira client.
type Backend struct {
	client   *jira.Client
	project  string
	keywords []string
}

var _ gateway.Backend = (*Backend)(nil)

// New builds a client for the configured instance.
func New(cfg Config) (*Backend, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("jiraquery: base URL is required")
	}
	if cfg.ProjectKey == "" {
		return nil, fmt.Errorf("jiraquery: project key is required")
	}

	var httpClient *http.Client
	if cfg.Username != "" {
		transport := jira.BasicAuthTransport{
			Username: cfg.Username,
			Password: cfg.APIToken,
		}
		httpClient = transport.Client()
	}

	client, err := jira.NewClient(httpClient, cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("jiraquery: new client: %w", err)
	}

	keywords := cfg.DangerousKeywords
	if len(keywords) == 0 {
		keywords = DefaultDangerousKeywords
	}
	return &Backend{client: client, project: cfg.ProjectKey, keywords: keywords}, nil
}

// NewFromClient wraps an existing client; tests point it at a local server.
func NewFromClient(client *jira.Client, projectKey string) *Backend {
	return &Backend{client: client, project: projectKey, keywords: DefaultDangerousKeywords}
}

func (b *Backend) Kind() string { return "jira" }

// Validate enforces the operation whitelist, the JQL keyword blacklist, and
// the issue-key requirement for single-issue lookups.
func (b *Backend) Validate(desc gateway.Descriptor) gateway.Verdict {
	switch desc.Kind {
	case gateway.KindIssueSearch:
		if kw, found := gateway.ContainsKeyword(desc.Target.Text, b.keywords); found {
			return gateway.Reject(fmt.Sprintf("JQL contains forbidden keyword %s", kw))
		}
	case gateway.KindIssue:
		if desc.Target.Key == "" {
			return gateway.Reject("issue lookup requires an issue key")
		}
	case gateway.KindComponentList, gateway.KindVersionList:
	default:
		return gateway.Reject(fmt.Sprintf("operation %q is not permitted on a jira backend", desc.Kind))
	}
	return gateway.Accept()
}

type issuesResult struct {
	issues []jira.Issue
}

type componentsResult struct {
	components []jira.ProjectComponent
}

type versionsResult struct {
	versions []jira.Version
}

// Execute dispatches on the descriptor kind. Search uses the provided JQL
// or falls back to the project's most recent issues.
func (b *Backend) Execute(ctx context.Context, desc gateway.Descriptor) (gateway.RawResult, error) {
	switch desc.Kind {
	case gateway.KindIssueSearch:
		jql := gateway.CanonicalText(desc.Target.Text)
		if jql == "" {
			jql = fmt.Sprintf("project = %q ORDER BY created DESC", b.project)
		}
		issues, _, err := b.client.Issue.SearchWithContext(ctx, jql, &jira.SearchOptions{MaxResults: desc.Limit})
		if err != nil {
			return nil, fmt.Errorf("search issues: %w", err)
		}
		return &issuesResult{issues: issues}, nil

	case gateway.KindIssue:
		issue, _, err := b.client.Issue.GetWithContext(ctx, desc.Target.Key, nil)
		if err != nil {
			return nil, fmt.Errorf("get issue %s: %w", desc.Target.Key, err)
		}
		return &issuesResult{issues: []jira.Issue{*issue}}, nil

	case gateway.KindComponentList:
		project, _, err := b.client.Project.GetWithContext(ctx, b.project)
		if err != nil {
			return nil, fmt.Errorf("get project %s: %w", b.project, err)
		}
		return &componentsResult{components: project.Components}, nil

	case gateway.KindVersionList:
		project, _, err := b.client.Project.GetWithContext(ctx, b.project)
		if err != nil {
			return nil, fmt.Errorf("get project %s: %w", b.project, err)
		}
		return &versionsResult{versions: project.Versions}, nil

	default:
		return nil, fmt.Errorf("unknown jira operation %q", desc.Kind)
	}
}

// Normalize flattens issues, components, or versions into records. Issue
// records carry a fixed field order so callers see a stable tabular shape.
func (b *Backend) Normalize(raw gateway.RawResult) ([]*gateway.Record, error) {
	switch r := raw.(type) {
	case *issuesResult:
		records := make([]*gateway.Record, 0, len(r.issues))
		for i := range r.issues {
			records = append(records, issueRecord(&r.issues[i]))
		}
		return records, nil

	case *componentsResult:
		records := make([]*gateway.Record, 0, len(r.components))
		for _, c := range r.components {
			rec := gateway.NewRecord()
			rec.Set("id", c.ID)
			rec.Set("name", c.Name)
			rec.Set("description", c.Description)
			records = append(records, rec)
		}
		return records, nil

	case *versionsResult:
		records := make([]*gateway.Record, 0, len(r.versions))
		for _, v := range r.versions {
			rec := gateway.NewRecord()
			rec.Set("id", v.ID)
			rec.Set("name", v.Name)
			rec.Set("description", v.Description)
			if v.Released != nil {
				rec.Set("released", *v.Released)
			}
			records = append(records, rec)
		}
		return records, nil

	default:
		return nil, fmt.Errorf("normalize: unexpected raw result %T", raw)
	}
}

func issueRecord(issue *jira.Issue) *gateway.Record {
	rec := gateway.NewRecord()
	rec.Set("key", issue.Key)
	if issue.Fields == nil {
		return rec
	}
	rec.Set("summary", issue.Fields.Summary)
	rec.Set("type", issue.Fields.Type.Name)
	if issue.Fields.Status != nil {
		rec.Set("status", issue.Fields.Status.Name)
	}
	if issue.Fields.Priority != nil {
		rec.Set("priority", issue.Fields.Priority.Name)
	}
	if issue.Fields.Assignee != nil {
		rec.Set("assignee", issue.Fields.Assignee.DisplayName)
	}
	if issue.Fields.Reporter != nil {
		rec.Set("reporter", issue.Fields.Reporter.DisplayName)
	}
	rec.Set("created", time.Time(issue.Fields.Created))
	rec.Set("updated", time.Time(issue.Fields.Updated))
	return rec
}

// Metadata lists the project's issue types, components, and versions: the
// closest JIRA analogue to a schema listing.
func (b *Backend) Metadata(ctx context.Context) (gateway.Metadata, error) {
	project, _, err := b.client.Project.GetWithContext(ctx, b.project)
	if err != nil {
		return gateway.Metadata{}, fmt.Errorf("get project %s: %w", b.project, err)
	}

	issueTypes := make([]map[string]any, 0, len(project.IssueTypes))
	for _, it := range project.IssueTypes {
		issueTypes = append(issueTypes, map[string]any{
			"id":   it.ID,
			"name": it.Name,
		})
	}
	components := make([]map[string]any, 0, len(project.Components))
	for _, c := range project.Components {
		components = append(components, map[string]any{
			"id":   c.ID,
			"name": c.Name,
		})
	}
	versions := make([]map[string]any, 0, len(project.Versions))
	for _, v := range project.Versions {
		versions = append(versions, map[string]any{
			"id":   v.ID,
			"name": v.Name,
		})
	}

	return gateway.Metadata{
		GeneratedAt: time.Now().UTC(),
		Count:       len(issueTypes) + len(components) + len(versions),
		Payload: map[string]any{
			"project":     project.Key,
			"name":        project.Name,
			"issue_types": issueTypes,
			"components":  components,
			"versions":    versions,
		},
	}, nil
}

// HealthCheck fetches the configured project as a liveness probe.
func (b *Backend) HealthCheck(ctx context.Context) gateway.Health {
	if _, _, err := b.client.Project.GetWithContext(ctx, b.project); err != nil {
		return gateway.Health{Status: "unhealthy", Detail: err.Error()}
	}
	return gateway.Health{Status: "healthy"}
}

// Close is a no-op; the HTTP client needs no teardown.
func (b *Backend) Close() error {
	return nil
}
