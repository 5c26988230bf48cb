package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"jira-mcp-server/internal/domain"
)

// apiPrefix is the fixed REST API version path every endpoint hangs off.
const apiPrefix = "/rest/api/3"

// defaultMaxResults bounds a search when the caller does not supply a cap.
const defaultMaxResults = 50

// JiraClient is the single point of authenticated access to the tracker.
// One instance is constructed at startup and shared by every tool call. It
// holds no mutable state beyond the HTTP client, which is safe for concurrent
// reuse.
type JiraClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewJiraClient creates a Jira REST client rooted at baseURL. The supplied
// HTTP client must already carry authentication and the request timeout (see
// domain.NewAuthenticatedClient). A nil logger discards log output.
func NewJiraClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *JiraClient {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &JiraClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// BaseURL returns the base URL this client is rooted at.
func (c *JiraClient) BaseURL() string {
	return c.baseURL
}

// doRequest issues one HTTP request against the tracker and returns the raw
// JSON response body. It is the single chokepoint every operation funnels
// through: it builds the URL under the API prefix, encodes the optional JSON
// body, sets the JSON headers, and converts non-2xx statuses into
// domain.APIError. A nil result with a nil error means the tracker answered
// with an empty success body (issue updates and transitions return 204).
func (c *JiraClient) doRequest(ctx context.Context, method, endpoint string, query url.Values, body interface{}) (json.RawMessage, error) {
	if c == nil || c.baseURL == "" || c.httpClient == nil {
		return nil, domain.ErrClientNotInitialized
	}

	requestURL := fmt.Sprintf("%s%s/%s", c.baseURL, apiPrefix, endpoint)
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.DebugContext(ctx, "jira request completed",
		"method", method, "endpoint", endpoint, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.ErrorContext(ctx, "jira request failed",
			"method", method, "endpoint", endpoint, "status", resp.StatusCode)
		return nil, &domain.APIError{StatusCode: resp.StatusCode, Body: string(data)}
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	if !json.Valid(data) {
		return nil, fmt.Errorf("failed to decode response: invalid JSON")
	}

	return json.RawMessage(data), nil
}

// GetProjects lists every project visible to the authenticated account.
func (c *JiraClient) GetProjects(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "project", nil, nil)
}

// GetProject fetches a single project by key.
func (c *JiraClient) GetProject(ctx context.Context, projectKey string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "project/"+projectKey, nil, nil)
}

// SearchIssues runs a JQL query and returns the first page of results
// unmodified, including the paging metadata. Paging past the first page is
// not supported.
func (c *JiraClient) SearchIssues(ctx context.Context, opts domain.SearchOptions) (json.RawMessage, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	fields := "*all"
	if len(opts.Fields) > 0 {
		fields = strings.Join(opts.Fields, ",")
	}

	query := url.Values{}
	query.Set("jql", opts.JQL)
	query.Set("maxResults", strconv.Itoa(maxResults))
	query.Set("fields", fields)

	return c.doRequest(ctx, http.MethodGet, "search", query, nil)
}

// GetIssue fetches a single issue by key.
func (c *JiraClient) GetIssue(ctx context.Context, issueKey string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "issue/"+issueKey, nil, nil)
}

// CreateIssue creates an issue from the given field document and returns the
// tracker's created-issue reference.
func (c *JiraClient) CreateIssue(ctx context.Context, fields domain.IssueFields) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "issue", nil, &domain.IssueCreate{Fields: fields})
}

// UpdateIssue applies a partial field update to an issue. Only the fields set
// in the document are sent; the tracker answers 204 No Content on success.
func (c *JiraClient) UpdateIssue(ctx context.Context, issueKey string, fields domain.IssueFields) error {
	_, err := c.doRequest(ctx, http.MethodPut, "issue/"+issueKey, nil, &domain.IssueUpdate{Fields: fields})
	return err
}

// GetTransitions fetches the transitions available from the issue's current
// workflow state. The set is state-dependent and never cached.
func (c *JiraClient) GetTransitions(ctx context.Context, issueKey string) ([]domain.Transition, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "issue/"+issueKey+"/transitions", nil, nil)
	if err != nil {
		return nil, err
	}

	var page struct {
		Transitions []domain.Transition `json:"transitions"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode transitions: %w", err)
	}
	return page.Transitions, nil
}

// TransitionIssue moves an issue to a new workflow state by transition name.
// Resolution is a two-step lookup: fetch the transitions currently available
// on the issue, match the requested name case-insensitively, and post the
// matching transition's id. An unmatched name returns a
// domain.TransitionNotFoundError carrying every legal name, and nothing is
// written.
func (c *JiraClient) TransitionIssue(ctx context.Context, issueKey, transitionName string) error {
	transitions, err := c.GetTransitions(ctx, issueKey)
	if err != nil {
		return err
	}

	transition, ok := domain.FindTransition(transitions, transitionName)
	if !ok {
		return &domain.TransitionNotFoundError{
			Requested: transitionName,
			Available: domain.TransitionNames(transitions),
		}
	}

	body := &domain.TransitionRequest{
		Transition: domain.TransitionRef{ID: transition.ID.String()},
	}
	_, err = c.doRequest(ctx, http.MethodPost, "issue/"+issueKey+"/transitions", nil, body)
	return err
}

// AddComment adds a plain-text comment to an issue, wrapped in the ADF
// document structure the tracker requires.
func (c *JiraClient) AddComment(ctx context.Context, issueKey, comment string) (json.RawMessage, error) {
	body := &domain.CommentRequest{Body: domain.NewDocument(comment)}
	return c.doRequest(ctx, http.MethodPost, "issue/"+issueKey+"/comment", nil, body)
}

// GetEpics lists the epics of a project, newest first. Epics are ordinary
// issues of type Epic, so this is a JQL search under the hood.
func (c *JiraClient) GetEpics(ctx context.Context, projectKey string) (json.RawMessage, error) {
	jql := fmt.Sprintf("project = %q AND issuetype = Epic ORDER BY created DESC", projectKey)
	data, err := c.SearchIssues(ctx, domain.SearchOptions{JQL: jql})
	if err != nil {
		return nil, err
	}

	var page struct {
		Issues json.RawMessage `json:"issues"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}
	if page.Issues == nil {
		return json.RawMessage("[]"), nil
	}
	return page.Issues, nil
}

// LinkIssueToEpic links an issue under an epic. Jira models the link as the
// issue's parent field, so this is a partial update rather than a separate
// endpoint.
func (c *JiraClient) LinkIssueToEpic(ctx context.Context, issueKey, epicKey string) error {
	return c.UpdateIssue(ctx, issueKey, domain.IssueFields{
		Parent: &domain.IssueRef{Key: epicKey},
	})
}

// GetIssueTypes lists the issue types available in a project.
func (c *JiraClient) GetIssueTypes(ctx context.Context, projectKey string) (json.RawMessage, error) {
	data, err := c.GetProject(ctx, projectKey)
	if err != nil {
		return nil, err
	}

	var project struct {
		IssueTypes json.RawMessage `json:"issueTypes"`
	}
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("failed to decode project: %w", err)
	}
	if project.IssueTypes == nil {
		return json.RawMessage("[]"), nil
	}
	return project.IssueTypes, nil
}
