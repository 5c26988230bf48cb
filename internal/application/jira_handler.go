package application

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"jira-mcp-server/internal/domain"
)

// JiraAPI is the tracker surface the dispatcher depends on. It is satisfied by
// *infrastructure.JiraClient and substituted with a fake in tests.
type JiraAPI interface {
	GetProjects(ctx context.Context) (json.RawMessage, error)
	GetProject(ctx context.Context, projectKey string) (json.RawMessage, error)
	SearchIssues(ctx context.Context, opts domain.SearchOptions) (json.RawMessage, error)
	GetIssue(ctx context.Context, issueKey string) (json.RawMessage, error)
	CreateIssue(ctx context.Context, fields domain.IssueFields) (json.RawMessage, error)
	UpdateIssue(ctx context.Context, issueKey string, fields domain.IssueFields) error
	GetTransitions(ctx context.Context, issueKey string) ([]domain.Transition, error)
	TransitionIssue(ctx context.Context, issueKey, transitionName string) error
	AddComment(ctx context.Context, issueKey, comment string) (json.RawMessage, error)
	GetEpics(ctx context.Context, projectKey string) (json.RawMessage, error)
	LinkIssueToEpic(ctx context.Context, issueKey, epicKey string) error
	GetIssueTypes(ctx context.Context, projectKey string) (json.RawMessage, error)
}

// Tool name constants for Jira operations
const (
	ToolJiraGetProjects       = "jira_get_projects"
	ToolJiraGetProjectDetails = "jira_get_project_details"
	ToolJiraSearchIssues      = "jira_search_issues"
	ToolJiraGetIssue          = "jira_get_issue"
	ToolJiraCreateIssue       = "jira_create_issue"
	ToolJiraUpdateIssue       = "jira_update_issue"
	ToolJiraTransitionIssue   = "jira_transition_issue"
	ToolJiraGetTransitions    = "jira_get_available_transitions"
	ToolJiraAddComment        = "jira_add_comment"
	ToolJiraGetEpics          = "jira_get_epics"
	ToolJiraLinkIssueToEpic   = "jira_link_issue_to_epic"
	ToolJiraGetIssueTypes     = "jira_get_issue_types"
)

// JiraHandler routes MCP tool calls to the corresponding tracker operations.
// It owns the static tool catalog and the dispatch table; the two are kept in
// lockstep by building the served tool list from the catalog through Dispatch.
type JiraHandler struct {
	client         JiraAPI
	defaultProject string
	logger         *slog.Logger
}

// NewJiraHandler creates a dispatcher over the given tracker client. The
// default project key feeds the epic and issue-type listing tools when a call
// omits project_key. A nil logger discards log output.
func NewJiraHandler(client JiraAPI, defaultProject string, logger *slog.Logger) *JiraHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &JiraHandler{
		client:         client,
		defaultProject: defaultProject,
		logger:         logger,
	}
}

// Catalog returns the static tool descriptors, in declaration order.
func (h *JiraHandler) Catalog() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(ToolJiraGetProjects,
			mcp.WithDescription("Get list of all projects in Jira"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(true)}),
		),
		mcp.NewTool(ToolJiraGetProjectDetails,
			mcp.WithDescription("Get detailed information about a specific project"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(true)}),
			mcp.WithString("project_key",
				mcp.Required(),
				mcp.Description("The project key (e.g., 'PROJ')"),
			),
		),
		mcp.NewTool(ToolJiraSearchIssues,
			mcp.WithDescription("Search for issues using JQL (Jira Query Language)"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(true)}),
			mcp.WithString("jql",
				mcp.Required(),
				mcp.Description("JQL query string (e.g., 'project = PROJ AND status = Open')"),
			),
			mcp.WithArray("fields",
				mcp.Description("Fields to include in results (default: all fields)"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithNumber("max_results",
				mcp.Description("Maximum number of results (default: 50)"),
				mcp.DefaultNumber(50),
			),
		),
		mcp.NewTool(ToolJiraGetIssue,
			mcp.WithDescription("Get detailed information about a specific issue"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(true)}),
			mcp.WithString("issue_key",
				mcp.Required(),
				mcp.Description("The issue key (e.g., 'PROJ-123')"),
			),
		),
		mcp.NewTool(ToolJiraCreateIssue,
			mcp.WithDescription("Create a new issue in Jira"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(false)}),
			mcp.WithString("project_key",
				mcp.Required(),
				mcp.Description("The project key where the issue will be created"),
			),
			mcp.WithString("issue_type",
				mcp.Required(),
				mcp.Description("Issue type (e.g., 'Task', 'Bug', 'Story', 'Epic')"),
			),
			mcp.WithString("summary",
				mcp.Required(),
				mcp.Description("Issue summary/title"),
			),
			mcp.WithString("description",
				mcp.Description("Issue description"),
			),
			mcp.WithString("assignee",
				mcp.Description("Assignee username"),
			),
			mcp.WithString("priority",
				mcp.Description("Priority name (e.g., 'High', 'Medium', 'Low')"),
			),
			mcp.WithArray("labels",
				mcp.Description("Labels to add to the issue"),
				mcp.Items(map[string]any{"type": "string"}),
			),
			mcp.WithString("parent_key",
				mcp.Description("Parent issue key (for subtasks or epic children)"),
			),
		),
		mcp.NewTool(ToolJiraUpdateIssue,
			mcp.WithDescription("Update an existing issue"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(false)}),
			mcp.WithString("issue_key",
				mcp.Required(),
				mcp.Description("The issue key to update"),
			),
			mcp.WithString("summary",
				mcp.Description("New summary"),
			),
			mcp.WithString("description",
				mcp.Description("New description"),
			),
			mcp.WithString("assignee",
				mcp.Description("New assignee username"),
			),
			mcp.WithString("priority",
				mcp.Description("New priority name"),
			),
			mcp.WithArray("labels",
				mcp.Description("New labels (replaces existing labels)"),
				mcp.Items(map[string]any{"type": "string"}),
			),
		),
		mcp.NewTool(ToolJiraTransitionIssue,
			mcp.WithDescription("Transition an issue to a new status by transition name"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(false)}),
			mcp.WithString("issue_key",
				mcp.Required(),
				mcp.Description("The issue key to transition"),
			),
			mcp.WithString("transition_name",
				mcp.Required(),
				mcp.Description("Name of the transition (e.g., 'In Progress', 'Done')"),
			),
		),
		mcp.NewTool(ToolJiraGetTransitions,
			mcp.WithDescription("Get available status transitions for an issue"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(true)}),
			mcp.WithString("issue_key",
				mcp.Required(),
				mcp.Description("The issue key"),
			),
		),
		mcp.NewTool(ToolJiraAddComment,
			mcp.WithDescription("Add a comment to an issue"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(false)}),
			mcp.WithString("issue_key",
				mcp.Required(),
				mcp.Description("The issue key"),
			),
			mcp.WithString("comment",
				mcp.Required(),
				mcp.Description("Comment text"),
			),
		),
		mcp.NewTool(ToolJiraGetEpics,
			mcp.WithDescription("Get all epics in a project"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(true)}),
			mcp.WithString("project_key",
				mcp.Description("The project key (uses default project if not specified)"),
			),
		),
		mcp.NewTool(ToolJiraLinkIssueToEpic,
			mcp.WithDescription("Link an issue to an epic"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(false)}),
			mcp.WithString("issue_key",
				mcp.Required(),
				mcp.Description("The issue key to link"),
			),
			mcp.WithString("epic_key",
				mcp.Required(),
				mcp.Description("The epic's issue key"),
			),
		),
		mcp.NewTool(ToolJiraGetIssueTypes,
			mcp.WithDescription("Get available issue types for a project"),
			mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: mcp.ToBoolPtr(true)}),
			mcp.WithString("project_key",
				mcp.Description("The project key (uses default project if not specified)"),
			),
		),
	}
}

// handlers returns the dispatch table keyed by tool name.
func (h *JiraHandler) handlers() map[string]server.ToolHandlerFunc {
	return map[string]server.ToolHandlerFunc{
		ToolJiraGetProjects:       h.handleGetProjects,
		ToolJiraGetProjectDetails: h.handleGetProjectDetails,
		ToolJiraSearchIssues:      h.handleSearchIssues,
		ToolJiraGetIssue:          h.handleGetIssue,
		ToolJiraCreateIssue:       h.handleCreateIssue,
		ToolJiraUpdateIssue:       h.handleUpdateIssue,
		ToolJiraTransitionIssue:   h.handleTransitionIssue,
		ToolJiraGetTransitions:    h.handleGetTransitions,
		ToolJiraAddComment:        h.handleAddComment,
		ToolJiraGetEpics:          h.handleGetEpics,
		ToolJiraLinkIssueToEpic:   h.handleLinkIssueToEpic,
		ToolJiraGetIssueTypes:     h.handleGetIssueTypes,
	}
}

// Tools zips the catalog with the dispatch table for registration on the MCP
// server. Every served tool routes through Dispatch, so the catalog and the
// dispatch table cannot drift apart.
func (h *JiraHandler) Tools() []server.ServerTool {
	catalog := h.Catalog()
	tools := make([]server.ServerTool, len(catalog))
	for i, tool := range catalog {
		tools[i] = server.ServerTool{Tool: tool, Handler: h.Dispatch}
	}
	return tools
}

// Dispatch routes a tool call by name. Every invocation yields a textual
// result: tracker failures become error results, and an unrecognized name
// becomes an "Unknown tool" result rather than a protocol error.
func (h *JiraHandler) Dispatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name := req.Params.Name
	handler, ok := h.handlers()[name]
	if !ok {
		h.logger.WarnContext(ctx, "unknown tool requested", "tool", name)
		return mcp.NewToolResultError(fmt.Sprintf("Unknown tool: %s", name)), nil
	}

	h.logger.InfoContext(ctx, "dispatching tool call", "tool", name)
	result, err := handler(ctx, req)
	if err != nil {
		return nil, err
	}
	if result.IsError {
		h.logger.ErrorContext(ctx, "tool call failed", "tool", name)
	}
	return result, nil
}

func (h *JiraHandler) handleGetProjects(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	data, err := h.client.GetProjects(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(data)
}

func (h *JiraHandler) handleGetProjectDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey, err := req.RequireString("project_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := h.client.GetProject(ctx, projectKey)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(data)
}

func (h *JiraHandler) handleSearchIssues(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jql, err := req.RequireString("jql")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields, _, err := getStringSliceParam(req.GetArguments(), "fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	maxResults, err := getIntParam(req.GetArguments(), "max_results", 0)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := h.client.SearchIssues(ctx, domain.SearchOptions{
		JQL:        jql,
		Fields:     fields,
		MaxResults: maxResults,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(data)
}

func (h *JiraHandler) handleGetIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey, err := req.RequireString("issue_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := h.client.GetIssue(ctx, issueKey)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(data)
}

func (h *JiraHandler) handleCreateIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey, err := req.RequireString("project_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	issueType, err := req.RequireString("issue_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	summary, err := req.RequireString("summary")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields := domain.IssueFields{
		Project:   &domain.ProjectRef{Key: projectKey},
		IssueType: &domain.IssueTypeRef{Name: issueType},
		Summary:   &summary,
	}

	args := req.GetArguments()
	if description, ok, err := getOptionalString(args, "description"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Description = domain.NewDocument(description)
	}
	if assignee, ok, err := getOptionalString(args, "assignee"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Assignee = &domain.UserRef{Name: assignee}
	}
	if priority, ok, err := getOptionalString(args, "priority"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Priority = &domain.PriorityRef{Name: priority}
	}
	if labels, ok, err := getStringSliceParam(args, "labels"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Labels = &labels
	}
	if parentKey, ok, err := getOptionalString(args, "parent_key"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Parent = &domain.IssueRef{Key: parentKey}
	}

	data, err := h.client.CreateIssue(ctx, fields)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(data)
}

func (h *JiraHandler) handleUpdateIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey, err := req.RequireString("issue_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	// Only fields the caller supplied make it into the update document;
	// everything else is left untouched on the tracker side.
	var fields domain.IssueFields

	args := req.GetArguments()
	if summary, ok, err := getOptionalString(args, "summary"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Summary = &summary
	}
	if description, ok, err := getOptionalString(args, "description"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Description = domain.NewDocument(description)
	}
	if assignee, ok, err := getOptionalString(args, "assignee"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Assignee = &domain.UserRef{Name: assignee}
	}
	if priority, ok, err := getOptionalString(args, "priority"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Priority = &domain.PriorityRef{Name: priority}
	}
	if labels, ok, err := getStringSliceParam(args, "labels"); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	} else if ok {
		fields.Labels = &labels
	}

	if err := h.client.UpdateIssue(ctx, issueKey, fields); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Issue %s updated successfully", issueKey)), nil
}

func (h *JiraHandler) handleTransitionIssue(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey, err := req.RequireString("issue_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	transitionName, err := req.RequireString("transition_name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := h.client.TransitionIssue(ctx, issueKey, transitionName); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Issue %s transitioned to %s", issueKey, transitionName)), nil
}

func (h *JiraHandler) handleGetTransitions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey, err := req.RequireString("issue_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	transitions, err := h.client.GetTransitions(ctx, issueKey)
	if err != nil {
		return errorResult(err), nil
	}

	data, err := json.Marshal(transitions)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transitions: %w", err)
	}
	return jsonResult(data)
}

func (h *JiraHandler) handleAddComment(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey, err := req.RequireString("issue_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comment, err := req.RequireString("comment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := h.client.AddComment(ctx, issueKey, comment)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(data)
}

func (h *JiraHandler) handleGetEpics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey, result := h.resolveProjectKey(req)
	if result != nil {
		return result, nil
	}

	data, err := h.client.GetEpics(ctx, projectKey)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(data)
}

func (h *JiraHandler) handleLinkIssueToEpic(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey, err := req.RequireString("issue_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	epicKey, err := req.RequireString("epic_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := h.client.LinkIssueToEpic(ctx, issueKey, epicKey); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Issue %s linked to epic %s", issueKey, epicKey)), nil
}

func (h *JiraHandler) handleGetIssueTypes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectKey, result := h.resolveProjectKey(req)
	if result != nil {
		return result, nil
	}

	data, err := h.client.GetIssueTypes(ctx, projectKey)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(data)
}

// resolveProjectKey reads the optional project_key argument, falling back to
// the configured default project. A non-nil result means neither was set.
func (h *JiraHandler) resolveProjectKey(req mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	projectKey := req.GetString("project_key", h.defaultProject)
	if projectKey == "" {
		return "", mcp.NewToolResultError("project_key is required (no default project configured)")
	}
	return projectKey, nil
}

// jsonResult pretty-prints a raw JSON payload as the tool's text result. The
// indentation step is lossless, so a caller can parse the text back into the
// structure the tracker returned.
func jsonResult(data json.RawMessage) (*mcp.CallToolResult, error) {
	if len(data) == 0 {
		return mcp.NewToolResultText("null"), nil
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to format response: %w", err)
	}
	return mcp.NewToolResultText(pretty.String()), nil
}

// errorResult converts a tracker failure into a textual error result. An
// unmatched transition renders with the full set of legal alternatives so the
// caller can retry with a valid name.
func errorResult(err error) *mcp.CallToolResult {
	var notFound *domain.TransitionNotFoundError
	if errors.As(err, &notFound) {
		return mcp.NewToolResultError(fmt.Sprintf("Transition '%s' not found. Available transitions: %s",
			notFound.Requested, strings.Join(notFound.Available, ", ")))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Error: %v", err))
}
