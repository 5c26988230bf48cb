package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FlexibleID is a type that can unmarshal both string and numeric IDs from JSON.
// Jira emits transition and entity IDs as strings, but other deployments and
// older API versions emit numbers; both normalize to the string form.
type FlexibleID string

// UnmarshalJSON implements custom unmarshaling to handle both string and numeric IDs.
func (f *FlexibleID) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexibleID(s)
		return nil
	}

	// Try to unmarshal as number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexibleID(n.String())
		return nil
	}

	return fmt.Errorf("id must be a string or number")
}

// String returns the string representation of the ID.
func (f FlexibleID) String() string {
	return string(f)
}

// Document is an Atlassian Document Format (ADF) body. Jira Cloud requires
// issue descriptions and comment bodies wrapped in this structure; the shape
// produced by NewDocument is a hard external contract.
type Document struct {
	Type    string  `json:"type"`
	Version int     `json:"version"`
	Content []Block `json:"content"`
}

// Block is a top-level ADF content node, such as a paragraph.
type Block struct {
	Type    string   `json:"type"`
	Content []Inline `json:"content,omitempty"`
}

// Inline is a leaf ADF node carrying a run of text.
type Inline struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// NewDocument wraps plain text in a one-paragraph, one-run ADF document.
func NewDocument(text string) *Document {
	return &Document{
		Type:    "doc",
		Version: 1,
		Content: []Block{
			{
				Type: "paragraph",
				Content: []Inline{
					{Type: "text", Text: text},
				},
			},
		},
	}
}

// PlainText flattens the document back to its concatenated text runs.
func (d *Document) PlainText() string {
	if d == nil {
		return ""
	}
	var sb strings.Builder
	for _, block := range d.Content {
		for _, inline := range block.Content {
			sb.WriteString(inline.Text)
		}
	}
	return sb.String()
}

// ProjectRef is a reference to a project by key (used in create operations).
type ProjectRef struct {
	Key string `json:"key"`
}

// IssueTypeRef is a reference to an issue type by name (used in create operations).
type IssueTypeRef struct {
	Name string `json:"name"`
}

// UserRef is a reference to a user (used for assignee fields).
type UserRef struct {
	Name string `json:"name"`
}

// PriorityRef is a reference to a priority by name.
type PriorityRef struct {
	Name string `json:"name"`
}

// IssueRef is a reference to another issue by key (used for parent links).
type IssueRef struct {
	Key string `json:"key"`
}

// IssueFields is the field document sent on issue create and update requests.
// Every field is optional; a nil field is omitted from the serialized body so
// the tracker leaves it untouched. Callers set only what they mean to write.
type IssueFields struct {
	Project     *ProjectRef   `json:"project,omitempty"`
	IssueType   *IssueTypeRef `json:"issuetype,omitempty"`
	Summary     *string       `json:"summary,omitempty"`
	Description *Document     `json:"description,omitempty"`
	Assignee    *UserRef      `json:"assignee,omitempty"`
	Priority    *PriorityRef  `json:"priority,omitempty"`
	Labels      *[]string     `json:"labels,omitempty"`
	Parent      *IssueRef     `json:"parent,omitempty"`
}

// IssueCreate is the request body for creating a new issue.
type IssueCreate struct {
	Fields IssueFields `json:"fields"`
}

// IssueUpdate is the request body for a partial issue update.
type IssueUpdate struct {
	Fields IssueFields `json:"fields"`
}

// Transition is one workflow edge offered for an issue. The tracker only
// reports transitions legal from the issue's current state.
type Transition struct {
	ID   FlexibleID `json:"id"`
	Name string     `json:"name"`
}

// FindTransition resolves a human-readable transition name against the
// available set using case-insensitive exact matching, returning the first
// match. It never fuzzy-matches: an unmatched name must surface to the caller
// with the full available set rather than guess a state change.
func FindTransition(available []Transition, name string) (Transition, bool) {
	for _, t := range available {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return Transition{}, false
}

// TransitionNames returns the display names of the given transitions, in order.
func TransitionNames(transitions []Transition) []string {
	names := make([]string, len(transitions))
	for i, t := range transitions {
		names[i] = t.Name
	}
	return names
}

// TransitionRequest is the body posted to apply a workflow transition.
type TransitionRequest struct {
	Transition TransitionRef `json:"transition"`
}

// TransitionRef references a transition by its tracker-internal ID.
type TransitionRef struct {
	ID string `json:"id"`
}

// CommentRequest is the body posted to add a comment to an issue.
type CommentRequest struct {
	Body *Document `json:"body"`
}

// SearchOptions bounds a JQL search. A zero MaxResults falls back to the
// 50-result default; an empty Fields list requests all fields. Only the first
// page of results is ever fetched.
type SearchOptions struct {
	JQL        string
	Fields     []string
	MaxResults int
}
