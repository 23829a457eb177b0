// ABOUTME: Static prompt catalog served by prompts/list and prompts/get
// ABOUTME: Templates interpolate caller arguments verbatim into the user message

package mcp

import "fmt"

// PromptArgument describes one prompt parameter.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Prompt is a prompt as advertised by prompts/list.
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`

	render func(args map[string]any) string
}

// PromptMessage is one message of a rendered prompt.
type PromptMessage struct {
	Role    string  `json:"role"`
	Content Content `json:"content"`
}

// GetPromptResult is the result for prompts/get.
type GetPromptResult struct {
	Messages []PromptMessage `json:"messages"`
}

var prompts = []Prompt{
	{
		Name:        "list_all_deals",
		Description: "List all deals with their details",
		render: func(map[string]any) string {
			return "List all deals with their current status, value, and associated contacts"
		},
	},
	{
		Name:        "search_person",
		Description: "Search for a person by name",
		Arguments: []PromptArgument{
			{Name: "name", Description: "Name of the person to search for", Required: true},
		},
		// TODO: argument values reach the model unescaped; quote or strip them once a sanitizing policy is agreed.
		render: func(args map[string]any) string {
			return fmt.Sprintf("Search for a person named \"%s\" and show their contact information and associated deals",
				argString(args, "name"))
		},
	},
	{
		Name:        "get_organization_deals",
		Description: "Get all deals for a specific organization",
		Arguments: []PromptArgument{
			{Name: "org_id", Description: "Organization ID", Required: true},
		},
		render: func(args map[string]any) string {
			return fmt.Sprintf("Get all deals associated with organization ID %s including their status and value",
				argString(args, "org_id"))
		},
	},
	{
		Name:        "pipeline_overview",
		Description: "Get overview of all pipelines and their stages",
		render: func(map[string]any) string {
			return "Provide an overview of all pipelines and their stages, including deal counts per stage"
		},
	},
}

func findPrompt(name string) (Prompt, bool) {
	for _, p := range prompts {
		if p.Name == name {
			return p, true
		}
	}
	return Prompt{}, false
}

// argString renders an argument value; absent values render empty.
func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
