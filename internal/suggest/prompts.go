package suggest

import (
	"fmt"

	"google.golang.org/genai"
)

func subtasksPrompt(title, description string) string {
	return fmt.Sprintf(
		"Generate 3 to 5 actionable sub-tasks for the following main task: %q. Description: %q. Return as a list of strings.",
		title, description,
	)
}

func goalPrompt(goal string) string {
	return fmt.Sprintf(
		"Based on the goal %q, suggest %d relevant productivity tasks with priorities (low, medium, high).",
		goal, MaxGoalTasks,
	)
}

// {"subtasks": [string]}
var subtasksSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"subtasks": {
			Type:  genai.TypeArray,
			Items: &genai.Schema{Type: genai.TypeString},
		},
	},
	Required: []string{"subtasks"},
}

// [{"title", "priority", "category"}]
var goalSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"title":    {Type: genai.TypeString},
			"priority": {Type: genai.TypeString, Enum: []string{"low", "medium", "high"}},
			"category": {Type: genai.TypeString},
		},
		Required: []string{"title", "priority", "category"},
	},
}
