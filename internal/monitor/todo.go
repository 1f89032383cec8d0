package monitor

import "encoding/json"

type todoWriteInput struct {
	Todos []struct {
		Content    string `json:"content"`
		ActiveForm string `json:"activeForm"`
		Status     string `json:"status"`
	} `json:"todos"`
}

// extractActiveTodo pulls the in-progress entry out of a TodoWrite input
// payload. Returns "" when the input is not parseable or nothing is active.
func extractActiveTodo(input string) string {
	if input == "" {
		return ""
	}
	var parsed todoWriteInput
	if err := json.Unmarshal([]byte(input), &parsed); err != nil {
		return ""
	}
	for _, todo := range parsed.Todos {
		if todo.Status != "in_progress" {
			continue
		}
		if todo.ActiveForm != "" {
			return todo.ActiveForm
		}
		return todo.Content
	}
	return ""
}
