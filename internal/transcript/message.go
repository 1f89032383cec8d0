package transcript

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

// Wire shapes of one transcript log line. Content in both messages and tool
// results may be a bare string or a block array, so both stay RawMessage
// until shaped.
type transcriptLine struct {
	Type        string          `json:"type"`
	UUID        string          `json:"uuid"`
	Timestamp   string          `json:"timestamp"`
	Summary     string          `json:"summary"`
	IsSidechain bool            `json:"isSidechain"`
	Message     json.RawMessage `json:"message"`
}

type wireMessage struct {
	ID      string          `json:"id"`
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Usage   *wireUsage      `json:"usage"`
}

type wireUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens"`
}

type wireBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text"`
	Thinking  string          `json:"thinking"`
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	ToolUseID string          `json:"tool_use_id"`
	IsError   bool            `json:"is_error"`
	Content   json.RawMessage `json:"content"`
}

type parsedLine struct {
	message     *types.TranscriptMessage
	completed   []string
	toolResults map[string]types.ToolResult
	summary     string
}

// parseLine shapes one JSONL entry. Unparseable or irrelevant lines yield an
// empty parsedLine, never an error: a growing log is allowed to contain
// entry kinds this monitor does not understand.
func parseLine(raw []byte) parsedLine {
	line := strings.TrimSpace(string(raw))
	if line == "" {
		return parsedLine{}
	}
	var entry transcriptLine
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return parsedLine{}
	}
	switch entry.Type {
	case "summary":
		return parsedLine{summary: strings.TrimSpace(entry.Summary)}
	case "user", "assistant":
	default:
		return parsedLine{}
	}
	if entry.IsSidechain {
		// Sidechain entries belong to a delegated sub-conversation; those
		// are tracked through delegated-task signals, not the main list.
		return parsedLine{}
	}
	var msg wireMessage
	if len(entry.Message) > 0 {
		if err := json.Unmarshal(entry.Message, &msg); err != nil {
			return parsedLine{}
		}
	}
	role := msg.Role
	if role == "" {
		role = entry.Type
	}
	out := parsedLine{}
	message := &types.TranscriptMessage{
		ID:        entry.UUID,
		Role:      role,
		Timestamp: parseTimestamp(entry.Timestamp),
	}
	if message.ID == "" {
		message.ID = msg.ID
	}
	if msg.Usage != nil {
		message.Usage = &types.TokenUsage{
			Input:         msg.Usage.InputTokens,
			Output:        msg.Usage.OutputTokens,
			CacheRead:     msg.Usage.CacheReadInputTokens,
			CacheCreation: msg.Usage.CacheCreationInputTokens,
		}
	}
	for _, block := range decodeBlocks(msg.Content) {
		switch block.Type {
		case "text":
			message.Blocks = append(message.Blocks, types.ContentBlock{
				Kind: types.BlockText,
				Text: block.Text,
			})
		case "thinking", "redacted_thinking":
			text := block.Thinking
			if text == "" {
				text = block.Text
			}
			message.Blocks = append(message.Blocks, types.ContentBlock{
				Kind: types.BlockThinking,
				Text: text,
			})
		case "tool_use":
			message.Blocks = append(message.Blocks, types.ContentBlock{
				Kind:     types.BlockToolUse,
				ToolID:   block.ID,
				ToolName: block.Name,
				Input:    compactJSON(block.Input),
			})
		case "tool_result":
			if block.ToolUseID == "" {
				continue
			}
			out.completed = append(out.completed, block.ToolUseID)
			if out.toolResults == nil {
				out.toolResults = make(map[string]types.ToolResult)
			}
			out.toolResults[block.ToolUseID] = types.ToolResult{
				Text:    resultText(block.Content),
				IsError: block.IsError,
			}
		}
	}
	if message.ID != "" && len(message.Blocks) > 0 {
		out.message = message
	}
	return out
}

// decodeBlocks accepts either a bare string or a block array.
func decodeBlocks(raw json.RawMessage) []wireBlock {
	if len(raw) == 0 {
		return nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if strings.TrimSpace(text) == "" {
			return nil
		}
		return []wireBlock{{Type: "text", Text: text}}
	}
	var blocks []wireBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return nil
	}
	return blocks
}

func resultText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var blocks []wireBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return ""
	}
	var parts []string
	for _, block := range blocks {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

func compactJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	return strings.TrimSpace(string(raw))
}

func parseTimestamp(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if ts, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return ts
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts
	}
	return time.Time{}
}
