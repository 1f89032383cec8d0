package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

// applyIngest merges one transcript ingestion result into session state.
// Incremental results only upsert newly observed blocks; a full result or a
// flagged discontinuity reconciles the whole item list first.
func (c *Coordinator) applyIngest(s *sessionState, result *types.IngestResult, full bool, now time.Time) {
	if result == nil {
		return
	}
	if full || result.Discontinuity {
		c.reconcile(s, result, now)
	}
	for i := range result.NewMessages {
		c.upsertMessage(s, &result.NewMessages[i], now)
	}
	for _, toolID := range result.CompletedToolIDs {
		s.tools.Complete(toolID)
		res := result.ToolResults[toolID]
		if item := s.byID[toolID]; item != nil && item.Kind == types.ChatItemTool {
			if item.Status == types.ToolStatusRunning || item.Status == types.ToolStatusWaitingForApproval {
				if res.IsError {
					item.Status = types.ToolStatusError
				} else {
					item.Status = types.ToolStatusSuccess
				}
			}
			if res.Text != "" {
				item.Result = res.Text
			}
		}
		if _, open := s.openApprovals[toolID]; open {
			delete(s.openApprovals, toolID)
			if s.phase.Approval != nil && s.phase.Approval.ToolID == toolID {
				c.promoteNextApproval(s, toolID, types.ApprovalGranted)
			}
		}
		if ctx := s.subagents.CompleteTool(toolID, res.IsError); ctx != nil {
			c.syncSubagentItem(s, ctx, now)
		}
	}
	if result.Summary != "" {
		s.summary = result.Summary
	}
	c.applyInference(s)
}

// reconcile drops items missing from a freshly parsed transcript, except
// items created within the grace window: a lifecycle signal may have raced
// ahead of the parser around the discontinuity and its placeholder would
// otherwise be lost. Best-effort race mitigation, not a strict guarantee.
func (c *Coordinator) reconcile(s *sessionState, result *types.IngestResult, now time.Time) {
	fresh := make(map[string]struct{}, len(result.AllMessageIDs))
	for id := range result.AllMessageIDs {
		fresh[id] = struct{}{}
	}
	for i := range result.NewMessages {
		msg := &result.NewMessages[i]
		fresh[msg.ID] = struct{}{}
		for blockIdx, block := range msg.Blocks {
			if block.Kind == types.BlockToolUse {
				fresh[block.ToolID] = struct{}{}
				continue
			}
			fresh[blockItemID(msg.ID, blockIdx)] = struct{}{}
		}
	}
	kept := s.items[:0]
	for _, item := range s.items {
		if _, ok := fresh[item.ID]; ok {
			kept = append(kept, item)
			continue
		}
		if now.Sub(s.addedAt[item.ID]) <= c.graceWindow {
			kept = append(kept, item)
			continue
		}
		delete(s.byID, item.ID)
		delete(s.addedAt, item.ID)
	}
	s.items = kept

	// Ids from before the discontinuity no longer mean anything for dedup.
	s.tools.Reset()
	s.subagents.Reset()
	s.seenMessages = make(map[string]struct{})
	s.turnTokens = types.TokenUsage{}
}

func blockItemID(messageID string, blockIdx int) string {
	return fmt.Sprintf("%s#%d", messageID, blockIdx)
}

func (c *Coordinator) upsertMessage(s *sessionState, msg *types.TranscriptMessage, now time.Time) {
	if msg == nil || msg.ID == "" {
		return
	}
	if _, ok := s.seenMessages[msg.ID]; !ok {
		s.seenMessages[msg.ID] = struct{}{}
		// Token counts are scoped to the turn in progress. History loads
		// replay the whole conversation; usage from messages older than the
		// turn must not inflate the current counters.
		if msg.Role == "assistant" && msg.Usage != nil && s.inCurrentTurn(msg.Timestamp) {
			s.turnTokens.Input += msg.Usage.Input
			s.turnTokens.Output += msg.Usage.Output
			s.turnTokens.CacheRead += msg.Usage.CacheRead
			s.turnTokens.CacheCreation += msg.Usage.CacheCreation
		}
	}
	switch msg.Role {
	case "user":
		if text := messageText(msg); text != "" {
			if existing := s.byID[msg.ID]; existing != nil {
				existing.Text = text
			} else {
				s.insertItem(&types.ChatItem{
					ID:        msg.ID,
					Kind:      types.ChatItemUser,
					Timestamp: msg.Timestamp,
					Text:      text,
				}, now)
			}
			s.lastRole = "user"
			s.thinking = false
		}
	case "assistant":
		for blockIdx, block := range msg.Blocks {
			switch block.Kind {
			case types.BlockText:
				c.upsertTextItem(s, blockItemID(msg.ID, blockIdx), types.ChatItemAssistant, block.Text, msg.Timestamp, now)
				s.lastTextOutput = block.Text
			case types.BlockThinking:
				c.upsertTextItem(s, blockItemID(msg.ID, blockIdx), types.ChatItemThinking, block.Text, msg.Timestamp, now)
				s.lastThinking = block.Text
			case types.BlockToolUse:
				if block.ToolID == "" {
					continue
				}
				s.tools.Start(block.ToolID, block.ToolName, msg.Timestamp)
				item := s.byID[block.ToolID]
				if item == nil {
					s.insertItem(&types.ChatItem{
						ID:        block.ToolID,
						Kind:      types.ChatItemTool,
						Timestamp: msg.Timestamp,
						ToolName:  block.ToolName,
						Input:     block.Input,
						Status:    types.ToolStatusRunning,
					}, now)
				} else {
					if item.ToolName == "" {
						item.ToolName = block.ToolName
					}
					if item.Input == "" {
						item.Input = block.Input
					}
				}
				if block.ToolName == "TodoWrite" {
					if todo := extractActiveTodo(block.Input); todo != "" {
						s.activeTodo = todo
					}
				}
			}
		}
		s.lastRole = "assistant"
		s.thinking = endsWithThinking(msg)
	}
}

func (c *Coordinator) upsertTextItem(s *sessionState, id string, kind types.ChatItemKind, text string, ts, now time.Time) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if existing := s.byID[id]; existing != nil {
		existing.Text = text
		return
	}
	s.insertItem(&types.ChatItem{
		ID:        id,
		Kind:      kind,
		Timestamp: ts,
		Text:      text,
	}, now)
}

func messageText(msg *types.TranscriptMessage) string {
	var parts []string
	for _, block := range msg.Blocks {
		if block.Kind == types.BlockText && strings.TrimSpace(block.Text) != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// endsWithThinking reports whether the message's final content block is a
// thinking block. Merely containing one does not count as actively thinking.
func endsWithThinking(msg *types.TranscriptMessage) bool {
	if msg == nil || len(msg.Blocks) == 0 {
		return false
	}
	return msg.Blocks[len(msg.Blocks)-1].Kind == types.BlockThinking
}
