package monitor

import (
	"testing"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

func TestInsertItemOrdersByTimestamp(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newSessionState("s1", "/work/p", now)

	s.insertItem(&types.ChatItem{ID: "late", Kind: types.ChatItemUser, Timestamp: now.Add(2 * time.Second)}, now)
	s.insertItem(&types.ChatItem{ID: "early", Kind: types.ChatItemUser, Timestamp: now.Add(time.Second)}, now)
	s.insertItem(&types.ChatItem{ID: "late", Kind: types.ChatItemUser, Timestamp: now.Add(5 * time.Second)}, now)

	if len(s.items) != 2 {
		t.Fatalf("items = %d, want 2 (duplicate id absorbed)", len(s.items))
	}
	if s.items[0].ID != "early" || s.items[1].ID != "late" {
		t.Fatalf("order = [%s %s], want [early late]", s.items[0].ID, s.items[1].ID)
	}
}

func TestNextPendingApprovalScansTimestampOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newSessionState("s1", "/work/p", now)

	s.insertItem(&types.ChatItem{
		ID: "b", Kind: types.ChatItemTool, Timestamp: now.Add(2 * time.Second),
		Status: types.ToolStatusWaitingForApproval,
	}, now)
	s.insertItem(&types.ChatItem{
		ID: "a", Kind: types.ChatItemTool, Timestamp: now.Add(time.Second),
		Status: types.ToolStatusWaitingForApproval,
	}, now)
	s.insertItem(&types.ChatItem{
		ID: "running", Kind: types.ChatItemTool, Timestamp: now,
		Status: types.ToolStatusRunning,
	}, now)

	if next := s.nextPendingApproval(""); next == nil || next.ID != "a" {
		t.Fatalf("next pending = %v, want a", next)
	}
	if next := s.nextPendingApproval("a"); next == nil || next.ID != "b" {
		t.Fatalf("next pending excluding a = %v, want b", next)
	}
	if next := s.nextPendingApproval("x"); next == nil || next.ID != "a" {
		t.Fatalf("exclusion of unknown id changed the scan: %v", next)
	}
}

func TestConversationInfoLastMessageShapes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name     string
		item     *types.ChatItem
		wantMsg  string
		wantRole string
	}{
		{
			name:     "user text",
			item:     &types.ChatItem{ID: "u1", Kind: types.ChatItemUser, Text: "hi", Timestamp: now},
			wantMsg:  "hi",
			wantRole: "user",
		},
		{
			name:     "tool call",
			item:     &types.ChatItem{ID: "t1", Kind: types.ChatItemTool, ToolName: "Bash", Timestamp: now},
			wantMsg:  "Bash",
			wantRole: "assistant",
		},
		{
			name:     "assistant text",
			item:     &types.ChatItem{ID: "a1", Kind: types.ChatItemAssistant, Text: "done", Timestamp: now},
			wantMsg:  "done",
			wantRole: "assistant",
		},
		{
			name:     "interrupt marker",
			item:     &types.ChatItem{ID: "i1", Kind: types.ChatItemInterrupted, Timestamp: now},
			wantMsg:  "interrupted",
			wantRole: "user",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newSessionState("s1", "/work/p", now)
			s.insertItem(tc.item, now)
			info := s.conversationInfo()
			if info.LastMessage != tc.wantMsg {
				t.Fatalf("last message = %q, want %q", info.LastMessage, tc.wantMsg)
			}
			if info.LastMessageRole != tc.wantRole {
				t.Fatalf("last role = %q, want %q", info.LastMessageRole, tc.wantRole)
			}
		})
	}
}

func TestProjectNameFromCwd(t *testing.T) {
	tests := []struct {
		cwd  string
		want string
	}{
		{"/home/dev/projects/island", "island"},
		{"/home/dev/projects/island/", "island"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := projectNameFor(tc.cwd); got != tc.want {
			t.Fatalf("projectNameFor(%q) = %q, want %q", tc.cwd, got, tc.want)
		}
	}
}
