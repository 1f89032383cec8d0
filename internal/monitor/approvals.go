package monitor

import (
	"time"

	"github.com/jerryjalapeno/claude-island/internal/types"
)

// handleApprovalRequested queues one more outstanding approval request.
// When the session is already waiting on an earlier request, the earlier
// context stays active and the new one is found later by the pending scan.
func (c *Coordinator) handleApprovalRequested(s *sessionState, e types.ApprovalRequested, now time.Time) {
	if e.ToolID == "" {
		return
	}
	at := e.At
	if at.IsZero() {
		at = now
	}
	item := s.byID[e.ToolID]
	if item == nil {
		item = s.insertItem(&types.ChatItem{
			ID:        e.ToolID,
			Kind:      types.ChatItemTool,
			Timestamp: at,
			ToolName:  e.ToolName,
			Input:     e.Input,
			Status:    types.ToolStatusWaitingForApproval,
		}, now)
	} else {
		item.Status = types.ToolStatusWaitingForApproval
		if item.ToolName == "" {
			item.ToolName = e.ToolName
		}
		if item.Input == "" {
			item.Input = e.Input
		}
	}
	if item == nil {
		return
	}
	s.openApprovals[e.ToolID] = at
	if !s.phase.Is(types.PhaseWaitingForApproval) {
		c.setPhase(s, approvalPhase(types.ApprovalContext{
			ToolID:     e.ToolID,
			ToolName:   item.ToolName,
			Input:      item.Input,
			ReceivedAt: at,
		}))
	}
}

// resolveApproval settles one request (approve, deny, or channel failure).
// It clears bookkeeping for the resolved id only; a resolution for one id
// must never clear state recorded for a different outstanding id.
func (c *Coordinator) resolveApproval(s *sessionState, e types.ApprovalResolved, now time.Time) {
	item := s.byID[e.ToolID]
	if item != nil && item.Kind == types.ChatItemTool {
		switch e.Decision {
		case types.ApprovalGranted:
			if item.Status == types.ToolStatusWaitingForApproval {
				item.Status = types.ToolStatusRunning
			}
			s.tools.Start(e.ToolID, item.ToolName, now)
		default:
			if item.Status == types.ToolStatusWaitingForApproval || item.Status == types.ToolStatusRunning {
				item.Status = types.ToolStatusError
			}
			if e.Reason != "" {
				item.Result = e.Reason
			}
			s.tools.Complete(e.ToolID)
		}
	}
	delete(s.openApprovals, e.ToolID)
	c.promoteNextApproval(s, e.ToolID, e.Decision)
}

// promoteNextApproval advances the phase after a resolution: the earliest
// chat item still waiting for approval becomes the active context, otherwise
// the session resumes Processing. A failed approval channel cannot be
// assumed to have resumed the agent, so with nothing pending it degrades to
// Idle instead.
func (c *Coordinator) promoteNextApproval(s *sessionState, resolvedID string, decision types.ApprovalDecision) {
	if next := s.nextPendingApproval(resolvedID); next != nil {
		receivedAt := s.openApprovals[next.ID]
		if receivedAt.IsZero() {
			receivedAt = next.Timestamp
		}
		c.setPhase(s, approvalPhase(types.ApprovalContext{
			ToolID:     next.ID,
			ToolName:   next.ToolName,
			Input:      next.Input,
			ReceivedAt: receivedAt,
		}))
		return
	}
	if decision == types.ApprovalChannelFailed {
		c.setPhase(s, phaseOf(types.PhaseIdle))
		return
	}
	c.setPhase(s, phaseOf(types.PhaseProcessing))
}
