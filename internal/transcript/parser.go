package transcript

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"os"
	"sync"

	"github.com/jerryjalapeno/claude-island/internal/logging"
	"github.com/jerryjalapeno/claude-island/internal/types"
)

// Parser reads a session's transcript JSONL incrementally. Each session has
// a cursor holding the byte offset of the last fully consumed line; a call
// resumes from that offset, so coalesced change bursts never lose content.
// A file shorter than the stored offset (or a path change) is a
// discontinuity: the cursor resets and the whole log is re-read.
type Parser struct {
	logger  logging.Logger
	offsets *OffsetStore

	mu      sync.Mutex
	cursors map[string]*cursor
}

// cursor serializes parses for one session. Incremental and full parses for
// the same session can run on different goroutines; the cursor's lock covers
// the whole read-parse-advance sequence so the offset never tears.
type cursor struct {
	mu     sync.Mutex
	path   string
	offset int64
}

func NewParser(logger logging.Logger, offsets *OffsetStore) *Parser {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Parser{
		logger:  logger,
		offsets: offsets,
		cursors: make(map[string]*cursor),
	}
}

func (p *Parser) ParseIncremental(ctx context.Context, sessionID, path string) (*types.IngestResult, error) {
	cur := p.cursorFor(sessionID, path)
	cur.mu.Lock()
	defer cur.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &types.IngestResult{}, nil
		}
		return nil, err
	}

	discontinuity := false
	if cur.path != path || info.Size() < cur.offset {
		discontinuity = cur.offset > 0
		cur.path = path
		cur.offset = 0
	}

	result, consumed, err := p.readFrom(ctx, path, cur.offset)
	if err != nil {
		return nil, err
	}
	result.Discontinuity = discontinuity
	if discontinuity {
		// The fresh read covers the whole log, so its ids are the full
		// in-scope set for reconciliation.
		result.AllMessageIDs = idSet(result.NewMessages)
	}
	cur.offset += consumed
	p.storeCursor(sessionID, cur)
	return result, nil
}

func (p *Parser) ParseFull(ctx context.Context, sessionID, path string) (*types.IngestResult, error) {
	cur := p.cursorFor(sessionID, path)
	cur.mu.Lock()
	defer cur.mu.Unlock()

	result, consumed, err := p.readFrom(ctx, path, 0)
	if err != nil {
		if os.IsNotExist(err) {
			return &types.IngestResult{AllMessageIDs: map[string]struct{}{}}, nil
		}
		return nil, err
	}
	result.AllMessageIDs = idSet(result.NewMessages)
	cur.path = path
	cur.offset = consumed
	p.storeCursor(sessionID, cur)
	return result, nil
}

// ClearSessionCache drops all per-session parser state, so a reused session
// id starts from a clean slate.
func (p *Parser) ClearSessionCache(sessionID, path string) {
	p.mu.Lock()
	delete(p.cursors, sessionID)
	p.mu.Unlock()
	if p.offsets != nil {
		if err := p.offsets.Delete(sessionID); err != nil {
			p.logger.Warn("offset_delete_failed",
				logging.F("session_id", sessionID),
				logging.F("error", err),
			)
		}
	}
}

func (p *Parser) cursorFor(sessionID, path string) *cursor {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cur, ok := p.cursors[sessionID]; ok {
		return cur
	}
	cur := &cursor{path: path}
	if p.offsets != nil {
		if rec, ok, err := p.offsets.Get(sessionID); err == nil && ok {
			cur.path = rec.Path
			cur.offset = rec.Offset
		}
	}
	p.cursors[sessionID] = cur
	return cur
}

func (p *Parser) storeCursor(sessionID string, cur *cursor) {
	if p.offsets == nil {
		return
	}
	if err := p.offsets.Put(sessionID, cur.path, cur.offset); err != nil {
		p.logger.Warn("offset_store_failed",
			logging.F("session_id", sessionID),
			logging.F("error", err),
		)
	}
}

// readFrom parses complete lines starting at offset. A trailing partial line
// is left unconsumed; the writer is still appending it.
func (p *Parser) readFrom(ctx context.Context, path string, offset int64) (*types.IngestResult, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer file.Close()
	if offset > 0 {
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			return nil, 0, err
		}
	}

	result := &types.IngestResult{}
	reader := bufio.NewReaderSize(file, 64*1024)
	var consumed int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		line, err := reader.ReadBytes('\n')
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		consumed += int64(len(line))
		p.mergeLine(result, bytes.TrimRight(line, "\r\n"))
	}
	return result, consumed, nil
}

func (p *Parser) mergeLine(result *types.IngestResult, raw []byte) {
	parsed := parseLine(raw)
	if parsed.message != nil {
		result.NewMessages = append(result.NewMessages, *parsed.message)
	}
	if parsed.summary != "" {
		result.Summary = parsed.summary
	}
	if len(parsed.completed) > 0 {
		result.CompletedToolIDs = append(result.CompletedToolIDs, parsed.completed...)
		if result.ToolResults == nil {
			result.ToolResults = make(map[string]types.ToolResult)
		}
		for id, res := range parsed.toolResults {
			result.ToolResults[id] = res
		}
	}
}

func idSet(messages []types.TranscriptMessage) map[string]struct{} {
	ids := make(map[string]struct{}, len(messages))
	for i := range messages {
		ids[messages[i].ID] = struct{}{}
	}
	return ids
}
