package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jerryjalapeno/claude-island/internal/config"
)

// HookCmd forwards one lifecycle hook payload from stdin to the daemon.
// It is installed as the agent's hook command, so it must never fail in a
// way that blocks the agent: delivery problems are swallowed after a best
// effort, and only malformed invocation reports an error.
type HookCmd struct {
	Event string `arg:"" optional:"" help:"Hook event name override (defaults to the payload's hook_event_name)."`
}

func (c *HookCmd) Run() error {
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read hook payload: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("decode hook payload: %w", err)
	}
	if c.Event != "" {
		payload["hook_event_name"] = c.Event
	}
	enrichPayload(payload)

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return nil
	}
	token := readTokenQuiet()
	client := &http.Client{Timeout: 2 * time.Second}
	req, err := http.NewRequest(http.MethodPost, cfg.DaemonBaseURL()+"/v1/events", bytes.NewReader(body))
	if err != nil {
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		// Daemon not running; the hook must stay invisible to the agent.
		return nil
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// enrichPayload adds process context only the hook process can observe:
// the agent pid, the hosting tmux pane, and the checked-out branch.
func enrichPayload(payload map[string]any) {
	if _, ok := payload["pid"]; !ok {
		payload["pid"] = os.Getppid()
	}
	if pane := os.Getenv("TMUX_PANE"); pane != "" {
		if _, ok := payload["terminal"]; !ok {
			payload["terminal"] = pane
		}
	}
	cwd, _ := payload["cwd"].(string)
	if cwd == "" {
		cwd, _ = os.Getwd()
		if cwd != "" {
			payload["cwd"] = cwd
		}
	}
	if _, ok := payload["branch"]; !ok && cwd != "" {
		if branch := currentBranch(cwd); branch != "" {
			payload["branch"] = branch
		}
	}
}

// currentBranch reads .git/HEAD directly; spawning git from a hook on every
// lifecycle event is too heavy.
func currentBranch(cwd string) string {
	for dir := cwd; ; dir = filepath.Dir(dir) {
		data, err := os.ReadFile(filepath.Join(dir, ".git", "HEAD"))
		if err == nil {
			head := strings.TrimSpace(string(data))
			const prefix = "ref: refs/heads/"
			if strings.HasPrefix(head, prefix) {
				return strings.TrimPrefix(head, prefix)
			}
			return ""
		}
		if filepath.Dir(dir) == dir {
			return ""
		}
	}
}

func readTokenQuiet() string {
	tokenPath, err := config.TokenPath()
	if err != nil {
		return ""
	}
	data, err := os.ReadFile(tokenPath)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
