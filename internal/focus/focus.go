package focus

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/GianlucaP106/gotmux/gotmux"

	"github.com/jerryjalapeno/claude-island/internal/logging"
)

// tmuxClient is the raw command surface used against the tmux server.
type tmuxClient interface {
	Command(args ...string) (string, error)
}

// TmuxFocuser brings the pane hosting an agent process to the foreground.
// It never fails loudly: a missing tmux server, an unmatched pid, or a
// failed switch all just report false.
type TmuxFocuser struct {
	logger logging.Logger
	tmux   tmuxClient
}

func NewTmuxFocuser(logger logging.Logger) *TmuxFocuser {
	if logger == nil {
		logger = logging.Nop()
	}
	f := &TmuxFocuser{logger: logger}
	tmux, err := gotmux.DefaultTmux()
	if err != nil {
		logger.Debug("tmux_unavailable", logging.F("error", err))
		return f
	}
	f.tmux = tmux
	return f
}

// FocusPID focuses the pane whose shell is an ancestor of pid.
func (f *TmuxFocuser) FocusPID(pid int) bool {
	if f == nil || f.tmux == nil || pid <= 0 {
		return false
	}
	panes := f.listPanes("#{pane_pid}\t#{pane_id}")
	if len(panes) == 0 {
		return false
	}
	byPID := make(map[int]string, len(panes))
	for _, pane := range panes {
		panePID, err := strconv.Atoi(pane[0])
		if err != nil {
			continue
		}
		byPID[panePID] = pane[1]
	}
	// The agent runs somewhere under the pane's shell; walk the parent
	// chain until a pane pid matches.
	for current := pid; current > 1; {
		if target, ok := byPID[current]; ok {
			return f.switchTo(target)
		}
		parent, err := parentPID(current)
		if err != nil {
			return false
		}
		current = parent
	}
	return false
}

// FocusDir focuses the first pane whose current path equals cwd.
func (f *TmuxFocuser) FocusDir(cwd string) bool {
	if f == nil || f.tmux == nil || cwd == "" {
		return false
	}
	for _, pane := range f.listPanes("#{pane_current_path}\t#{pane_id}") {
		if pane[0] == cwd {
			return f.switchTo(pane[1])
		}
	}
	return false
}

func (f *TmuxFocuser) listPanes(format string) [][2]string {
	out, err := f.tmux.Command("list-panes", "-a", "-F", format)
	if err != nil {
		f.logger.Debug("tmux_list_panes_failed", logging.F("error", err))
		return nil
	}
	var panes [][2]string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		fields := strings.SplitN(line, "\t", 2)
		if len(fields) != 2 {
			continue
		}
		panes = append(panes, [2]string{fields[0], fields[1]})
	}
	return panes
}

func (f *TmuxFocuser) switchTo(paneID string) bool {
	if _, err := f.tmux.Command("switch-client", "-t", paneID); err != nil {
		f.logger.Debug("tmux_switch_failed",
			logging.F("pane", paneID),
			logging.F("error", err),
		)
		return false
	}
	_, _ = f.tmux.Command("select-window", "-t", paneID)
	_, _ = f.tmux.Command("select-pane", "-t", paneID)
	return true
}

func parentPID(pid int) (int, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, err
	}
	// Field 4 of /proc/<pid>/stat, after the parenthesized comm which may
	// itself contain spaces.
	raw := string(data)
	closing := strings.LastIndexByte(raw, ')')
	if closing < 0 {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}
	fields := strings.Fields(raw[closing+1:])
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed stat for pid %d", pid)
	}
	return strconv.Atoi(fields[1])
}
