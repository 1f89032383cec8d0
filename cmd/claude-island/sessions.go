package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"

	"github.com/jerryjalapeno/claude-island/internal/config"
	"github.com/jerryjalapeno/claude-island/internal/types"
)

type SessionsCmd struct {
	JSON bool `help:"Emit the raw session list as JSON."`
}

func (c *SessionsCmd) Run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token := readTokenQuiet()

	client := &http.Client{Timeout: 5 * time.Second}
	req, err := http.NewRequest(http.MethodGet, cfg.DaemonBaseURL()+"/v1/sessions", nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", cfg.DaemonBaseURL(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("daemon returned %s", resp.Status)
	}

	var payload struct {
		Sessions []*types.Session `json:"sessions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return err
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(payload.Sessions)
	}

	if len(payload.Sessions) == 0 {
		fmt.Println("no sessions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROJECT\tPHASE\tPENDING\tLAST ACTIVITY")
	rows := lo.Map(payload.Sessions, func(s *types.Session, _ int) string {
		return fmt.Sprintf("%s\t%s\t%s\t%d\t%s",
			shortID(s.ID),
			s.ProjectName,
			phaseLabel(s),
			s.PendingCount,
			s.LastActivityAt.Local().Format("15:04:05"),
		)
	})
	for _, row := range rows {
		fmt.Fprintln(w, row)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func phaseLabel(s *types.Session) string {
	if s.Phase.Kind == types.PhaseWaitingForApproval && s.Phase.Approval != nil {
		return fmt.Sprintf("%s (%s)", s.Phase.Kind, s.Phase.Approval.ToolName)
	}
	return string(s.Phase.Kind)
}

type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(version)
	return nil
}
