package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/codestream-dev/codestream/model"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List archived sessions",
	RunE:  runSessions,
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an archived session and its files",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(showCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	var sessions []*model.GenerationSession
	if err := getJSON("/api/sessions", &sessions); err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODE\tSTATUS\tPROMPT\tCREATED")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Mode, renderStatus(s.Status),
			model.Truncate(s.Prompt, 50),
			s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runShow(cmd *cobra.Command, args []string) error {
	id := args[0]

	var sess model.GenerationSession
	if err := getJSON("/api/sessions/"+id, &sess); err != nil {
		return err
	}
	var files []*model.FileRecord
	if err := getJSON("/api/sessions/"+id+"/files", &files); err != nil {
		return err
	}

	fmt.Printf("Session %s  %s  (%s)\n", sess.ID, renderStatus(sess.Status), sess.Mode)
	fmt.Printf("Prompt: %s\n", sess.Prompt)
	if sess.Error != "" {
		fmt.Printf("Error: %s\n", errStyle.Render(sess.Error))
	}
	if sess.Answer != "" {
		fmt.Printf("\n%s\n", sess.Answer)
	}

	for _, f := range files {
		header := fmt.Sprintf("--- %s (%s, %d bytes) ---", f.Path, f.Language, len(f.Content))
		fmt.Printf("\n%s\n%s", fileStyle.Render(header), f.Content)
	}
	return nil
}

func renderStatus(status model.Status) string {
	switch status {
	case model.StatusComplete:
		return doneStyle.Render("complete")
	case model.StatusError:
		return errStyle.Render("error")
	case model.StatusCancelled:
		return cancelStyle.Render("cancelled")
	default:
		return string(status)
	}
}

func getJSON(path string, v any) error {
	resp, err := http.Get(serverURL + path)
	if err != nil {
		return fmt.Errorf("connecting to server: %w\nIs the relay running? Start it with: codestream serve", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error (%d): %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
