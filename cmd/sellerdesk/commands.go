package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"sellerdesk/internal/config"
	"sellerdesk/internal/knowledge"
)

// --- status ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sellerdesk server status and the latest automation pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}

		client := &http.Client{Timeout: 2 * time.Second}
		resp, err := client.Get(fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port))
		if err != nil {
			printStatus("Server", "stopped")
			return nil
		}
		resp.Body.Close()
		printStatus("Server", "running on port %d", cfg.Server.Port)

		api, err := newAPIClient()
		if err != nil {
			return err
		}
		statusResp, err := api.get(cmd.Context(), "/status")
		if err != nil {
			return err
		}

		var status struct {
			Snapshot struct {
				TakenAt time.Time `json:"taken_at"`
				Stores  []struct {
					Store     string   `json:"store"`
					Claims    []any    `json:"claims"`
					Questions []any    `json:"questions"`
					Errors    []string `json:"errors"`
				} `json:"stores"`
			} `json:"snapshot"`
		}
		if err := decodeJSON(statusResp, &status); err != nil {
			return err
		}

		if status.Snapshot.TakenAt.IsZero() {
			printStatus("Last pass", "not yet completed")
			return nil
		}
		printStatus("Last pass", "%s", status.Snapshot.TakenAt.Format(time.RFC3339))
		for _, st := range status.Snapshot.Stores {
			printStatus(st.Store, "%d claims, %d questions, %d errors",
				len(st.Claims), len(st.Questions), len(st.Errors))
		}
		return nil
	},
}

// --- stores ---

var storesCmd = &cobra.Command{
	Use:   "stores",
	Short: "List configured stores and their automation flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/stores")
		if err != nil {
			return err
		}

		var stores []struct {
			Name          string `json:"name"`
			SellerID      string `json:"seller_id"`
			ApproveClaims bool   `json:"approve_claims"`
			AutoAnswer    bool   `json:"auto_answer"`
			Notify        bool   `json:"notify"`
			DelayMinutes  int    `json:"delay_minutes"`
		}
		if err := decodeJSON(resp, &stores); err != nil {
			return err
		}

		for _, s := range stores {
			fmt.Printf("%s (seller %s)\n", colorize(colorBold, s.Name), s.SellerID)
			fmt.Printf("  approve-claims=%t auto-answer=%t notify=%t delay=%dm\n",
				s.ApproveClaims, s.AutoAnswer, s.Notify, s.DelayMinutes)
		}
		return nil
	},
}

// --- questions ---

var questionsCmd = &cobra.Command{
	Use:   "questions <store>",
	Short: "List waiting customer questions for a store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/stores/"+args[0]+"/questions")
		if err != nil {
			return err
		}

		var questions []struct {
			ID      int64  `json:"id"`
			Product string `json:"product"`
			Text    string `json:"text"`
			Handled bool   `json:"handled"`
		}
		if err := decodeJSON(resp, &questions); err != nil {
			return err
		}

		if len(questions) == 0 {
			fmt.Println("No waiting questions.")
			return nil
		}
		for _, q := range questions {
			marker := " "
			if q.Handled {
				marker = colorize(colorGreen, "✓")
			}
			fmt.Printf("%s %s  %s\n", marker, colorize(colorCyan, fmt.Sprintf("%d", q.ID)), q.Product)
			fmt.Printf("    %s\n", q.Text)
		}
		return nil
	},
}

// --- answer ---

var answerCmd = &cobra.Command{
	Use:   "answer <store> <question-id> <text>",
	Short: "Send an answer for a waiting question",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/stores/%s/questions/%s/answer", args[0], args[1])
		resp, err := client.post(cmd.Context(), path, map[string]string{"text": args[2]})
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		printSuccess("Answer sent for question %s", args[1])
		return nil
	},
}

// --- suggest ---

var suggestCmd = &cobra.Command{
	Use:   "suggest <store> <question-id>",
	Short: "Generate an answer suggestion without sending it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := fmt.Sprintf("/stores/%s/questions/%s/suggest", args[0], args[1])
		resp, err := client.post(cmd.Context(), path, nil)
		if err != nil {
			return err
		}

		var result struct {
			Text string `json:"text"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}
		fmt.Println(result.Text)
		return nil
	},
}

// --- templates ---

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List the stored answer templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/templates")
		if err != nil {
			return err
		}

		var templates []struct {
			Keyword string `json:"keyword"`
			Body    string `json:"body"`
		}
		if err := decodeJSON(resp, &templates); err != nil {
			return err
		}

		if len(templates) == 0 {
			fmt.Println("No templates loaded.")
			return nil
		}
		for _, t := range templates {
			fmt.Printf("%s\n  %s\n", colorize(colorBold, "#"+t.Keyword), t.Body)
		}
		return nil
	},
}

// --- answers ---

var answersCmd = &cobra.Command{
	Use:   "answers",
	Short: "Show recently dispatched answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), fmt.Sprintf("/answers?limit=%d", limit))
		if err != nil {
			return err
		}

		var answers []struct {
			Store      string    `json:"store"`
			QuestionID int64     `json:"question_id"`
			Origin     string    `json:"origin"`
			Body       string    `json:"body"`
			CreatedAt  time.Time `json:"created_at"`
		}
		if err := decodeJSON(resp, &answers); err != nil {
			return err
		}

		if len(answers) == 0 {
			fmt.Println("No answers dispatched yet.")
			return nil
		}
		for _, a := range answers {
			fmt.Printf("%s  %s/%d  [%s]\n  %s\n",
				a.CreatedAt.Format("2006-01-02 15:04"),
				colorize(colorCyan, a.Store), a.QuestionID, a.Origin, a.Body)
		}
		return nil
	},
}

func init() {
	answersCmd.Flags().Int("limit", 20, "maximum number of answers to show")
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import <templates|examples> <file.csv>",
	Short: "Import templates or few-shot examples from a CSV file",
	Long: `Import knowledge from CSV files into the local store.

Formats:
  templates: keyword,body
  examples:  product,question,answer`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, path := args[0], args[1]
		if kind != "templates" && kind != "examples" {
			return fmt.Errorf("unknown import kind %q (want templates or examples)", kind)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()

		store, err := knowledge.Open(cfg.Storage.DataDir)
		if err != nil {
			return fmt.Errorf("opening knowledge store: %w", err)
		}
		defer store.Close()

		var n int
		if kind == "templates" {
			n, err = store.ImportTemplates(f)
		} else {
			n, err = store.ImportExamples(f)
		}
		if err != nil {
			return fmt.Errorf("importing %s: %w", kind, err)
		}

		printSuccess("Imported %d %s from %s", n, kind, path)
		return nil
	},
}
