package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/thoth/internal/config"
	"github.com/kalambet/thoth/internal/engine"
	"github.com/kalambet/thoth/internal/enhance"
	"github.com/kalambet/thoth/internal/prompts"
)

// --- enhance ---

var enhanceCmd = &cobra.Command{
	Use:   "enhance [text...]",
	Short: "Enhance text with the configured model and prompt",
	Long: `Enhance text with a local model. Text is taken from the arguments,
or from stdin when no arguments are given.

Examples:
  thoth enhance "their going to the store"
  pbpaste | thoth enhance --prompt summarise
  thoth enhance --prompt-body "Translate to French: {text}" "good morning"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		text, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}

		model, _ := cmd.Flags().GetString("model")
		promptID, _ := cmd.Flags().GetString("prompt")
		body, _ := cmd.Flags().GetString("prompt-body")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		remote, _ := cmd.Flags().GetBool("remote")

		req := enhance.Request{Text: text, Model: model, PromptID: promptID, PromptBody: body}

		ctx, cancel := withTimeout(cmd.Context(), timeout)
		defer cancel()

		if remote {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			return enhanceRemote(ctx, clientFor(cfg), req, cmd.OutOrStdout())
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()
		return enhanceLocal(ctx, a.service, req, cmd.OutOrStdout())
	},
}

func init() {
	enhanceCmd.Flags().String("model", "", "model name (default: enhancement.model)")
	enhanceCmd.Flags().String("prompt", "", "prompt template id (default: enhancement.prompt_id)")
	enhanceCmd.Flags().String("prompt-body", "", "inline template containing {text}")
	enhanceCmd.Flags().Duration("timeout", 0, "give up after this long (0 waits indefinitely)")
	enhanceCmd.Flags().Bool("remote", false, "send the request to the running thoth server")
}

// readInput joins args, or reads all of stdin when there are none.
func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func enhanceLocal(ctx context.Context, svc *enhance.Service, req enhance.Request, w io.Writer) error {
	res, err := svc.Enhance(ctx, svc.WithDefaults(req))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("enhancement timed out: %w", err)
		}
		return err
	}
	fmt.Fprintln(w, res.Text)
	return nil
}

func enhanceRemote(ctx context.Context, c *apiClient, req enhance.Request, w io.Writer) error {
	var res enhance.Result
	if err := c.postJSON(ctx, "/v1/enhance", req, &res); err != nil {
		return err
	}
	fmt.Fprintln(w, res.Text)
	return nil
}

// --- models ---

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List or pull inference models",
}

var modelsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List models installed on the inference server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		models, err := a.service.ListModels(cmd.Context())
		if err != nil {
			return err
		}
		if len(models) == 0 {
			printWarning("No models installed. Try `thoth models pull %s`.", a.cfg.Enhancement.Model)
			return nil
		}
		for _, m := range models {
			marker := " "
			if m == a.cfg.Enhancement.Model || strings.HasPrefix(m, a.cfg.Enhancement.Model+":") {
				marker = "*"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, m)
		}
		return nil
	},
}

var modelsPullCmd = &cobra.Command{
	Use:   "pull [model]",
	Short: "Download a model (default: enhancement.model)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		name := a.cfg.Enhancement.Model
		if len(args) == 1 {
			name = args[0]
		}
		printStep("Pulling %s", name)
		err = a.engine.PullModel(cmd.Context(), name, func(p engine.PullProgress) {
			if pct := p.Percent(); pct >= 0 {
				fmt.Fprintf(os.Stderr, "  %s %.0f%%\n", p.Status, pct)
			} else {
				fmt.Fprintf(os.Stderr, "  %s\n", p.Status)
			}
		})
		if err != nil {
			return err
		}
		printSuccess("Model %s ready", name)
		return nil
	},
}

func init() {
	modelsCmd.AddCommand(modelsListCmd)
	modelsCmd.AddCommand(modelsPullCmd)
}

// --- prompts ---

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Manage prompt templates",
}

var promptsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and custom prompt templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		list, err := a.service.ListPrompts()
		if err != nil {
			return err
		}
		return printPrompts(cmd.OutOrStdout(), list)
	},
}

func printPrompts(w io.Writer, list []prompts.Template) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLABEL\tORIGIN\tCONTEXT")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Label, t.Origin, contextLabel(t.Context))
	}
	return tw.Flush()
}

func contextLabel(f prompts.ContextFlags) string {
	var parts []string
	if f.Clipboard {
		parts = append(parts, "clipboard")
	}
	if f.Selection {
		parts = append(parts, "selection")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

var promptsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a custom prompt template",
	Long: `Add a custom prompt template. The body must contain {text} exactly once.

Examples:
  thoth prompts add --label "Haiku" --body "Rewrite as a haiku: {text}"
  thoth prompts add --label "Reply" --file reply.txt --clipboard`,
	RunE: func(cmd *cobra.Command, args []string) error {
		label, _ := cmd.Flags().GetString("label")
		body, _ := cmd.Flags().GetString("body")
		file, _ := cmd.Flags().GetString("file")
		clip, _ := cmd.Flags().GetBool("clipboard")
		sel, _ := cmd.Flags().GetBool("selection")

		if body == "" && file == "" {
			return fmt.Errorf("one of --body or --file is required")
		}
		if file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("reading file: %w", err)
			}
			body = string(data)
		}

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		t, err := a.service.SavePrompt(label, body, prompts.ContextFlags{Clipboard: clip, Selection: sel})
		if err != nil {
			return err
		}
		printSuccess("Saved prompt %q as %s", t.Label, t.ID)
		return nil
	},
}

var promptsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a custom prompt template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.service.DeletePrompt(args[0]); err != nil {
			return err
		}
		printSuccess("Deleted prompt %s", args[0])
		return nil
	},
}

var promptsImportCmd = &cobra.Command{
	Use:   "import [path]",
	Short: "Import custom prompts from a legacy prompts.json",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := prompts.LegacyPath()
		if len(args) == 1 {
			path = args[0]
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		defer f.Close()

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.catalog.ImportLegacy(f)
		if err != nil {
			return err
		}
		reportImport(res)
		return nil
	},
}

func reportImport(res prompts.ImportResult) {
	for _, t := range res.Imported {
		printSuccess("Imported %q as %s", t.Label, t.ID)
	}
	for label, reason := range res.Skipped {
		printWarning("Skipped %q: %s", label, reason)
	}
	printStep("%d imported, %d skipped", len(res.Imported), len(res.Skipped))
}

func init() {
	promptsAddCmd.Flags().String("label", "", "display label (must be unique)")
	promptsAddCmd.Flags().String("body", "", "template body containing {text}")
	promptsAddCmd.Flags().String("file", "", "read the template body from a file")
	promptsAddCmd.Flags().Bool("clipboard", false, "capture clipboard contents as context")
	promptsAddCmd.Flags().Bool("selection", false, "capture the current selection as context")

	promptsCmd.AddCommand(promptsListCmd)
	promptsCmd.AddCommand(promptsAddCmd)
	promptsCmd.AddCommand(promptsDeleteCmd)
	promptsCmd.AddCommand(promptsImportCmd)
}

// --- context ---

var contextCmd = &cobra.Command{
	Use:   "context",
	Short: "Inspect ambient context sources",
}

var contextShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show what the clipboard and selection readers currently see",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		snap := a.service.Context()
		printStatus("Clipboard", "%s", preview(snap.Clipboard))
		printStatus("Selection", "%s", preview(snap.Selection))
		return nil
	},
}

// preview shortens s to one line for display.
func preview(s string) string {
	if s == "" {
		return "(none)"
	}
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) > 60 {
		return string(r[:60]) + "..."
	}
	return s
}

func init() {
	contextCmd.AddCommand(contextShowCmd)
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent enhancements (metadata only)",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		rows, err := a.store.RecentEnhancements(limit)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "TIME\tMODEL\tPROMPT\tCHARS\tDURATION\tSTATUS")
		for _, e := range rows {
			status := e.Status
			if e.ErrorKind != "" {
				status += " (" + e.ErrorKind + ")"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d→%d\t%s\t%s\n",
				e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				e.Model, e.PromptID, e.InputChars, e.OutputChars,
				e.Duration.Round(time.Millisecond), status)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries to show")
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		if cfg.Server.APIToken != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", colorize(colorBold, "server.api_token"), "(set)")
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

var configSetTokenCmd = &cobra.Command{
	Use:   "set-token [token]",
	Short: "Store the API bearer token in the platform secret store",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := readInput(args, cmd.InOrStdin())
		if err != nil {
			return err
		}
		token = strings.TrimSpace(token)
		if token == "" {
			return fmt.Errorf("token cannot be empty")
		}
		if err := config.SetToken(token); err != nil {
			return err
		}
		printSuccess("API token stored")
		return nil
	},
}

var configUnsetTokenCmd = &cobra.Command{
	Use:   "unset-token",
	Short: "Remove the API bearer token from the platform secret store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.DeleteToken(); err != nil {
			return err
		}
		printSuccess("API token removed")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configSetTokenCmd)
	configCmd.AddCommand(configUnsetTokenCmd)
}
