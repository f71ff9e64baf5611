package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/larder/internal/config"
	"github.com/kalambet/larder/internal/ingest"
	"github.com/kalambet/larder/internal/ingredient"
	"github.com/kalambet/larder/internal/session"
	"github.com/kalambet/larder/internal/storage"
	"github.com/kalambet/larder/internal/tools"
)

// --- chat ---

var chatCmd = &cobra.Command{
	Use:   "chat [utterance]",
	Short: "Talk to the kitchen assistant",
	Long: `Talk to the kitchen assistant.

With an argument, runs one turn and exits. Without one, starts a REPL.
Conversation history is kept in <data_dir>/history.json and sent with
every turn. In the REPL, /clear forgets the history and /quit exits.

Examples:
  larder chat "add a gallon of milk to my list"
  larder chat`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		path := historyPath(cfg)
		hist, err := session.Load(path, cfg.Assistant.HistoryCap)
		if err != nil {
			printWarning("starting with empty history: %v", err)
			hist = session.New(cfg.Assistant.HistoryCap)
		}

		if len(args) > 0 {
			_, err := chatTurn(cmd.Context(), client, hist, path, strings.Join(args, " "))
			return err
		}
		return runChat(cmd.Context(), client, hist, path, os.Stdin)
	},
}

type turnReply struct {
	Reply   string `json:"reply"`
	Outcome *struct {
		Intent   string `json:"intent"`
		Navigate string `json:"navigate"`
	} `json:"outcome"`
	ToolCalls []struct {
		Name string `json:"name"`
	} `json:"tool_calls"`
}

// chatTurn sends one utterance with the saved history and records the
// exchange. History is only written when the server answered.
func chatTurn(ctx context.Context, client *apiClient, hist *session.History, path, utterance string) (turnReply, error) {
	resp, err := client.post(ctx, "/assistant/turns", map[string]any{
		"utterance": utterance,
		"history":   hist.Messages(0),
	})
	if err != nil {
		return turnReply{}, err
	}
	var reply turnReply
	if err := decodeJSON(resp, &reply); err != nil {
		return turnReply{}, err
	}

	action := ""
	if reply.Outcome != nil {
		action = reply.Outcome.Intent
	}
	hist.Append(session.RoleUser, utterance, "")
	hist.Append(session.RoleAssistant, reply.Reply, action)
	if err := hist.Save(path); err != nil {
		printWarning("could not save history: %v", err)
	}

	for _, c := range reply.ToolCalls {
		out("%s\n", colorize(colorCyan, "  ["+c.Name+"]"))
	}
	out("%s\n", reply.Reply)
	if reply.Outcome != nil && reply.Outcome.Navigate != "" {
		out("%s\n", colorize(colorCyan, "  → "+reply.Outcome.Navigate))
	}
	return reply, nil
}

func runChat(ctx context.Context, client *apiClient, hist *session.History, path string, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		out("%s ", colorize(colorBold, ">"))
		if !scanner.Scan() {
			out("\n")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			hist.Clear()
			if err := hist.Save(path); err != nil {
				printWarning("could not save history: %v", err)
			}
			printSuccess("History cleared")
			continue
		}
		if _, err := chatTurn(ctx, client, hist, path, line); err != nil {
			printError("%v", err)
		}
	}
}

// --- tools ---

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List or call catalog tools directly",
}

var toolsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/tools")
		if err != nil {
			return err
		}
		var defs []tools.Definition
		if err := decodeJSON(resp, &defs); err != nil {
			return err
		}
		for _, d := range defs {
			out("%s  %s\n", colorize(colorBold, d.Name), d.Description)
		}
		return nil
	},
}

var toolsCallCmd = &cobra.Command{
	Use:   "call <name> [json-arguments]",
	Short: "Call one tool with JSON arguments",
	Long: `Call one tool with JSON arguments.

Examples:
  larder tools call get_pantry
  larder tools call add_pantry_item '{"name":"rice","quantity":2,"unit":"kg"}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		toolArgs := map[string]any{}
		if len(args) == 2 {
			if err := json.Unmarshal([]byte(args[1]), &toolArgs); err != nil {
				return fmt.Errorf("arguments must be a JSON object: %w", err)
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/tools/"+url.PathEscape(args[0]), toolArgs)
		if err != nil {
			return err
		}
		var res tools.Result
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("%s failed: %s", args[0], res.Error)
		}
		return printJSON(stdout, res.Data)
	},
}

func init() {
	toolsCmd.AddCommand(toolsListCmd)
	toolsCmd.AddCommand(toolsCallCmd)
}

// --- parse ---

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a recipe file or ingredient text locally",
	Long: `Parse a recipe file or ingredient text without a running server.

A file argument is read as HTML, PDF or plain text by its extension and
printed as the recipe larder would import. With --text, or with no file,
each line is run through the ingredient parser.

Examples:
  larder parse ./pancakes.pdf
  larder parse --text "1 1/2 cups flour"
  pbpaste | larder parse`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text, _ := cmd.Flags().GetString("text")
		if text != "" {
			return printJSON(stdout, ingredient.ParseBatch(text))
		}
		if len(args) == 0 {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			return printJSON(stdout, ingredient.ParseBatch(string(data)))
		}

		recipe, err := parseRecipeFile(args[0])
		if err != nil {
			return err
		}
		return printJSON(stdout, recipe)
	},
}

func init() {
	parseCmd.Flags().String("text", "", "ingredient lines to parse")
}

func parseRecipeFile(path string) (storage.Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return storage.Recipe{}, fmt.Errorf("reading file: %w", err)
	}

	var doc ingest.Document
	switch fileKind(path) {
	case ingest.KindPDF:
		doc, err = ingest.FromPDF(bytes.NewReader(data), int64(len(data)))
	case ingest.KindHTML:
		doc, err = ingest.FromHTML(bytes.NewReader(data))
	default:
		doc = ingest.FromText(string(data))
	}
	if err != nil {
		return storage.Recipe{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return ingest.Recipe(doc, ingest.Request{}), nil
}

func fileKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return ingest.KindPDF
	case ".html", ".htm":
		return ingest.KindHTML
	default:
		return ingest.KindText
	}
}

// --- import ---

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a recipe from a URL or file",
	Long: `Import a recipe from a URL or file. The server queues the import and
parses it in the background; use "larder import status <job-id>" to follow it.

Examples:
  larder import --url https://example.com/best-pancakes
  larder import --file ./grandma.pdf --name "Grandma's pie" --tags dessert,baking`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rawURL, _ := cmd.Flags().GetString("url")
		file, _ := cmd.Flags().GetString("file")
		name, _ := cmd.Flags().GetString("name")
		tagsStr, _ := cmd.Flags().GetString("tags")

		req, err := importRequest(rawURL, file, name, tagsStr)
		if err != nil {
			return err
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/recipes/import", req)
		if err != nil {
			return err
		}
		var result struct {
			JobID string `json:"job_id"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Queued import %s", result.JobID)
		return nil
	},
}

var importStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show the state of an import job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.get(cmd.Context(), "/recipes/import/"+url.PathEscape(args[0]))
		if err != nil {
			return err
		}
		var job struct {
			Status   string `json:"status"`
			Attempts int    `json:"attempts"`
			Error    string `json:"error"`
		}
		if err := decodeJSON(resp, &job); err != nil {
			return err
		}

		printStatus("Status", "%s", job.Status)
		printStatus("Attempts", "%d", job.Attempts)
		if job.Error != "" {
			printStatus("Last error", "%s", job.Error)
		}
		return nil
	},
}

func init() {
	importCmd.Flags().String("url", "", "recipe page to fetch")
	importCmd.Flags().String("file", "", "HTML, PDF or text file to import")
	importCmd.Flags().String("name", "", "recipe name (default: the title found in the source)")
	importCmd.Flags().String("tags", "", "comma-separated tags")
	importCmd.AddCommand(importStatusCmd)
}

func importRequest(rawURL, file, name, tagsStr string) (ingest.Request, error) {
	if (rawURL == "") == (file == "") {
		return ingest.Request{}, fmt.Errorf("exactly one of --url or --file is required")
	}

	req := ingest.Request{Name: name}
	if tagsStr != "" {
		for _, tag := range strings.Split(tagsStr, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				req.Tags = append(req.Tags, tag)
			}
		}
	}

	if rawURL != "" {
		req.Kind = ingest.KindURL
		req.URL = rawURL
		return req, nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return ingest.Request{}, fmt.Errorf("reading file: %w", err)
	}
	req.Kind = fileKind(file)
	if req.Kind == ingest.KindPDF {
		req.Content = base64.StdEncoding.EncodeToString(data)
	} else {
		req.Content = string(data)
	}
	return req, nil
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

		for _, k := range config.ShowAll(cfg) {
			out("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "($"+k.EnvVar+")"))
		}
		out("  file: %s\n", config.ConfigFilePath())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
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
	Short: "Remove a configuration value so its default applies",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}
		printSuccess("Unset %s", args[0])
		return nil
	},
}

func completeConfigKey(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return config.ValidKeys(), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	configSetCmd.ValidArgsFunction = completeConfigKey
	configUnsetCmd.ValidArgsFunction = completeConfigKey
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}

