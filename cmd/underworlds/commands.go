package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/underworlds/internal/api"
	"github.com/kalambet/underworlds/internal/assistant"
	"github.com/kalambet/underworlds/internal/catalog"
	"github.com/kalambet/underworlds/internal/config"
	"github.com/kalambet/underworlds/internal/imageurl"
)

// --- catalog ---

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Browse the print catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List prints, optionally filtered by category",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		return writeCatalog(cmd.OutOrStdout(), catalog.Default(), category)
	},
}

var catalogShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one print or, with a numeric id, one journal story",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showCatalogEntry(cmd.OutOrStdout(), catalog.Default(), args[0])
	},
}

func init() {
	catalogListCmd.Flags().String("category", "", `filter by category, e.g. "Fine Art"`)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
}

func writeCatalog(w io.Writer, cat *catalog.Catalog, category string) error {
	products := cat.Products()
	if category != "" {
		c := catalog.Category(category)
		if !c.Valid() {
			return fmt.Errorf("unknown category %q (want one of %v)", category, catalog.Categories)
		}
		products = cat.ProductsByCategory(c)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", stepColor.Sprint(p.ID), p.Name, p.Category, assistant.FormatPrice(p.Price))
	}
	return tw.Flush()
}

func showCatalogEntry(w io.Writer, cat *catalog.Catalog, id string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if n, err := strconv.Atoi(id); err == nil {
		a, ok := cat.Article(n)
		if !ok {
			return fmt.Errorf("story %d not found", n)
		}
		return enc.Encode(a)
	}
	p, ok := cat.Product(id)
	if !ok {
		return fmt.Errorf("print %q not found", id)
	}
	return enc.Encode(p)
}

// --- image-url ---

var imageURLCmd = &cobra.Command{
	Use:   "image-url <image-id>",
	Short: "Resolve an image identifier to its delivery URL",
	Long: `Resolve an image identifier to its delivery URL.

Without a CDN configured (images.cdn_url) the local attachments path is printed.

Examples:
  underworlds image-url DSC00670.JPG
  underworlds image-url "DSC09894 2.jpeg" --width 800 --format webp`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var opts imageurl.Options
		opts.Width, _ = cmd.Flags().GetInt("width")
		opts.Height, _ = cmd.Flags().GetInt("height")
		opts.Quality, _ = cmd.Flags().GetInt("quality")
		opts.Format, _ = cmd.Flags().GetString("format")
		opts.Fit, _ = cmd.Flags().GetString("fit")
		if err := opts.Validate(); err != nil {
			return err
		}

		base, _ := cmd.Flags().GetString("cdn")
		if !cmd.Flags().Changed("cdn") {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			base = cfg.Images.CDNURL
		}

		fmt.Fprintln(cmd.OutOrStdout(), imageurl.New(base).Resolve(args[0], opts))
		return nil
	},
}

func init() {
	imageURLCmd.Flags().Int("width", 0, "target width in pixels")
	imageURLCmd.Flags().Int("height", 0, "target height in pixels")
	imageURLCmd.Flags().Int("quality", 0, "quality 1-100")
	imageURLCmd.Flags().String("format", "", "auto, webp, avif, jpeg or png")
	imageURLCmd.Flags().String("fit", "", "scale-down, contain, cover, crop or pad")
	imageURLCmd.Flags().String("cdn", "", "CDN base URL (overrides images.cdn_url)")
}

// --- exchanges ---

var exchangesCmd = &cobra.Command{
	Use:   "exchanges",
	Short: "Inspect recorded assistant exchanges",
}

var exchangesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent exchanges",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		sessionID, _ := cmd.Flags().GetString("session")
		fallbackOnly, _ := cmd.Flags().GetBool("fallback")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		rows, err := client.exchanges(cmd.Context(), exchangeFilter{
			SessionID:    sessionID,
			FallbackOnly: fallbackOnly,
			Limit:        limit,
		})
		if err != nil {
			return err
		}
		writeExchanges(cmd.OutOrStdout(), rows)
		return nil
	},
}

var exchangesShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a single exchange",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ex, err := client.exchange(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ex)
	},
}

func init() {
	exchangesListCmd.Flags().Int("limit", 20, "maximum number of exchanges")
	exchangesListCmd.Flags().String("session", "", "only exchanges of this session")
	exchangesListCmd.Flags().Bool("fallback", false, "only exchanges answered with the fallback text")
	exchangesCmd.AddCommand(exchangesListCmd)
	exchangesCmd.AddCommand(exchangesShowCmd)
}

func writeExchanges(w io.Writer, rows []exchangeRow) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No exchanges found.")
		return
	}
	for _, ex := range rows {
		text := ex.UserText
		if len(text) > 80 {
			text = text[:80] + "..."
		}
		marker := ""
		if ex.Fallback {
			marker = " " + warningColor.Sprint("[fallback]")
		}
		fmt.Fprintf(w, "%s  %s  %s%s\n", stepColor.Sprint(shortID(ex.ID)), ex.CreatedAt, text, marker)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
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
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", labelColor.Sprint(k.Key), k.Value)
		}
		for _, key := range config.SecretKeys() {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s = %s\n", labelColor.Sprint(key), secretLabel(cfg, key))
		}
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

var configSetSecretCmd = &cobra.Command{
	Use:   "set-secret <key>",
	Short: "Store an API key in the platform secret store (value read from stdin)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("reading secret: %w", err)
		}
		value := strings.TrimSpace(string(data))
		if value == "" {
			return errors.New("empty secret on stdin")
		}

		if err := config.SetSecret(config.NewKeychain(), args[0], value); err != nil {
			return err
		}
		printSuccess("Stored %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configSetSecretCmd)
}

func secretLabel(cfg config.Config, key string) string {
	var v string
	switch key {
	case "server.api_token":
		v = cfg.Server.APIToken
	case "assistant.gemini_api_key":
		v = cfg.Assistant.GeminiAPIKey
	case "assistant.openrouter_api_key":
		v = cfg.Assistant.OpenRouterAPIKey
	}
	return setLabel(v)
}

// --- mcp ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the catalog tools over MCP (stdio transport)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		srv := api.NewMCPServer(api.MCPDeps{
			Catalog: catalog.Default(),
			Images:  imageurl.New(cfg.Images.CDNURL),
			Version: version,
		})
		stdio := server.NewStdioServer(srv)
		if err := stdio.Listen(cmd.Context(), os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("MCP stdio server: %w", err)
		}
		return nil
	},
}
