package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/gogotex/pagebuilder/internal/app"
	"github.com/gogotex/pagebuilder/internal/authz"
	"github.com/gogotex/pagebuilder/internal/config"
	"github.com/gogotex/pagebuilder/internal/content"
	"github.com/gogotex/pagebuilder/internal/document"
	"github.com/gogotex/pagebuilder/internal/tokens"
)

// opener builds the application for a command. Tests swap it.
var opener = func(ctx context.Context) (*app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, authz.AllowAll())
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pbctl",
		Short:         "Manage pagebuilder contents",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(typesCmd(), createCmd(), listCmd(), deleteCmd(), tokenCmd())
	return root
}

func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := opener(ctx)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(authz.WithClaims(ctx, map[string]interface{}{"sub": "pbctl"}), a)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func typesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered content types",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(_ context.Context, a *app.App) error {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"types":          a.Documents.Types(),
					"template_types": a.Documents.TemplateTypes(),
				})
			})
		},
	}
}

func createCmd() *cobra.Command {
	var (
		title, identifier, status, stores, elements string
	)
	cmd := &cobra.Command{
		Use:   "create <type>",
		Short: "Create a content of the given type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseStores(stores)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				d, err := a.Documents.Create(ctx, args[0], document.Fields{
					Title:      title,
					Identifier: identifier,
					Status:     content.Status(status),
					StoreIDs:   ids,
					Elements:   elements,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"content":     d.Content(),
					"preview_url": d.PreviewURL(),
				})
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "content title (defaults to the type)")
	cmd.Flags().StringVar(&identifier, "identifier", "", "unique identifier (generated when empty)")
	cmd.Flags().StringVar(&status, "status", "", "pending, published or revision")
	cmd.Flags().StringVar(&stores, "stores", "", "comma separated store ids")
	cmd.Flags().StringVar(&elements, "elements", "", "builder elements JSON")
	return cmd
}

func listCmd() *cobra.Command {
	var (
		contentType, status string
		page, limit         int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List contents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc := content.SearchCriteria{
				SortOrders:  []content.SortOrder{{Field: "id"}},
				PageSize:    limit,
				CurrentPage: page,
			}
			if contentType != "" {
				sc.Filters = append(sc.Filters, content.Filter{Field: "type", Value: contentType, Condition: content.CondEq})
			}
			if status != "" {
				sc.Filters = append(sc.Filters, content.Filter{Field: "status", Value: status, Condition: content.CondEq})
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				res, err := a.Repo.GetList(ctx, sc)
				if err != nil {
					return err
				}
				w := cmd.OutOrStdout()
				for _, c := range res.Items {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", c.ID, c.Type, c.Status, c.Identifier, c.Title)
				}
				fmt.Fprintf(w, "total: %d\n", res.TotalCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&contentType, "type", "", "filter by content type")
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size (0 for all)")
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a content by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}
			return withApp(cmd, func(ctx context.Context, a *app.App) error {
				if err := a.Repo.DeleteByID(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "deleted content %d\n", id)
				return nil
			})
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		name, email, permissions string
		ttl                      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token <sub>",
		Short: "Issue an access token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if ttl == 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}
			tok, err := tokens.GenerateAccessToken(cfg, tokens.Subject{
				Sub:         args[0],
				Name:        name,
				Email:       email,
				Permissions: splitList(permissions),
			}, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&permissions, "permissions", "pagebuilder::*", "comma separated permissions")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (defaults to JWT_ACCESS_TOKEN_TTL)")
	return cmd
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseStores(s string) ([]int, error) {
	var ids []int
	for _, p := range splitList(s) {
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid store id %q", p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
