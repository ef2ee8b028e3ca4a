package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/conduit-lang/restifier/internal/app"
	"github.com/conduit-lang/restifier/internal/cli/config"
	"github.com/conduit-lang/restifier/internal/cli/ui"
	"github.com/conduit-lang/restifier/internal/orm/store/memory"
	"github.com/conduit-lang/restifier/internal/web/router"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// NewRoutesCommand creates the routes command
func NewRoutesCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the routes the declared resources serve",
		Long: `List every route mounted for the resources declared in the config file.

No store connection is made; routes are computed from the declarations.`,
		Example: `  restifier routes
  restifier routes --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return &configError{err}
			}
			routes, err := listRoutes(cmd.Context(), cfg)
			if err != nil {
				return &configError{err}
			}
			return printRoutes(cmd.OutOrStdout(), routes, format, noColor(cmd))
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format: table or yaml")
	return cmd
}

func listRoutes(ctx context.Context, cfg *config.Config) ([]router.RouteInfo, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.FromConfig(ctx, cfg, app.WithLogger(zap.NewNop()), app.WithStore(memory.New()))
	if err != nil {
		return nil, err
	}
	defer a.Close()
	return a.Routes(), nil
}

func printRoutes(w io.Writer, routes []router.RouteInfo, format string, noColor bool) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(routes); err != nil {
			return fmt.Errorf("encode routes: %w", err)
		}
		return enc.Close()

	case "table", "":
		table := ui.NewTable(w, noColor, "METHOD", "PATTERN", "RESOURCE", "OPERATION")
		table.ColorCells(func(column int, value string) *color.Color {
			if column == 0 {
				return ui.MethodColor(value)
			}
			return nil
		})
		for _, r := range routes {
			table.AddRow(r.Method, r.Pattern, r.Resource, r.Operation)
		}
		table.Render()
		return nil

	default:
		return fmt.Errorf("unknown format %q: use table or yaml", format)
	}
}
