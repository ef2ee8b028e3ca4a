// Package commands implements the restifier command line.
package commands

import (
	"errors"
	"runtime"

	"github.com/conduit-lang/restifier/internal/cli/ui"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// configError marks failures to load or apply the configuration file
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "restifier",
		Short: "Declarative REST endpoints over document collections",
		Long: color.CyanString(`Restifier - declarative REST over document collections

Declare resources in restifier.yml and restifier serves them:
  GET, POST                 /<collection>
  GET, PUT, PATCH, DELETE   /<collection>/:id

List queries accept filter, sort, limit, skip, populate and field equality.`),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default ./restifier.yml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "disable colored output")

	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewServeCommand())
	rootCmd.AddCommand(NewRoutesCommand())

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the restifier version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			titleColor := color.New(color.FgCyan, color.Bold)
			valueColor := color.New(color.FgWhite)
			if noColor(cmd) {
				titleColor.DisableColor()
				valueColor.DisableColor()
			}

			out := cmd.OutOrStdout()
			for _, line := range [][2]string{
				{"Restifier version: ", Version},
				{"Git commit: ", GitCommit},
				{"Build date: ", BuildDate},
				{"Go version: ", goVer},
			} {
				titleColor.Fprint(out, line[0])
				valueColor.Fprintln(out, line[1])
			}
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		opts := ui.ErrorOptions{Problem: err.Error(), NoColor: noColor(rootCmd)}
		var cfgErr *configError
		if errors.As(err, &cfgErr) {
			opts.Context = "config"
			opts.Suggestions = []string{"check restifier.yml or pass --config <file>"}
		}
		ui.WriteError(rootCmd.ErrOrStderr(), opts)
		return err
	}
	return nil
}

func noColor(cmd *cobra.Command) bool {
	v, err := cmd.Flags().GetBool("no-color")
	return err == nil && v
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}
