package helpers

import (
	"slices"
	"strings"

	"github.com/spf13/cobra"

	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
	"github.com/bigsql/pgadmin4/internal/session"
)

func formatNames(formats []OutputFormat) []string {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return names
}

// AddFormatFlag registers -o/--format restricted to formats, with shell
// completion of the allowed values.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, def OutputFormat, formats []OutputFormat) {
	names := formatNames(formats)
	cmd.Flags().StringVarP(formatVar, "format", "o", string(def), "Output format ("+strings.Join(names, ", ")+")")
	_ = cmd.RegisterFlagCompletionFunc("format", cobra.FixedCompletions(names, cobra.ShellCompDirectiveNoFileComp))
}

// ValidateFormat rejects a format outside formats as a configuration error.
func ValidateFormat(format string, formats []OutputFormat) error {
	if slices.Contains(formats, OutputFormat(format)) {
		return nil
	}
	return pgerrors.Errorf(pgerrors.KindConfiguration, "helpers.ValidateFormat",
		"unsupported format %q, must be one of: %s", format, strings.Join(formatNames(formats), ", "))
}

// ReportOptionFlags are the report metadata flags shared by the profile
// commands. The dedicated flags win over --option pairs.
type ReportOptionFlags struct {
	Pairs       map[string]string
	Name        string
	Title       string
	Description string
}

// Add registers --option, --name, --title and --description. nameHelp
// describes the default report name.
func (f *ReportOptionFlags) Add(cmd *cobra.Command, nameHelp string) {
	keys := session.OptionKeys()
	cmd.Flags().StringToStringVar(&f.Pairs, "option", nil, "Report option key=value ("+strings.Join(keys, ", ")+")")
	cmd.Flags().StringVar(&f.Name, "name", "", "Report name (default: "+nameHelp+")")
	cmd.Flags().StringVar(&f.Title, "title", "", "Report title")
	cmd.Flags().StringVar(&f.Description, "description", "", "Report description")

	completions := make([]string, len(keys))
	for i, k := range keys {
		completions[i] = k + "="
	}
	_ = cmd.RegisterFlagCompletionFunc("option", cobra.FixedCompletions(completions, cobra.ShellCompDirectiveNoSpace))
}

// Options merges the flags into one option map. Empty when nothing was set.
func (f *ReportOptionFlags) Options() map[string]string {
	opts := make(map[string]string, len(f.Pairs)+3)
	for k, v := range f.Pairs {
		opts[k] = v
	}
	if f.Name != "" {
		opts[session.OptName] = f.Name
	}
	if f.Title != "" {
		opts[session.OptTitle] = f.Title
	}
	if f.Description != "" {
		opts[session.OptDescription] = f.Description
	}
	return opts
}
