package session

import (
	"slices"
	"sort"
	"strings"

	"github.com/bigsql/pgadmin4/internal/constants"
	pgerrors "github.com/bigsql/pgadmin4/internal/errors"
)

// Recognized report option keys.
const (
	OptName        = "name"
	OptTitle       = "title"
	OptTabStop     = "tab_stop"
	OptSVGWidth    = "svg_width"
	OptTableWidth  = "table_width"
	OptDescription = "description"
)

// optionOrder fixes the display order of Options.
var optionOrder = []string{OptName, OptTitle, OptTabStop, OptSVGWidth, OptTableWidth, OptDescription}

var optionLabels = map[string]string{
	OptTabStop:     "Tabstop",
	OptSVGWidth:    "SVG_Width",
	OptTableWidth:  "Table_Width",
	OptDescription: "Description",
}

// ReportConfig is free-form report metadata, mutable until the report is
// generated.
type ReportConfig struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	TabStop     string `json:"tab_stop"`
	SVGWidth    string `json:"svg_width"`
	TableWidth  string `json:"table_width"`
	Description string `json:"description"`
}

// ReportDefaults seeds the presentation options of new sessions.
type ReportDefaults struct {
	TabStop     string
	SVGWidth    string
	TableWidth  string
	Description string
}

// DefaultReportDefaults returns the built-in presentation defaults.
func DefaultReportDefaults() ReportDefaults {
	return ReportDefaults{
		TabStop:     constants.DefaultTabStop,
		SVGWidth:    constants.DefaultSVGWidth,
		TableWidth:  constants.DefaultTableWidth,
		Description: constants.DefaultDesc,
	}
}

// DirectReportConfig is the initial config for profiling routine name.
func (d ReportDefaults) DirectReportConfig(name string) ReportConfig {
	return d.build(name, constants.ReportTitlePrefix+name)
}

// IndirectReportConfig is the initial config for monitoring database.
func (d ReportDefaults) IndirectReportConfig(database string) ReportConfig {
	return d.build(constants.IndirectReportName, constants.ReportTitlePrefix+database)
}

func (d ReportDefaults) build(name, title string) ReportConfig {
	return ReportConfig{
		Name:        name,
		Title:       title,
		TabStop:     d.TabStop,
		SVGWidth:    d.SVGWidth,
		TableWidth:  d.TableWidth,
		Description: d.Description,
	}
}

// Get returns the value of option key.
func (c *ReportConfig) Get(key string) (string, error) {
	p, err := c.field(key)
	if err != nil {
		return "", err
	}
	return *p, nil
}

// Set assigns option key. Unknown keys are configuration errors.
func (c *ReportConfig) Set(key, value string) error {
	p, err := c.field(key)
	if err != nil {
		return err
	}
	*p = value
	return nil
}

// Apply sets every option in opts, validating all keys before changing
// anything.
func (c *ReportConfig) Apply(opts map[string]string) error {
	var unknown []string
	for k := range opts {
		if _, err := c.field(k); err != nil {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return pgerrors.Errorf(pgerrors.KindConfiguration, "session.ReportConfig",
			"unrecognized report option(s): %s", strings.Join(unknown, ", "))
	}
	for k, v := range opts {
		_ = c.Set(k, v)
	}
	return nil
}

// ReportOption is a labelled report option for display.
type ReportOption struct {
	Key   string `json:"-"`
	Label string `json:"option"`
	Value string `json:"value"`
}

// Options lists the options in display order with their labels.
func (c *ReportConfig) Options() []ReportOption {
	out := make([]ReportOption, 0, len(optionOrder))
	for _, k := range optionOrder {
		v, _ := c.Get(k)
		out = append(out, ReportOption{Key: k, Label: OptionLabel(k), Value: v})
	}
	return out
}

// OptionKeys lists the recognised option keys in display order.
func OptionKeys() []string {
	return slices.Clone(optionOrder)
}

// OptionLabel returns the display label for key.
func OptionLabel(key string) string {
	if l, ok := optionLabels[key]; ok {
		return l
	}
	if key == "" {
		return key
	}
	return strings.ToUpper(key[:1]) + key[1:]
}

// OptionKey maps a display label or key back to its option key.
func OptionKey(labelOrKey string) (string, bool) {
	k := strings.ToLower(labelOrKey)
	if k == "tabstop" {
		return OptTabStop, true
	}
	for _, known := range optionOrder {
		if k == known {
			return known, true
		}
	}
	return "", false
}

func (c *ReportConfig) field(key string) (*string, error) {
	switch key {
	case OptName:
		return &c.Name, nil
	case OptTitle:
		return &c.Title, nil
	case OptTabStop:
		return &c.TabStop, nil
	case OptSVGWidth:
		return &c.SVGWidth, nil
	case OptTableWidth:
		return &c.TableWidth, nil
	case OptDescription:
		return &c.Description, nil
	}
	return nil, pgerrors.Errorf(pgerrors.KindConfiguration, "session.ReportConfig", "unrecognized report option %q", key)
}
