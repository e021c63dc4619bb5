package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/imamik/ec2fleet/internal/inventory"
	"github.com/imamik/ec2fleet/internal/util/tags"
)

var stdout io.Writer = os.Stdout

var (
	colorBlue  = lipgloss.Color("#3b82f6")
	colorDim   = lipgloss.Color("#6b7280")
	colorGreen = lipgloss.Color("#22c55e")
	colorWhite = lipgloss.Color("#f9fafb")
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	valueStyle = lipgloss.NewStyle().
			Foreground(colorGreen)
)

func isInteractiveTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	fmt.Fprintln(stdout, string(b))
	return nil
}

// style renders s with st only on an interactive terminal.
func style(st lipgloss.Style, s string, styled bool) string {
	if !styled {
		return s
	}
	return st.Render(s)
}

// renderRecords produces one row per record: id, ip, zone, roles.
func renderRecords(records []inventory.Record, styled bool) string {
	var b strings.Builder
	if styled {
		b.WriteString(style(headerStyle, fmt.Sprintf("%-20s %-16s %-12s %s", "INSTANCE", "IP", "ZONE", "ROLES"), true))
		b.WriteString("\n")
	}
	for _, r := range records {
		id := r.InstanceID
		if id == "" {
			id = "-"
		}
		roles, _ := r.Tag(tags.KeyRoles)
		fmt.Fprintf(&b, "%-20s %-16s %-12s %s\n", id, r.PrivateIPAddress, r.AvailabilityZone, roles)
	}
	if styled {
		b.WriteString(style(dimStyle, fmt.Sprintf("%d instances", len(records)), true))
		b.WriteString("\n")
	}
	return b.String()
}

// renderKeyValues produces sorted "key: value" lines under title.
func renderKeyValues(title string, kv map[string]string, styled bool) string {
	keys := make([]string, 0, len(kv))
	for k := range kv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if title != "" && styled {
		b.WriteString(style(titleStyle, title, true))
		b.WriteString("\n")
	}
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\n", style(dimStyle, k, styled), style(valueStyle, kv[k], styled))
	}
	return b.String()
}
