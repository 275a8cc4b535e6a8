package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/pixperk/pixtracker/compact"
)

// ANSI escape sequences
const (
	reset   = "\033[0m"
	bold    = "\033[1m"
	dim     = "\033[2m"
	red     = "\033[31m"
	green   = "\033[32m"
	yellow  = "\033[33m"
	magenta = "\033[35m"
	cyan    = "\033[36m"
	white   = "\033[37m"
)

const (
	ruleWidth  = 50
	labelWidth = 12
	peerCols   = 2
)

// out is where every Print helper writes. Tests swap it for a buffer.
var out io.Writer = os.Stdout

var logoSmall = `
        _      _                  _
  _ __ (_)_  _| |_ _ __ __ _  ___| | _____ _ __
 | '_ \| \ \/ / __| '__/ _' |/ __| |/ / _ \ '__|
 | |_) | |>  <| |_| | | (_| | (__|   <  __/ |
 | .__/|_/_/\_\\__|_|  \__,_|\___|_|\_\___|_|
 |_|
`

// paint wraps s in the given escape codes and a trailing reset.
func paint(s string, codes ...string) string {
	if len(codes) == 0 {
		return s
	}
	return strings.Join(codes, "") + s + reset
}

func rule(width int) string {
	return strings.Repeat("─", width)
}

func banner() string {
	return paint(logoSmall, cyan, bold)
}

func PrintLogoSmall() {
	fmt.Fprintln(out, banner())
}

// PrintHeader draws title centred in a rounded box.
func PrintHeader(title string) {
	n := utf8.RuneCountInString(title)
	left := max((ruleWidth-n)/2, 0)
	right := max(ruleWidth-n-left, 0)

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+paint("╭"+rule(ruleWidth)+"╮", cyan))
	fmt.Fprintln(out, "  "+paint("│", cyan)+
		strings.Repeat(" ", left)+paint(title, bold, white)+strings.Repeat(" ", right)+
		paint("│", cyan))
	fmt.Fprintln(out, "  "+paint("╰"+rule(ruleWidth)+"╯", cyan))
}

func PrintSection(title string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+paint("▸ "+title, bold, magenta))
	fmt.Fprintln(out, "  "+paint(rule(ruleWidth-2), dim))
}

func printLine(key, value string, codes ...string) {
	fmt.Fprintf(out, "  %s %s\n", paint(fmt.Sprintf("%-*s", labelWidth, key), dim), paint(value, codes...))
}

func PrintKeyValue(key, value string) {
	printLine(key, value, white)
}

func PrintKeyValueHighlight(key, value string) {
	printLine(key, value, bold, cyan)
}

// PrintToggle shows a boolean setting as [on] or [off].
func PrintToggle(label string, on bool) {
	if on {
		printLine(label, "["+paint("on", bold, green)+"]")
		return
	}
	printLine(label, "["+paint("off", bold, yellow)+"]")
}

func PrintError(msg string) {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+paint("✗ "+msg, bold, red))
}

func PrintInfo(msg string) {
	fmt.Fprintln(out, "  "+paint("→ "+msg, dim, cyan))
}

func PrintDivider() {
	fmt.Fprintln(out)
	fmt.Fprintln(out, "  "+paint(rule(ruleWidth), dim))
}

// PrintPeers lists peers a few per row, each as ip:port.
func PrintPeers(peers []compact.Peer) {
	if len(peers) == 0 {
		PrintInfo("no peers")
		return
	}
	for i := 0; i < len(peers); i += peerCols {
		var row strings.Builder
		for _, p := range peers[i:min(i+peerCols, len(peers))] {
			fmt.Fprintf(&row, "%-24s", p.String())
		}
		fmt.Fprintln(out, "  "+strings.TrimRight(row.String(), " "))
	}
}
