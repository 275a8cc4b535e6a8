package cmd

import (
	"bytes"
	"net"
	"regexp"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pixperk/pixtracker/compact"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansi = regexp.MustCompile("\033\\[[0-9;]*m")

// capture runs fn with out redirected and returns the printed lines without
// escape codes.
func capture(t *testing.T, fn func()) []string {
	t.Helper()
	var buf bytes.Buffer
	prev := out
	out = &buf
	t.Cleanup(func() { out = prev })

	fn()
	return strings.Split(strings.TrimRight(ansi.ReplaceAllString(buf.String(), ""), "\n"), "\n")
}

func TestPrintHeaderBoxIsAligned(t *testing.T) {
	for _, title := range []string{"ANNOUNCE", "TRACKER", "X", strings.Repeat("Y", 60)} {
		lines := capture(t, func() { PrintHeader(title) })
		require.Len(t, lines, 4)

		top := utf8.RuneCountInString(lines[1])
		if len(title) <= ruleWidth {
			assert.Equal(t, top, utf8.RuneCountInString(lines[2]), title)
		}
		assert.Equal(t, top, utf8.RuneCountInString(lines[3]), title)
		assert.Contains(t, lines[2], title)
	}
}

func TestPrintLines(t *testing.T) {
	var tests = []struct {
		name string
		fn   func()
		want []string
	}{
		{
			name: "key value",
			fn:   func() { PrintKeyValue("Seeders", "3") },
			want: []string{"  Seeders      3"},
		},
		{
			name: "toggle on",
			fn:   func() { PrintToggle("Stats", true) },
			want: []string{"  Stats        [on]"},
		},
		{
			name: "toggle off",
			fn:   func() { PrintToggle("Errors", false) },
			want: []string{"  Errors       [off]"},
		},
		{
			name: "error",
			fn:   func() { PrintError("boom") },
			want: []string{"", "  ✗ boom"},
		},
		{
			name: "no peers",
			fn:   func() { PrintPeers(nil) },
			want: []string{"  → no peers"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, capture(t, tt.fn))
		})
	}
}

func TestPrintPeersInRows(t *testing.T) {
	var peers []compact.Peer
	for port := 6881; port <= 6883; port++ {
		p, err := compact.EncodePeer(net.ParseIP("10.0.0.1"), port)
		require.NoError(t, err)
		peers = append(peers, p)
	}

	lines := capture(t, func() { PrintPeers(peers) })
	require.Len(t, lines, 2)
	assert.Equal(t, "  10.0.0.1:6881           10.0.0.1:6882", lines[0])
	assert.Equal(t, "  10.0.0.1:6883", lines[1])
}
