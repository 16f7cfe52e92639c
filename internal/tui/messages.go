package tui

import (
	"os/exec"
	"runtime"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/prototypeforge/dimensiondoor/internal/tunnel"
)

// tunnelEventMsg wraps one event from the supervisor's event channel.
type tunnelEventMsg struct {
	event tunnel.Event
}

// listenForEvents returns a command that blocks on the client's event
// channel and forwards whatever it receives to the Bubble Tea runtime.
func listenForEvents(client *tunnel.Client) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-client.Events
		if !ok {
			return nil
		}
		return tunnelEventMsg{event: ev}
	}
}

// openBrowserMsg is sent after attempting to open a URL in the browser.
type openBrowserMsg struct {
	err error
}

// openBrowser returns a command that opens the given URL in the default
// browser.
func openBrowser(url string) tea.Cmd {
	return func() tea.Msg {
		var cmd *exec.Cmd
		switch runtime.GOOS {
		case "darwin":
			cmd = exec.Command("open", url)
		case "windows":
			cmd = exec.Command("cmd", "/c", "start", url)
		default:
			cmd = exec.Command("xdg-open", url)
		}
		return openBrowserMsg{err: cmd.Start()}
	}
}

// RenderTrafficLine produces one formatted traffic log line.
func RenderTrafficLine(method, path string, status int, duration time.Duration, ts time.Time) string {
	timeStr := dimStyle.Render(ts.Format("15:04:05"))
	truncPath := path
	if len(truncPath) > 30 {
		truncPath = truncPath[:30]
	}
	return dimStyle.Render(" ") + timeStr + "  " + StyledMethod(method) + "  " +
		truncPath + "  " + StyledStatus(status) + "  " +
		dimStyle.Render(durationLabel(duration))
}

func durationLabel(d time.Duration) string {
	ms := d.Milliseconds()
	return time.Duration(ms * int64(time.Millisecond)).String()
}
