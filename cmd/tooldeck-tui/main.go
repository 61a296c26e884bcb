// tooldeck-tui is the operator confirmation console. It connects to the
// gateway's operator websocket, lists pending confirmation prompts, and
// lets the operator approve or deny each one.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mktr-labs/tooldeck/internal/interfaces"
)

// envelope mirrors the gateway's operator websocket frame format.
type envelope struct {
	Type     string                      `json:"type"`
	Request  *interfaces.ConfirmRequest  `json:"request,omitempty"`
	Decision *interfaces.ConfirmDecision `json:"decision,omitempty"`
	Error    string                      `json:"error,omitempty"`
}

func main() {
	apiURL := flag.String("api", "http://localhost:8430", "tooldeck API URL")
	token := flag.String("token", "", "JWT token (skip login)")
	password := flag.String("password", "", "Operator password (exchanged for a token)")
	flag.Parse()

	if *token == "" && *password != "" {
		t, err := login(*apiURL, *password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "login failed: %v\n", err)
			os.Exit(1)
		}
		*token = t
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn, err := dial(ctx, *apiURL, *token)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect failed: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	model := newConsoleModel(ctx, conn)
	program := tea.NewProgram(model, tea.WithAltScreen())

	// Reader: forward websocket frames into the TUI
	go func() {
		for {
			var env envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				program.Send(disconnectedMsg{err: err})
				return
			}
			switch env.Type {
			case "confirm_request":
				if env.Request != nil {
					program.Send(promptMsg{req: *env.Request})
				}
			case "error":
				program.Send(serverErrorMsg{text: env.Error})
			}
		}
	}()

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "console error: %v\n", err)
		os.Exit(1)
	}
}

// login exchanges the operator password for a JWT.
func login(apiURL, password string) (string, error) {
	body, _ := json.Marshal(map[string]string{"password": password})
	resp, err := (&http.Client{Timeout: 10 * time.Second}).Post(
		apiURL+"/api/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// dial opens the operator websocket, passing the token as a query param.
func dial(ctx context.Context, apiURL, token string) (*websocket.Conn, error) {
	wsURL := strings.Replace(apiURL, "http", "ws", 1) + "/ws/operator"
	if token != "" {
		wsURL += "?token=" + token
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(dialCtx, wsURL, nil)
	return conn, err
}

// ─────────────────────────────────────────────────────
// Bubble Tea messages
// ─────────────────────────────────────────────────────

type promptMsg struct {
	req interfaces.ConfirmRequest
}

type serverErrorMsg struct {
	text string
}

type disconnectedMsg struct {
	err error
}

type decisionSentMsg struct {
	id       string
	approved bool
	err      error
}

// ─────────────────────────────────────────────────────
// Styles
// ─────────────────────────────────────────────────────

var (
	primaryColor = lipgloss.Color("#7C3AED")
	mutedColor   = lipgloss.Color("#6B7280")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	warnColor    = lipgloss.Color("#F59E0B")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	listStyle = lipgloss.NewStyle().
			Width(34).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(1, 1)

	detailBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor)

	selectedStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(warnColor)

	approvedStyle = lipgloss.NewStyle().
			Foreground(successColor)

	deniedStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// ─────────────────────────────────────────────────────
// Console model
// ─────────────────────────────────────────────────────

type promptEntry struct {
	req     interfaces.ConfirmRequest
	decided bool
	outcome string // "approved" or "denied"
}

type consoleModel struct {
	ctx     context.Context
	conn    *websocket.Conn
	prompts []promptEntry
	cursor  int
	detail  viewport.Model
	status  string
	width   int
	height  int
	ready   bool
}

func newConsoleModel(ctx context.Context, conn *websocket.Conn) consoleModel {
	return consoleModel{
		ctx:    ctx,
		conn:   conn,
		status: "connected, waiting for prompts",
	}
}

func (m consoleModel) Init() tea.Cmd {
	return nil
}

// decideCmd sends a decision frame over the websocket.
func (m consoleModel) decideCmd(id string, approved bool) tea.Cmd {
	conn, ctx := m.conn, m.ctx
	return func() tea.Msg {
		env := envelope{
			Type: "decision",
			Decision: &interfaces.ConfirmDecision{
				ID:       id,
				Approved: approved,
			},
		}
		err := wsjson.Write(ctx, conn, env)
		return decisionSentMsg{id: id, approved: approved, err: err}
	}
}

func (m consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				m.syncDetail()
			}
		case "down", "j":
			if m.cursor < len(m.prompts)-1 {
				m.cursor++
				m.syncDetail()
			}
		case "y":
			if e, ok := m.current(); ok && !e.decided {
				return m, m.decideCmd(e.req.ID, true)
			}
		case "n":
			if e, ok := m.current(); ok && !e.decided {
				return m, m.decideCmd(e.req.ID, false)
			}
		}

	case promptMsg:
		m.prompts = append(m.prompts, promptEntry{req: msg.req})
		m.status = fmt.Sprintf("%d pending", m.pendingCount())
		m.syncDetail()

	case decisionSentMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("send failed: %v", msg.err)
			break
		}
		for i := range m.prompts {
			if m.prompts[i].req.ID == msg.id {
				m.prompts[i].decided = true
				if msg.approved {
					m.prompts[i].outcome = "approved"
				} else {
					m.prompts[i].outcome = "denied"
				}
			}
		}
		m.status = fmt.Sprintf("%d pending", m.pendingCount())
		m.syncDetail()

	case serverErrorMsg:
		m.status = "server: " + msg.text

	case disconnectedMsg:
		m.status = "disconnected"
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		detailW := m.width - 38
		detailH := m.height - 5

		if !m.ready {
			m.detail = viewport.New(detailW, detailH)
			m.ready = true
		} else {
			m.detail.Width = detailW
			m.detail.Height = detailH
		}
		m.syncDetail()
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *consoleModel) current() (promptEntry, bool) {
	if m.cursor < 0 || m.cursor >= len(m.prompts) {
		return promptEntry{}, false
	}
	return m.prompts[m.cursor], true
}

func (m *consoleModel) pendingCount() int {
	n := 0
	for _, e := range m.prompts {
		if !e.decided {
			n++
		}
	}
	return n
}

func (m *consoleModel) syncDetail() {
	if !m.ready {
		return
	}
	e, ok := m.current()
	if !ok {
		m.detail.SetContent(lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(1).
			Render("No prompt selected."))
		return
	}

	var sb strings.Builder
	sb.WriteString(selectedStyle.Render(e.req.Summary))
	sb.WriteString("\n\n")
	sb.WriteString(e.req.Detail)
	sb.WriteString("\n\n")
	sb.WriteString(footerStyle.Render(fmt.Sprintf("tool: %s  ·  requested %s",
		e.req.Tool, e.req.CreatedAt.Format("15:04:05"))))
	m.detail.SetContent(sb.String())
}

func (m consoleModel) View() string {
	if !m.ready {
		return "Connecting to tooldeck..."
	}

	header := headerStyle.Width(m.width).Render("  tooldeck operator console  ")

	list := m.renderList()
	detail := detailBorder.Width(m.width - 38).Render(m.detail.View())
	body := lipgloss.JoinHorizontal(lipgloss.Top, list, " ", detail)

	footer := footerStyle.Render(
		fmt.Sprintf("  y: approve │ n: deny │ ↑↓: select │ q: quit │ %s", m.status),
	)

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m consoleModel) renderList() string {
	var sb strings.Builder

	sb.WriteString(selectedStyle.Render("Prompts"))
	sb.WriteString("\n\n")

	if len(m.prompts) == 0 {
		sb.WriteString(footerStyle.Render("none yet"))
	}

	for i, e := range m.prompts {
		var indicator string
		switch {
		case e.outcome == "approved":
			indicator = approvedStyle.Render("✓")
		case e.outcome == "denied":
			indicator = deniedStyle.Render("✗")
		default:
			indicator = pendingStyle.Render("●")
		}

		line := fmt.Sprintf("%s %s", indicator, truncate(e.req.Summary, 26))
		if i == m.cursor {
			line = selectedStyle.Render("> ") + line
		} else {
			line = "  " + line
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return listStyle.Height(m.height - 4).Render(sb.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
