// Copyright (c) 2025 Aetheris RAG Team
// SPDX-License-Identifier: AGPL-3.0-or-later

package ui

import (
	"context"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aetheris-rag/aetheris-tui/internal/chat"
	"github.com/aetheris-rag/aetheris-tui/internal/config"
	"github.com/aetheris-rag/aetheris-tui/internal/history"
	"github.com/aetheris-rag/aetheris-tui/internal/nav"
	"github.com/aetheris-rag/aetheris-tui/internal/session"
	"github.com/aetheris-rag/aetheris-tui/internal/ui/styles"
)

// noticeTTL is how long a transient status message stays visible.
const noticeTTL = 4 * time.Second

// =============================================================================
// APP MODEL
// =============================================================================

// Deps carries the wired collaborators for the root model.
type Deps struct {
	Config     *config.Config
	Session    *session.Manager
	Navigator  *nav.Navigator
	Controller *chat.Controller
	History    *history.Store // may be nil
	Version    string
}

// App is the root Bubble Tea model.
type App struct {
	theme *styles.Theme
	deps  Deps

	width  int
	height int

	// starting is true until the startup session validation settles
	// and the first navigation lands.
	starting bool

	login    loginModel
	register registerModel
	home     homeModel
	chatView chatModel

	notice   string
	noticeLv noticeLevel
	noticeAt time.Time
}

// NewApp constructs the root model.
func NewApp(deps Deps) *App {
	theme := themeForConfig(deps.Config)
	return &App{
		theme:    theme,
		deps:     deps,
		starting: true,
		login:    newLoginModel(theme),
		register: newRegisterModel(theme),
		home:     newHomeModel(theme, deps.Version),
		chatView: newChatModel(theme, deps.Config),
	}
}

func themeForConfig(cfg *config.Config) *styles.Theme {
	if cfg == nil {
		return styles.NewTheme()
	}
	switch cfg.UI.Theme {
	case "dark":
		return styles.NewThemeForMode(true)
	case "light":
		return styles.NewThemeForMode(false)
	default:
		return styles.NewTheme()
	}
}

// Init restores the persisted session in the background, then issues
// the first navigation. The guard holds that navigation until token
// validation settles, so the startup view is always consistent with the
// session outcome.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.chatView.Init(),
		func() tea.Msg {
			a.deps.Session.Initialize(context.Background())
			return sessionReadyMsg{LoggedIn: a.deps.Session.IsLoggedIn()}
		},
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.theme.SetSize(msg.Width, msg.Height)
		a.chatView.setSize(msg.Width, msg.Height)
		a.home.setSize(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.updateActiveView(msg)

	case sessionReadyMsg:
		a.starting = false
		return a, a.navigateCmd("/", true)

	case navigateMsg:
		return a, a.navigateCmd(msg.Path, msg.Replace)

	case backMsg:
		a.deps.Navigator.Back()
		return a, a.enterViewCmd(a.deps.Navigator.Current())

	case navigatedMsg:
		if msg.Err != nil {
			return a, a.showNotice(noticeError, msg.Err.Error())
		}
		return a, a.enterViewCmd(msg.Route)

	case loggedOutMsg:
		a.deps.Session.Logout()
		a.deps.Controller.ClearAll()
		cmds := []tea.Cmd{a.navigateCmd(a.loginPath(), true)}
		if msg.Forced {
			cmds = append(cmds, a.showNotice(noticeWarning, "session expired, please sign in again"))
		}
		return a, tea.Batch(cmds...)

	case configReloadedMsg:
		if msg.Config == nil {
			return a, nil
		}
		a.deps.Config = msg.Config
		// The theme pointer is shared by every view: refresh in place.
		*a.theme = *themeForConfig(msg.Config)
		a.theme.SetSize(a.width, a.height)
		a.chatView.reconfigure(msg.Config)
		return a, a.showNotice(noticeInfo, "configuration reloaded")

	case noticeMsg:
		a.notice = msg.Text
		a.noticeLv = msg.Level
		a.noticeAt = msg.At
		at := msg.At
		return a, tea.Tick(noticeTTL, func(time.Time) tea.Msg {
			return clearNoticeMsg{At: at}
		})

	case clearNoticeMsg:
		if msg.At.Equal(a.noticeAt) {
			a.notice = ""
		}
		return a, nil
	}

	return a.updateActiveView(msg)
}

// updateActiveView dispatches to the sub-model for the current route.
func (a *App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.deps.Navigator.Current().Name {
	case nav.RouteLogin:
		a.login, cmd = a.login.Update(msg, a.deps)
	case nav.RouteRegister:
		a.register, cmd = a.register.Update(msg, a.deps)
	case nav.RouteChat:
		a.chatView, cmd = a.chatView.Update(msg, a.deps)
	default:
		a.home, cmd = a.home.Update(msg, a.deps)
	}
	return a, cmd
}

// navigateCmd runs the guarded navigation off the update loop; the
// guard may block while a token validation is in flight.
func (a *App) navigateCmd(path string, replace bool) tea.Cmd {
	return func() tea.Msg {
		var (
			route nav.Route
			err   error
		)
		if replace {
			route, err = a.deps.Navigator.Replace(context.Background(), path)
		} else {
			route, err = a.deps.Navigator.Navigate(context.Background(), path)
		}
		return navigatedMsg{Route: route, Path: a.deps.Navigator.CurrentPath(), Err: err}
	}
}

// enterViewCmd resets the view that was just navigated to.
func (a *App) enterViewCmd(route nav.Route) tea.Cmd {
	switch route.Name {
	case nav.RouteLogin:
		a.login = newLoginModel(a.theme)
		return a.login.focusCmd()
	case nav.RouteRegister:
		a.register = newRegisterModel(a.theme)
		return a.register.focusCmd()
	case nav.RouteChat:
		return a.chatView.enter(a.deps)
	default:
		return a.home.enter(a.deps)
	}
}

func (a *App) loginPath() string {
	return a.deps.Navigator.PathByName(nav.RouteLogin)
}

func (a *App) showNotice(level noticeLevel, text string) tea.Cmd {
	at := time.Now()
	return func() tea.Msg {
		return noticeMsg{Level: level, Text: text, At: at}
	}
}

// =============================================================================
// VIEW
// =============================================================================

// View implements tea.Model.
func (a *App) View() string {
	if a.starting {
		return a.theme.Muted.Render("\n  restoring session...")
	}

	var body string
	switch a.deps.Navigator.Current().Name {
	case nav.RouteLogin:
		body = a.login.View(a.width)
	case nav.RouteRegister:
		body = a.register.View(a.width)
	case nav.RouteChat:
		body = a.chatView.View(a.width, a.height)
	default:
		body = a.home.View(a.width)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.headerView(),
		body,
		a.statusView(),
	)
}

func (a *App) headerView() string {
	title := a.theme.HeaderTitle.Render("Aetheris RAG")
	sub := a.theme.HeaderSubtitle.Render(a.deps.Navigator.Current().WindowTitle())
	return a.theme.Header.Width(max(a.width, 1)).Render(title + "  " + sub)
}

func (a *App) statusView() string {
	var left string
	if a.deps.Session.IsLoggedIn() {
		left = a.theme.StatusUser.Render(a.deps.Session.Username())
	} else {
		left = a.theme.Muted.Render("not signed in")
	}

	if a.notice != "" {
		style := a.theme.NoticeInfo
		switch a.noticeLv {
		case noticeSuccess:
			style = a.theme.NoticeSuccess
		case noticeWarning:
			style = a.theme.NoticeWarning
		case noticeError:
			style = a.theme.NoticeError
		}
		left += "  " + style.Render(a.notice)
	}

	help := a.theme.ShortcutKey.Render("ctrl+c") + a.theme.ShortcutDesc.Render(" quit")
	gap := a.width - lipgloss.Width(left) - lipgloss.Width(help) - 2
	if gap < 1 {
		gap = 1
	}
	return a.theme.StatusBar.Width(max(a.width, 1)).Render(left + strings.Repeat(" ", gap) + help)
}

// =============================================================================
// PROGRAM-SEND NOTIFIER
// =============================================================================

// ProgramNotifier adapts chat notices into Bubble Tea messages once the
// program is running. Notices raised before SetProgram are dropped to
// the log.
type ProgramNotifier struct {
	mu   sync.Mutex
	send func(tea.Msg)
	logf func(format string, args ...any)
}

// NewProgramNotifier creates a notifier that buffers into logf until a
// program is attached.
func NewProgramNotifier(logf func(format string, args ...any)) *ProgramNotifier {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &ProgramNotifier{logf: logf}
}

// SetProgram attaches the running program.
func (p *ProgramNotifier) SetProgram(prog *tea.Program) {
	p.mu.Lock()
	p.send = prog.Send
	p.mu.Unlock()
}

func (p *ProgramNotifier) emit(level noticeLevel, msg string) {
	p.mu.Lock()
	send := p.send
	p.mu.Unlock()
	if send == nil {
		p.logf("notice: %s", msg)
		return
	}
	send(noticeMsg{Level: level, Text: msg, At: time.Now()})
}

// Success implements chat.Notifier.
func (p *ProgramNotifier) Success(msg string) { p.emit(noticeSuccess, msg) }

// Info implements chat.Notifier.
func (p *ProgramNotifier) Info(msg string) { p.emit(noticeInfo, msg) }

// Warning implements chat.Notifier.
func (p *ProgramNotifier) Warning(msg string) { p.emit(noticeWarning, msg) }

// Error implements chat.Notifier.
func (p *ProgramNotifier) Error(msg string) { p.emit(noticeError, msg) }
