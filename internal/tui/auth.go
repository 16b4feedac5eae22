package tui

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tuningstudio/tuning/pkg/client"
	"github.com/tuningstudio/tuning/pkg/domain"
)

type authMode int

const (
	authSignIn authMode = iota
	authRegister
)

// authModel is the sign-in / register overlay.
type authModel struct {
	svc    *Services
	mode   authMode
	form   formModel
	closed bool
	width  int
}

type authDoneMsg struct {
	user *domain.User
	mode authMode
	err  error
}

func newAuthModel(svc *Services, mode authMode) authModel {
	return authModel{svc: svc, mode: mode, form: newAuthForm(mode)}
}

func newAuthForm(mode authMode) formModel {
	if mode == authRegister {
		return newForm("CREATE ACCOUNT",
			formField{key: "username", label: "username"},
			formField{key: "email", label: "email"},
			formField{key: "password", label: "password", secret: true},
			formField{key: "password_confirm", label: "repeat", secret: true},
			formField{key: "first_name", label: "first name", placeholder: "optional"},
			formField{key: "last_name", label: "last name", placeholder: "optional"},
		)
	}
	return newForm("SIGN IN",
		formField{key: "username", label: "username"},
		formField{key: "password", label: "password", secret: true},
	)
}

func (m authModel) Update(msg tea.Msg) (authModel, tea.Cmd) {
	switch msg := msg.(type) {
	case authDoneMsg:
		if msg.err != nil {
			m.form.ApplyError(msg.err)
			return m, nil
		}
		m.closed = true
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+r" && !m.form.submitting {
			next := authRegister
			if m.mode == authRegister {
				next = authSignIn
			}
			username := m.form.Value("username")
			m.mode = next
			m.form = newAuthForm(next)
			m.form.SetValue("username", username)
			return m, nil
		}

		var act formAction
		m.form, act = m.form.Update(msg)
		switch act {
		case formCancel:
			m.closed = true
		case formSubmit:
			return m.submit()
		}
	}
	return m, nil
}

func (m authModel) submit() (authModel, tea.Cmd) {
	f := &m.form
	f.ClearErrors()
	if m.svc.Session == nil {
		f.general = "sign-in is unavailable"
		return m, nil
	}

	svc, mode := m.svc, m.mode
	if mode == authSignIn {
		if !f.Require("username", "password") {
			return m, nil
		}
		creds := client.Credentials{Username: f.Value("username"), Password: f.Value("password")}
		f.submitting = true
		return m, func() tea.Msg {
			var u *domain.User
			err := mutation(func(ctx context.Context) error {
				var err error
				u, err = svc.Session.SignIn(ctx, creds)
				return err
			})
			return authDoneMsg{user: u, mode: mode, err: err}
		}
	}

	ok := f.Require("username", "email", "password", "password_confirm")
	if email := f.Value("email"); email != "" && !strings.Contains(email, "@") {
		f.SetError("email", "enter a valid email")
		ok = false
	}
	if pw := f.Value("password"); pw != "" && f.Value("password_confirm") != "" && pw != f.Value("password_confirm") {
		f.SetError("password_confirm", "passwords do not match")
		ok = false
	}
	if !ok {
		return m, nil
	}
	reg := client.Registration{
		Username:        f.Value("username"),
		Email:           f.Value("email"),
		Password:        f.Value("password"),
		PasswordConfirm: f.Value("password_confirm"),
		FirstName:       f.Value("first_name"),
		LastName:        f.Value("last_name"),
	}
	f.submitting = true
	return m, func() tea.Msg {
		var u *domain.User
		err := mutation(func(ctx context.Context) error {
			var err error
			u, err = svc.Session.Register(ctx, reg)
			return err
		})
		return authDoneMsg{user: u, mode: mode, err: err}
	}
}

func (m authModel) View() string {
	var b strings.Builder
	b.WriteString(m.form.View())
	b.WriteString("\n")
	switch m.mode {
	case authSignIn:
		b.WriteString(" " + dimStyle.Render("no account yet? ") + helpEntry("ctrl+r", "register") + "\n")
	case authRegister:
		b.WriteString(" " + dimStyle.Render("have an account? ") + helpEntry("ctrl+r", "sign in") + "\n")
	}
	b.WriteString(" " + helpEntry("tab", "next") + "  " + helpEntry("enter", "send") + "  " + helpEntry("esc", "close"))

	width := 52
	if m.width > 0 && m.width-4 < width {
		width = max(m.width-4, 20)
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(1, 2).
		Width(width).
		Render(b.String())
}
