package views

import (
	"context"
	"io"
	"net/http"

	"github.com/a-h/templ"
)

// LoginPage renders the login form, login is echoed back after a failure
func LoginPage(login string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="auth"><h1>Login</h1><form method="post" action="/login">`,
			`<label>Username or email <input type="text" name="login" value="`)
		h.text(login)
		h.raw(`" required></label>`,
			`<label>Password <input type="password" name="password" required></label>`,
			`<button type="submit">Login</button></form><p>No account? `)
		h.link("/register", "Register")
		h.raw(`</p></section>`)
		return h.err
	})
}

// RegisterPage renders the sign-up form
func RegisterPage(username, email string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="auth"><h1>Register</h1><form method="post" action="/register">`,
			`<label>Username <input type="text" name="username" maxlength="50" value="`)
		h.text(username)
		h.raw(`" required></label><label>Email <input type="email" name="email" value="`)
		h.text(email)
		h.raw(`" required></label>`,
			`<label>Password <input type="password" name="password" required></label>`,
			`<label>Confirm password <input type="password" name="confirm_password" required></label>`,
			`<button type="submit">Register</button></form></section>`)
		return h.err
	})
}

// ErrorPage shows a status code and message
func ErrorPage(status int, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &htmlWriter{w: w}
		h.raw(`<section class="error"><h1>`)
		h.num(status)
		h.raw(` `)
		h.text(http.StatusText(status))
		h.raw(`</h1><p>`)
		h.text(message)
		h.raw(`</p><p>`)
		h.link("/", "Back to the home page")
		h.raw(`</p></section>`)
		return h.err
	})
}
