package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// getSimpleText and getPassword point at the interactive helpers and are
// swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	var id string
	err = a.call(ctx, func(ctx context.Context) error {
		id, err = a.client.Register(ctx, email, password)
		return err
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Registered %s. Check your email for the verification link.\n", id)
	return nil
}

func (a *App) VerifyEmail(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter verification token", a.out)
	if err != nil {
		return err
	}
	if err := a.call(ctx, func(ctx context.Context) error { return a.client.VerifyEmail(ctx, token) }); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Email verified")
	return nil
}

func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.call(ctx, func(ctx context.Context) error { return a.client.Login(ctx, email, password) }); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

// GoogleLogin prints the consent URL, then asks for the code and state the
// browser was redirected back with.
func (a *App) GoogleLogin(ctx context.Context) error {
	var url string
	err := a.call(ctx, func(ctx context.Context) (err error) {
		url, err = a.client.GoogleAuthURL(ctx)
		return err
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Open in a browser and sign in:\n%s\n", url)

	code, err := getSimpleText(a.reader, "Enter the code from the callback URL", a.out)
	if err != nil {
		return err
	}
	state, err := getSimpleText(a.reader, "Enter the state from the callback URL", a.out)
	if err != nil {
		return err
	}

	if err := a.call(ctx, func(ctx context.Context) error { return a.client.GoogleLogin(ctx, code, state) }); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Login successful")
	return nil
}

func (a *App) Refresh(ctx context.Context) error {
	if err := a.call(ctx, a.client.Refresh); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Session refreshed")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	if err := a.call(ctx, a.client.Logout); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out")
	return nil
}

func (a *App) LogoutAll(ctx context.Context) error {
	if err := a.call(ctx, a.client.LogoutAll); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out from all devices")
	return nil
}

func (a *App) ForgotPassword(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	if err := a.call(ctx, func(ctx context.Context) error { return a.client.ForgotPassword(ctx, email) }); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "If the email exists, a reset link has been sent")
	return nil
}

func (a *App) ResetPassword(ctx context.Context) error {
	token, err := getSimpleText(a.reader, "Enter reset token", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out, "Enter new password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.call(ctx, func(ctx context.Context) error { return a.client.ResetPassword(ctx, token, password) }); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Password reset. Please log in again.")
	return nil
}
