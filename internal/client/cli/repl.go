package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	VerifyEmail(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	LogoutAll(ctx context.Context) error
	ForgotPassword(ctx context.Context) error
	ResetPassword(ctx context.Context) error
	GoogleLogin(ctx context.Context) error
	Me(ctx context.Context) error
	Audit(ctx context.Context, args []string) error
}

// runREPL reads commands from reader until EOF or "exit". Handler errors
// are printed and the loop continues. Handlers prompt on the same reader.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gophauth%s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		err = nil
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn("Available commands: me, audit [n], refresh, logout, logout-all, exit")
			} else {
				printlnFn("Available commands: register, verify, login, google, forgot, reset, exit")
			}
		case "register":
			err = a.Register(ctx)
		case "verify":
			err = a.VerifyEmail(ctx)
		case "login":
			err = a.Login(ctx)
		case "google":
			err = a.GoogleLogin(ctx)
		case "refresh":
			err = a.Refresh(ctx)
		case "logout":
			err = a.Logout(ctx)
		case "logout-all":
			err = a.LogoutAll(ctx)
		case "forgot":
			err = a.ForgotPassword(ctx)
		case "reset":
			err = a.ResetPassword(ctx)
		case "me":
			err = a.Me(ctx)
		case "audit":
			err = a.Audit(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("error:", err)
		}
	}
}
