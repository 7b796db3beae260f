package cli

import "context"

func (a *App) getStatus() string {
	if a.isLoggedIn() {
		return " (signed in)"
	}
	return ""
}

// Root prints the banner and runs the REPL on stdin.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to gophauth CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}
