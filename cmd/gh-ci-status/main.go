package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, defaultApp(), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	return exitCode(cmd.ExecuteContext(ctx), stderr)
}

// exitCode prints err once and maps it to the process exit code
func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) && exitErr.err == nil {
		return exitErr.code
	}

	r := lipgloss.NewRenderer(stderr)
	if os.Getenv("NO_COLOR") != "" {
		r.SetColorProfile(termenv.Ascii)
	}
	style := r.NewStyle().Foreground(lipgloss.Color("196"))
	fmt.Fprintln(stderr, style.Render("Error: "+err.Error()))

	if exitErr != nil {
		return exitErr.code
	}
	return 1
}
