package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"bookapp/internal/app"
)

// CLI runs catalog commands against a wired application
type CLI struct {
	app    *app.App
	logger *zap.Logger

	in  *bufio.Reader
	out io.Writer

	// readPassword prompts for a secret. Tests replace it.
	readPassword func(prompt string) (string, error)
}

func New(a *app.App, in io.Reader, out io.Writer) *CLI {
	c := &CLI{
		app:    a,
		logger: a.Logger(),
		in:     bufio.NewReader(in),
		out:    out,
	}
	c.readPassword = c.promptPassword
	return c
}

// Root builds the command tree. The saved session, if any, is restored
// before every command runs.
func (c *CLI) Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "bookapp",
		Short:         "Manage your personal book catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			user, err := c.app.RestoreSession(cmd.Context())
			if err != nil {
				return err
			}
			if user != nil {
				c.logger.Debug("Session restored", zap.String("uid", user.UID))
			}
			return nil
		},
	}
	root.SetOut(c.out)
	root.SetErr(c.out)

	root.AddCommand(
		c.booksCommand(),
		c.accountCommand(),
		c.usersCommand(),
		c.storesCommand(),
		c.statsCommand(),
	)
	return root
}

// Execute runs the command line and prints any failure
func (c *CLI) Execute(ctx context.Context, args []string) error {
	root := c.Root()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		printError(c.out, err)
		return err
	}
	return nil
}

func (c *CLI) promptPassword(prompt string) (string, error) {
	fmt.Fprint(c.out, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		password, err := term.ReadPassword(fd)
		fmt.Fprintln(c.out)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return strings.TrimSpace(string(password)), nil
	}
	return c.readLine()
}

func (c *CLI) readLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// firstOf takes the current value of a live stream
func firstOf[T any](ctx context.Context, stream func(context.Context) <-chan T) (T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var zero T
	select {
	case v, ok := <-stream(ctx):
		if !ok {
			return zero, ctx.Err()
		}
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
