package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// terminalConfirmer asks a yes/no question on the terminal. The read
// runs in a goroutine so a context deadline can interrupt the wait.
type terminalConfirmer struct {
	in  io.Reader
	out io.Writer
}

func (t terminalConfirmer) Confirm(ctx context.Context, prompt string) (bool, error) {
	fmt.Fprintf(t.out, "%s [y/N]: ", prompt)

	type answer struct {
		text string
		err  error
	}
	ch := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(t.in).ReadString('\n')
		ch <- answer{text: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(t.out)
		return false, ctx.Err()
	case a := <-ch:
		if a.err != nil && a.text == "" {
			return false, a.err
		}
		switch strings.ToLower(strings.TrimSpace(a.text)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}
