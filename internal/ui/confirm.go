package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Confirm asks a yes/no question on stdin. Anything but y/yes is no.
func Confirm(prompt string) bool {
	return Ask(os.Stdin, os.Stdout, StyleWarning.Render(prompt))
}

// ConfirmDanger is Confirm styled for irreversible actions.
func ConfirmDanger(prompt string) bool {
	return Ask(os.Stdin, os.Stdout, StyleError.Render("⚠ "+prompt))
}

// Ask writes prompt to out and reads one answer line from in.
func Ask(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(in).ReadString('\n')
	line = strings.TrimSpace(strings.ToLower(line))
	return line == "y" || line == "yes"
}
