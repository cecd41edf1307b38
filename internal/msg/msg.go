package msg

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

func prefixed(prefix string, format string, a ...any) {
	fmt.Print(prefix)
	fmt.Print(": ")
	fmt.Printf(format, a...)
	fmt.Print("\n")
}

func Error(format string, a ...any) {
	prefixed(color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	prefixed(color.YellowString("warn"), format, a...)
}

func Fatal(format string, a ...any) {
	prefixed(color.RedString("fatal"), format, a...)
	os.Exit(1)
}

func Info(format string, a ...any) {
	prefixed(color.HiGreenString("info"), format, a...)
}

// Skip reports a compilation unit that was left alone because it is up to date.
func Skip(format string, a ...any) {
	prefixed(color.HiBlackString("skip"), format, a...)
}

// IndentWriter indents every line written through it, e.g. subprocess or
// clone progress output.
type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	var buf bytes.Buffer
	for _, c := range p {
		if !w.didIndent {
			buf.WriteString(w.Indent)
			w.didIndent = true
		}
		buf.WriteByte(c)
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	if _, err := w.W.Write(buf.Bytes()); err != nil {
		return 0, err
	}
	return len(p), nil
}
