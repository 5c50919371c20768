package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/atomic"
)

type logLevel int32

const (
	SilentLevel logLevel = iota
	MajorLevel
	MinorLevel
	DebugLevel
)

var (
	majorPrefix = ""
	minorPrefix = "  "
	debugPrefix = "   Dbg:"

	mu    sync.Mutex // Protects out and serializes writes to it
	out   io.Writer
	level atomic.Int32
)

func init() {
	out = os.Stdout
}

func (t logLevel) String() string {
	switch t {
	case MajorLevel:
		return "Major"
	case MinorLevel:
		return "Minor"
	case DebugLevel:
		return "Debug"
	}

	return "Silent"
}

// SetOut changes the output of logging to the supplied io.Writer. The default is
// os.Stdout. The supplied io.Writer must never be nil.
func SetOut(w io.Writer) {
	if w == nil {
		panic("log.SetOut() called with a nil io.Writer")
	}
	mu.Lock()
	out = w
	mu.Unlock()
}

// Out returns the current io.Writer for specialist logger functions which are not
// controlled by log levels. The return value will never be nil. Writes made directly to
// the returned io.Writer are not serialized with the levelled functions.
func Out() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	return out
}

// SetLevel sets the current logging level.
func SetLevel(l logLevel) {
	level.Store(int32(l))
}

func Level() logLevel {
	return logLevel(level.Load())
}

// IfMajor returns true if Major logging is written to the output stream. Callers have
// access to these If* functions in cases where evaluation of the log arguments is
// expensive and they wish to avoid that cost.
func IfMajor() bool {
	return Level() >= MajorLevel
}

func IfMinor() bool {
	return Level() >= MinorLevel
}

func IfDebug() bool {
	return Level() >= DebugLevel
}

// Majorf provides an approximate fmt.Printf equivalent interface to logging. Output is
// only generated if the level is >= Major. A newline is always added to the end of the
// output so the caller should not supply one.
func Majorf(format string, a ...any) (n int, err error) {
	if IfMajor() {
		return prefixAndPrintLines(fmt.Sprintf(format, a...), majorPrefix)
	}

	return 0, nil
}

// Major provides a fmt.Print like interface to logging. Output is only generated if the
// level is >= Major. As with fmt.Sprint, spaces are only added between operands when
// neither is a string.
func Major(a ...any) (n int, err error) {
	if IfMajor() {
		return prefixAndPrintLines(fmt.Sprint(a...), majorPrefix)
	}

	return 0, nil
}

// Minorf provides a fmt.Printf equivalent interface to logging. Output is only generated
// if the level is >= Minor.
func Minorf(format string, a ...any) (n int, err error) {
	if IfMinor() {
		return prefixAndPrintLines(fmt.Sprintf(format, a...), minorPrefix)
	}

	return 0, nil
}

// Minor provides a fmt.Print like interface to logging. Output is only generated if the
// level is >= Minor.
func Minor(a ...any) (n int, err error) {
	if IfMinor() {
		return prefixAndPrintLines(fmt.Sprint(a...), minorPrefix)
	}

	return 0, nil
}

// Debugf provides a fmt.Printf equivalent interface to logging. Output is only generated
// if the level is >= Debug.
func Debugf(format string, a ...any) (n int, err error) {
	if IfDebug() {
		return prefixAndPrintLines(fmt.Sprintf(format, a...), debugPrefix)
	}

	return 0, nil
}

// Debug provides a fmt.Print like interface to logging. Output is only generated if the
// level is >= Debug.
func Debug(a ...any) (n int, err error) {
	if IfDebug() {
		return prefixAndPrintLines(fmt.Sprint(a...), debugPrefix)
	}

	return 0, nil
}

// prefixAndPrintLines takes potentially multiple lines and sends them to the out stream
// as one write with each line prefixed.
func prefixAndPrintLines(lines, prefix string) (int, error) {
	ar := strings.Split(lines, "\n")
	for len(ar) > 1 && len(ar[len(ar)-1]) == 0 { // Chomp trailing empty lines
		ar = ar[:len(ar)-1]
	}

	s := prefix + strings.Join(ar, "\n"+prefix) + "\n"

	mu.Lock()
	defer mu.Unlock()

	return io.WriteString(out, s)
}
