// Package input abstracts interactive prompt reads so commands can be
// driven by scripted answers in tests.
package input

import (
	"bufio"
	"io"
	"os"
	"strings"
)

// Reader yields one answer per prompt.
type Reader interface {
	ReadString(delim byte) (string, error)
}

// Line reads a single newline-terminated answer from r and strips
// surrounding whitespace. An EOF with no data reads as the empty
// answer, so a closed stdin behaves like pressing enter.
func Line(r Reader) (string, error) {
	answer, err := r.ReadString('\n')
	if err != nil && answer == "" && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(answer), nil
}

// StdinReader reads answers from the process stdin.
type StdinReader struct {
	reader *bufio.Reader
}

func NewStdinReader() *StdinReader {
	return &StdinReader{reader: bufio.NewReader(os.Stdin)}
}

func (r *StdinReader) ReadString(delim byte) (string, error) {
	return r.reader.ReadString(delim)
}

// StringReader replays canned answers in order. Each answer must carry
// its own delimiter ("y\n"); once the answers run out every read
// returns io.EOF, which Line treats as an empty answer.
type StringReader struct {
	answers []string
	next    int
}

func NewStringReader(answers ...string) *StringReader {
	return &StringReader{answers: answers}
}

// ReadString returns the next canned answer. The delimiter is ignored;
// answers are replayed exactly as configured.
func (r *StringReader) ReadString(delim byte) (string, error) {
	if r.next >= len(r.answers) {
		return "", io.EOF
	}
	answer := r.answers[r.next]
	r.next++
	return answer, nil
}
