package iocli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Stdio реализует IO поверх стандартных потоков процесса
type Stdio struct {
	in     *os.File
	out    io.Writer
	reader *bufio.Reader
	mu     sync.Mutex
}

func NewStdio() IO {
	return newStdio(os.Stdin, os.Stdout)
}

func newStdio(in *os.File, out io.Writer) *Stdio {
	return &Stdio{
		in:  in,
		out: out,
		// один reader на весь процесс, иначе буферизованный ввод теряется
		reader: bufio.NewReader(in),
	}
}

func (s *Stdio) Println(a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintln(s.out, a...)
}

func (s *Stdio) Printf(format string, a ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = fmt.Fprintf(s.out, format, a...)
}

func (s *Stdio) ReadInput(prompt string) (string, error) {
	s.Printf("%s", prompt)
	input, err := s.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && input != "" {
			return strings.TrimSpace(input), nil
		}
		return "", err
	}
	return strings.TrimSpace(input), nil
}

func (s *Stdio) ReadPassword(prompt string) (string, error) {
	fd := int(s.in.Fd())
	if !term.IsTerminal(fd) {
		// ввод из pipe: читаем обычную строку
		return s.ReadInput(prompt)
	}

	s.Printf("%s", prompt)
	pwBytes, err := term.ReadPassword(fd)
	s.Println("")
	if err != nil {
		return "", err
	}
	return string(pwBytes), nil
}

func (s *Stdio) ScreenSize() string {
	width, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%dx%d", width, height)
}
