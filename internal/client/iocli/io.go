package iocli

//go:generate moq -out io_mock.go . IO

// IO abstracts the terminal so commands can be driven from tests
type IO interface {
	Println(a ...any)
	Printf(format string, a ...any)
	ReadInput(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
	// ScreenSize returns the terminal size as "WIDTHxHEIGHT", or "" when
	// stdout is not a terminal
	ScreenSize() string
}
