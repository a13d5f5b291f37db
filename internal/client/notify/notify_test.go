package notify

import (
	"bytes"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeIO собирает вывод в буфер
type fakeIO struct {
	out bytes.Buffer
}

func (f *fakeIO) Println(a ...any)               { fmt.Fprintln(&f.out, a...) }
func (f *fakeIO) Printf(format string, a ...any) { fmt.Fprintf(&f.out, format, a...) }
func (f *fakeIO) ReadInput(string) (string, error)    { return "", nil }
func (f *fakeIO) ReadPassword(string) (string, error) { return "", nil }
func (f *fakeIO) ScreenSize() string                  { return "" }

type recorder struct {
	kinds []Kind
}

func (r *recorder) Show(kind Kind, _ string) { r.kinds = append(r.kinds, kind) }

func TestConsole_Show(t *testing.T) {
	io := &fakeIO{}
	c := Console{IO: io}

	c.Show(KindLoading, "")
	c.Show(KindError, "request failed: 500")
	c.Show(KindSuccess, "export saved")
	c.Show(KindLoaded, "")

	assert.Equal(t, "✗ request failed: 500\n✓ export saved\n", io.out.String())
}

func TestConsole_Verbose(t *testing.T) {
	io := &fakeIO{}
	c := Console{IO: io, Verbose: true}

	c.Show(KindLoading, "")
	assert.Equal(t, "Loading...\n", io.out.String())
}

func TestLog_Show(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Log{Logger: logger}.Show(KindError, "boom")
	assert.Contains(t, buf.String(), "request failed")
	assert.Contains(t, buf.String(), "boom")
}

func TestMulti_Show(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, Nop{}, b}.Show(KindSuccess, "ok")

	assert.Equal(t, []Kind{KindSuccess}, a.kinds)
	assert.Equal(t, []Kind{KindSuccess}, b.kinds)
}
