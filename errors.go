package semaphores

import (
	"errors"
	"fmt"
	"os"
	"syscall"
	"unicode"
	"unicode/utf8"

	"golang.org/x/sys/unix"
)

// Failure describes the system call that stopped the smoke test.
// It is sent as-is to managed callers, so every field is tagged.
type Failure struct {
	// Op is the POSIX call that failed (e.g. "sem_open", "sem_wait").
	Op string `msgpack:"op"`

	// Errno is the raw error number, 0 when the failure did not come from
	// the OS.
	Errno int `msgpack:"errno"`

	// Message is the human readable reason.
	Message string `msgpack:"message"`

	err error
}

// ToString formats the failure the way perror(3) would with an
// "<op> error" prefix.
func (f *Failure) ToString() string {
	return fmt.Sprintf("%s error: %s", f.Op, f.Message)
}

// Error implements the error interface.
func (f *Failure) Error() string {
	return f.ToString()
}

// Unwrap returns the underlying error, if the failure was built from one.
func (f *Failure) Unwrap() error {
	if f.err != nil {
		return f.err
	}
	if f.Errno != 0 {
		return unix.Errno(f.Errno)
	}
	return nil
}

// newFailure classifies err as a failure of op. A *os.SyscallError inside err
// supplies the errno; its own Op is ignored in favour of op so the caller
// decides how the step is reported.
func newFailure(op string, err error) *Failure {
	f := &Failure{Op: op, Message: err.Error(), err: err}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		f.Errno = int(errno)
		f.Message = strerror(errno)
	}
	return f
}

// strerror returns the errno text with a leading capital, as libc spells it
// ("Invalid argument" rather than Go's "invalid argument").
func strerror(errno syscall.Errno) string {
	s := errno.Error()
	r, n := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

func errClosed(op string) error {
	return os.NewSyscallError(op, unix.EINVAL)
}
