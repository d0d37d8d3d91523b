package semaphores

import (
	"errors"

	"golang.org/x/sys/unix"
)

// Open flags accepted by Open. They are the host's fcntl values so that an
// oflag produced by a foreign caller can be passed through unchanged.
const (
	O_CREAT = unix.O_CREAT
	O_EXCL  = unix.O_EXCL
)

// SEM_VALUE_MAX is the largest count a named semaphore can hold.
const SEM_VALUE_MAX = 1<<31 - 1

// ErrNotSupported is returned when named semaphores are not available for the
// current OS or architecture.
var ErrNotSupported = errors.New("named semaphores are not supported on this platform")

// Semaphore is a handle to a POSIX named semaphore.
//
// Handles are obtained with Open and released with Close. The object itself
// lives until Unlink removes its name and every process has closed it.
// A process or thread blocked in Wait is released by a Post from any process
// that opened the same name, including C programs using libc's sem_open.
//
// Example:
//
//	sem, err := semaphores.Open("/my_sem", semaphores.O_CREAT, 0644, 1)
//	if err != nil {
//		return err
//	}
//	sem.Wait()
//	// critical section
//	sem.Post()
//	sem.Close()
//	semaphores.Unlink("/my_sem")
type Semaphore struct {
	// m is the platform-specific mapping, shared between handles that opened
	// the same object
	m *semi

	// Name is the name the semaphore was opened with.
	Name string
}

// Open creates or opens the named semaphore, like sem_open(3).
//
// mode and value are only consulted when oflag contains O_CREAT and the
// semaphore does not exist yet. Failures are *os.SyscallError values whose Op
// is "sem_open".
func Open(name string, oflag int, mode uint32, value uint32) (*Semaphore, error) {
	m, err := open(name, oflag, mode, value)
	if err != nil {
		return nil, err
	}
	return &Semaphore{m: m, Name: name}, nil
}

// Wait decrements the semaphore, blocking while its value is zero.
// There is no timeout.
func (s *Semaphore) Wait() error {
	if s.m == nil {
		return errClosed("sem_wait")
	}
	return s.m.wait()
}

// Post increments the semaphore, waking one blocked waiter if there is one.
func (s *Semaphore) Post() error {
	if s.m == nil {
		return errClosed("sem_post")
	}
	return s.m.post()
}

// Value returns the current count, like sem_getvalue(3).
func (s *Semaphore) Value() (int, error) {
	if s.m == nil {
		return 0, errClosed("sem_getvalue")
	}
	return s.m.value(), nil
}

// Close releases this handle. The mapping is dropped once every handle in the
// process that refers to the same object has been closed.
func (s *Semaphore) Close() (err error) {
	if s.m == nil {
		return errClosed("sem_close")
	}
	err = s.m.close()
	if err == nil {
		s.m = nil
	}
	return err
}

// Unlink removes the semaphore name, like sem_unlink(3). Open handles keep
// working; the name becomes available for a new semaphore immediately.
func Unlink(name string) error {
	return unlink(name)
}
