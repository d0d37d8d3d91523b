//go:build linux && (amd64 || arm64 || riscv64 || loong64 || ppc64le)

package semaphores

import (
	"encoding/binary"
	"math/rand/v2"
	"os"
	"path"
	"strconv"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// glibc's struct new_sem for 64-bit targets:
//
//	uint64_t data;     // value in the low word, waiter count in the high word
//	int      private;
//	int      pad;
//
// padded to sizeof(sem_t), which is 32 bytes. Only little-endian targets are
// built here so the value word sits at offset 0.
const (
	semSize          = 32
	semValueMask     = 0xffffffff
	semNwaitersShift = 32
	// FUTEX_PRIVATE_FLAG; glibc stores it in private to mark a shared futex.
	semShared = 128
)

// semi is a process-wide mapping of one semaphore object.
type semi struct {
	key  semKey
	mem  []byte
	refs int
}

func (o *semi) data() *uint64 {
	return (*uint64)(unsafe.Pointer(&o.mem[0]))
}

// valueWord is the futex word: the low 32 bits of data.
func (o *semi) valueWord() *uint32 {
	return (*uint32)(unsafe.Pointer(&o.mem[0]))
}

func (o *semi) value() int {
	return int(atomic.LoadUint64(o.data()) & semValueMask)
}

// tryWait decrements the value if it is positive.
func (o *semi) tryWait() bool {
	d := o.data()
	for {
		v := atomic.LoadUint64(d)
		if v&semValueMask == 0 {
			return false
		}
		if atomic.CompareAndSwapUint64(d, v, v-1) {
			return true
		}
	}
}

func (o *semi) wait() error {
	if o.tryWait() {
		return nil
	}

	// Register as a waiter so posters know to wake us, then consume a token
	// and deregister in one step.
	d := o.data()
	v := atomic.AddUint64(d, 1<<semNwaitersShift)
	for {
		if v&semValueMask == 0 {
			if err := futexWait(o.valueWord(), 0); err != nil {
				atomic.AddUint64(d, ^uint64(1<<semNwaitersShift-1))
				return os.NewSyscallError("sem_wait", err)
			}
			v = atomic.LoadUint64(d)
			continue
		}
		if atomic.CompareAndSwapUint64(d, v, v-1-(1<<semNwaitersShift)) {
			return nil
		}
		v = atomic.LoadUint64(d)
	}
}

func (o *semi) post() error {
	d := o.data()
	var v uint64
	for {
		v = atomic.LoadUint64(d)
		if v&semValueMask == SEM_VALUE_MAX {
			return os.NewSyscallError("sem_post", unix.EOVERFLOW)
		}
		if atomic.CompareAndSwapUint64(d, v, v+1) {
			break
		}
	}
	if v>>semNwaitersShift > 0 {
		if err := futexWake(o.valueWord(), 1); err != nil {
			return os.NewSyscallError("sem_post", err)
		}
	}
	return nil
}

func (o *semi) close() error {
	if err := releaseMapping(o); err != nil {
		return os.NewSyscallError("sem_close", err)
	}
	return nil
}

// initialImage is the byte image of a freshly initialized semaphore.
func initialImage(value uint32) []byte {
	b := make([]byte, semSize)
	binary.LittleEndian.PutUint64(b[0:], uint64(value))
	binary.LittleEndian.PutUint32(b[8:], semShared)
	return b
}

// mapFD maps the semaphore object behind fd.
func mapFD(fd int) ([]byte, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, err
	}
	if st.Size < semSize {
		return nil, unix.EINVAL
	}
	return unix.Mmap(fd, 0, semSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// openExisting opens the object at p and attaches it to the process table.
func openExisting(name, p string, oflag int) (*semi, error) {
	flags := (oflag &^ (unix.O_CREAT | unix.O_EXCL | unix.O_ACCMODE)) | unix.O_NOFOLLOW | unix.O_RDWR | unix.O_CLOEXEC
	fd, err := unix.Open(p, flags, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)
	return addMapping(name, fd)
}

// createNew writes an initialized object to a temporary file and links it
// into place, so other openers never observe a partially written semaphore.
func createNew(name, p string, mode uint32, value uint32) (*semi, error) {
	var (
		tmp string
		fd  int
		err error
	)
	for {
		tmp = path.Join(shmDir, strconv.FormatUint(rand.Uint64(), 36))
		fd, err = unix.Open(tmp, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, mode)
		if err != unix.EEXIST {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)
	defer unix.Unlink(tmp)

	img := initialImage(value)
	for off := 0; off < len(img); {
		n, err := unix.Write(fd, img[off:])
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		off += n
	}

	if err := unix.Link(tmp, p); err != nil {
		return nil, err
	}
	return addMapping(name, fd)
}

func open(name string, oflag int, mode uint32, value uint32) (*semi, error) {
	p, err := semPath(name)
	if err != nil {
		return nil, os.NewSyscallError("sem_open", err)
	}

	creat := oflag&unix.O_CREAT != 0
	excl := oflag&unix.O_EXCL != 0
	for {
		if !creat || !excl {
			m, err := openExisting(name, p, oflag)
			if err == nil {
				return m, nil
			}
			if !creat || err != unix.ENOENT {
				return nil, os.NewSyscallError("sem_open", err)
			}
		}

		if value > SEM_VALUE_MAX {
			return nil, os.NewSyscallError("sem_open", unix.EINVAL)
		}
		m, err := createNew(name, p, mode, value)
		if err == unix.EEXIST && !excl {
			// Lost a creation race; the winner's object is complete.
			continue
		}
		if err != nil {
			return nil, os.NewSyscallError("sem_open", err)
		}
		return m, nil
	}
}

func unlink(name string) error {
	p, err := semPath(name)
	if err != nil {
		return os.NewSyscallError("sem_unlink", err)
	}
	if err := unix.Unlink(p); err != nil {
		if err == unix.EPERM {
			err = unix.EACCES
		}
		return os.NewSyscallError("sem_unlink", err)
	}
	return nil
}
