package semaphores

import (
	"path"
	"strings"

	"golang.org/x/sys/unix"
)

// shmDir is where glibc keeps named semaphores. Using the same directory and
// prefix lets C callers and this package open the same objects.
const (
	shmDir    = "/dev/shm/"
	semPrefix = "sem."
	nameMax   = 255
)

// semPath maps a semaphore name to its backing file.
// Leading slashes are ignored; any other slash is rejected.
func semPath(name string) (string, error) {
	name = strings.TrimLeft(name, "/")
	if name == "" || strings.Contains(name, "/") {
		return "", unix.EINVAL
	}
	if len(name) >= nameMax {
		return "", unix.ENAMETOOLONG
	}
	return path.Join(shmDir, semPrefix+name), nil
}
