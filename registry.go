//go:build linux && (amd64 || arm64 || riscv64 || loong64 || ppc64le)

package semaphores

import (
	"github.com/llxisdsh/pb"
	"golang.org/x/sys/unix"
)

// semKey identifies one semaphore object opened under one name. Two names
// hard-linked to the same file get separate mappings, matching glibc.
type semKey struct {
	dev  uint64
	ino  uint64
	name string
}

// mappings holds every semaphore this process has open. Opening an object
// that is already mapped returns the existing mapping with one more
// reference.
var mappings pb.MapOf[semKey, *semi]

// addMapping attaches the object behind fd, reusing an existing mapping if
// there is one. The object is mapped before the table is consulted so no
// system call runs under the table's lock; a mapping that loses to an
// existing entry is dropped again.
func addMapping(name string, fd int) (*semi, error) {
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, err
	}
	key := semKey{dev: uint64(st.Dev), ino: uint64(st.Ino), name: name}

	mem, err := mapFD(fd)
	if err != nil {
		return nil, err
	}

	m, shared := mappings.ProcessEntry(
		key,
		func(l *pb.EntryOf[semKey, *semi]) (*pb.EntryOf[semKey, *semi], *semi, bool) {
			if l != nil {
				l.Value.refs++
				return l, l.Value, true
			}
			m := &semi{key: key, mem: mem, refs: 1}
			return &pb.EntryOf[semKey, *semi]{Value: m}, m, false
		},
	)
	if shared {
		if err := unix.Munmap(mem); err != nil {
			releaseMapping(m)
			return nil, err
		}
	}
	return m, nil
}

// releaseMapping drops one reference to o and unmaps it on the last one.
// EINVAL means o is not (or no longer) mapped.
func releaseMapping(o *semi) error {
	var (
		found bool
		last  bool
	)
	mappings.ProcessEntry(
		o.key,
		func(l *pb.EntryOf[semKey, *semi]) (*pb.EntryOf[semKey, *semi], *semi, bool) {
			if l == nil || l.Value != o {
				return l, nil, false
			}
			found = true
			o.refs--
			if o.refs > 0 {
				return l, o, true
			}
			last = true
			return nil, nil, true
		},
	)
	if !found {
		return unix.EINVAL
	}
	if last {
		return unix.Munmap(o.mem)
	}
	return nil
}
