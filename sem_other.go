//go:build unix && !(linux && (amd64 || arm64 || riscv64 || loong64 || ppc64le))

package semaphores

// semi is a stub for platforms where the glibc object layout is not known.
// All operations return ErrNotSupported.
type semi struct{}

func open(name string, oflag int, mode uint32, value uint32) (*semi, error) {
	return nil, ErrNotSupported
}

func unlink(name string) error {
	return ErrNotSupported
}

func (o *semi) wait() error {
	return ErrNotSupported
}

func (o *semi) post() error {
	return ErrNotSupported
}

func (o *semi) value() int {
	return 0
}

func (o *semi) close() error {
	return ErrNotSupported
}
