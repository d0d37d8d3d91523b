// Package semaphores is a debug harness for POSIX named semaphores called
// from managed runtimes through a foreign-function interface.
//
// The harness checks that the variadic mode and initial value of sem_open(3)
// survive the trip across the language boundary. It prints the values it
// received in decimal and octal, then runs one open, wait, post, close and
// unlink cycle on the semaphore.
//
// # Entry points
//
// HelloWorld is the routine foreign callers invoke. It prints diagnostics on
// stdout and, on any failure, prints a perror-style line on stderr and exits
// the process with status 1:
//
//	semaphores.HelloWorld("/demo", semaphores.O_CREAT, 0644, 1)
//
// Run is the same routine without the exit, returning a *Failure instead.
//
// cmd/hellolib builds HelloWorld into a C shared library exporting
//
//	int hello_world(const char *name, int oflag, ...);
//
// and cmd/semharness runs it from the command line or serves it to a
// managed process over stdin/stdout with length-prefixed MessagePack frames
// (see Serve, Call and Reply).
//
// # Targets
//
// The harness ships two argument layouts, selected at build time through
// DefaultTarget:
//   - TargetGeneric reads mode and value and opens with the caller's value.
//   - TargetARM64 also dumps every variadic word up to a -1 sentinel and
//     always opens with a count of 1.
//
// # Semaphores
//
// Open, Wait, Post, Close and Unlink are implemented in Go on Linux using
// the same /dev/shm/sem.<name> objects and memory layout as glibc, so a
// semaphore opened here is shared with C programs and runtimes that use
// libc's sem_open. Other Unix platforms build but return ErrNotSupported;
// the package does not build on Windows.
package semaphores
