package semaphores

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
)

// Target selects which build of the smoke test to reproduce. The two builds
// differ only in how they read and print the variadic arguments and in the
// initial count they pass to sem_open.
type Target int

const (
	// TargetGeneric reads mode as a promoted int, value as unsigned int, and
	// opens with the caller's value.
	TargetGeneric Target = iota

	// TargetARM64 reads mode and value directly, dumps every variadic
	// argument up to a -1 sentinel, and always opens with a count of 1.
	TargetARM64
)

// String returns the name accepted by ParseTarget.
func (t Target) String() string {
	switch t {
	case TargetGeneric:
		return "generic"
	case TargetARM64:
		return "arm64"
	}
	return fmt.Sprintf("Target(%d)", int(t))
}

// ParseTarget maps "generic" or "arm64" to a Target. An empty string selects
// DefaultTarget.
func ParseTarget(s string) (Target, error) {
	switch s {
	case "":
		return DefaultTarget, nil
	case "generic":
		return TargetGeneric, nil
	case "arm64":
		return TargetARM64, nil
	}
	return 0, fmt.Errorf("unknown target %q", s)
}

// argSentinel terminates the ARM64 argument dump.
const argSentinel = -1

// Report is everything the smoke test prints before touching the semaphore.
type Report struct {
	Name   string `msgpack:"name"`
	Target string `msgpack:"target"`
	Oflag  int    `msgpack:"oflag"`
	OCreat int    `msgpack:"o_creat"`
	OExcl  int    `msgpack:"o_excl"`

	// ModeArg and ValueArg are the raw variadic words, as the caller
	// marshaled them.
	ModeArg  int `msgpack:"mode_arg"`
	ValueArg int `msgpack:"value_arg"`

	// Mode and Value are the arguments after conversion to mode_t and
	// unsigned int.
	Mode  uint32 `msgpack:"mode"`
	Value uint32 `msgpack:"value"`

	// Initial is the count actually passed to sem_open.
	Initial uint32 `msgpack:"initial"`

	// Args is the ARM64 argument dump, sentinel excluded.
	Args []int `msgpack:"args,omitempty"`

	// Kernel is the running kernel release. It is returned to managed
	// callers but not printed.
	Kernel string `msgpack:"kernel,omitempty"`
}

// variadic returns the i'th variadic argument, or 0 when the caller passed
// fewer.
func variadic(args []int, i int) int {
	if i < len(args) {
		return args[i]
	}
	return 0
}

// NewReport decodes the variadic arguments the way target t does.
func NewReport(t Target, name string, oflag int, args ...int) *Report {
	r := &Report{
		Name:     name,
		Target:   t.String(),
		Oflag:    oflag,
		OCreat:   O_CREAT,
		OExcl:    O_EXCL,
		ModeArg:  variadic(args, 0),
		ValueArg: variadic(args, 1),
	}
	r.Mode = uint32(r.ModeArg)
	r.Value = uint32(r.ValueArg)
	r.Initial = r.Value

	if t == TargetARM64 {
		r.Initial = 1
		for _, a := range args {
			if a == argSentinel {
				break
			}
			r.Args = append(r.Args, a)
		}
	}

	if v, err := KernelVersion(); err == nil {
		r.Kernel = v.String()
	}
	return r
}

// Print writes the report in the layout of the selected target.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Name: %s\n", r.Name)
	fmt.Fprintf(w, "Oflag decimal: %d\n", r.Oflag)
	fmt.Fprintf(w, "Oflag octal: 0%o\n", uint32(r.Oflag))
	fmt.Fprintf(w, "O_CREAT decimal: %d\n", r.OCreat)
	fmt.Fprintf(w, "O_CREAT octal: 0%o\n", r.OCreat)

	if r.Target == TargetARM64.String() {
		fmt.Fprintf(w, "O_EXCL decimal: %d\n", r.OExcl)
		fmt.Fprintf(w, "O_EXCL octal: 0%o\n", r.OExcl)
		fmt.Fprintf(w, "Mode (as int): %d\n", r.Mode)
		fmt.Fprintf(w, "Mode (octal): 0%o\n", r.Mode)
		fmt.Fprintf(w, "Value: %d\n", r.Value)
		for i, a := range r.Args {
			fmt.Fprintf(w, "arg as decimal int: %d, arg as octal int: 0%o, index: %d\n", a, uint32(a), i+2)
		}
	} else {
		fmt.Fprintf(w, "Name: %s\n", r.Name)
		fmt.Fprintf(w, "Oflag: %d\n", r.Oflag)
		fmt.Fprintf(w, "Mode Argument as decimal int: %d\n", int32(r.Mode))
		fmt.Fprintf(w, "Mode Argument as decimal mode_t: %d\n", r.Mode)
		fmt.Fprintf(w, "Mode Argument as octal int: 0%o\n", r.Mode)
		fmt.Fprintf(w, "Mode Argument as octal mode_t: 0%o\n", r.Mode)
		fmt.Fprintf(w, "Value Argument as unsigned int: %d\n", r.Value)
		fmt.Fprintf(w, "Value Argument as int: %d\n", int32(r.Value))
	}

	fmt.Fprintf(w, "Mode: %d\n", r.Mode)
	fmt.Fprintf(w, "Value: %d\n", r.Value)
	if r.Oflag == r.OCreat {
		fmt.Fprintln(w, "oflag is equivalent to O_CREAT")
	}
	if r.Target == TargetARM64.String() && r.Oflag == r.OExcl {
		fmt.Fprintln(w, "oflag is equivalent to O_EXCL")
	}
	fmt.Fprintf(w, "The value of O_CREAT is: %d\n", r.OCreat)
	fmt.Fprintf(w, "Value of O_CREAT: %d\n", r.OCreat)
	fmt.Fprintf(w, "Value of O_EXCL: %d\n", r.OExcl)
}

// Run is the smoke test without the process exit: it prints the report to w,
// then opens the semaphore, waits, posts, closes and unlinks it. The first
// failing step stops the run and is returned as a *Failure. Nothing is rolled
// back, so a failure after a successful open leaves the name in place.
func Run(w io.Writer, t Target, name string, oflag int, args ...int) (*Report, error) {
	r := NewReport(t, name, oflag, args...)
	r.Print(w)

	sem, err := Open(name, oflag, r.Mode, r.Initial)
	if err != nil {
		return r, newFailure("sem_open", err)
	}

	fmt.Fprintln(w, "Locking the semaphore...")
	if err := sem.Wait(); err != nil {
		return r, newFailure("sem_wait", err)
	}

	fmt.Fprintln(w, "Inside critical section.")
	if err := sem.Post(); err != nil {
		return r, newFailure("sem_post", err)
	}

	fmt.Fprintln(w, "Semaphore unlocked. Exiting...")
	if err := sem.Close(); err != nil {
		return r, newFailure("sem_close", err)
	}

	if err := Unlink(name); err != nil {
		return r, newFailure("sem_unlink", err)
	}
	return r, nil
}

// Exit statuses returned by HelloWorld.
const (
	ExitSuccess = 0
	ExitFailure = 1
)

var (
	// exit terminates the process; tests replace it.
	exit = os.Exit

	stderr = log.New(os.Stderr, "", 0)
)

// Fail reports err on stderr in perror style and terminates the process with
// ExitFailure.
func Fail(err error) {
	var f *Failure
	if !errors.As(err, &f) {
		f = newFailure("hello_world", err)
	}
	stderr.Print(f.ToString())
	exit(ExitFailure)
}

// HelloWorld runs the smoke test for DefaultTarget with diagnostics on
// stdout. args carries the variadic mode and initial value, in that order.
// It returns ExitSuccess; any failure terminates the process.
func HelloWorld(name string, oflag int, args ...int) int {
	if _, err := Run(os.Stdout, DefaultTarget, name, oflag, args...); err != nil {
		Fail(err)
		return ExitFailure
	}
	return ExitSuccess
}
