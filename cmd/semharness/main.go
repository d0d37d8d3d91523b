// Command semharness runs the named-semaphore smoke test from the command
// line, or serves it to a managed-runtime caller over stdin/stdout.
//
//	semharness -name /demo -oflag 0100 -mode 0644 -value 1
//	semharness -name /demo -oflag 0100 -args 420,1,-1 -target arm64
//	semharness -serve
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	semaphores "github.com/open-runtime/native-semaphores"
)

// parseArgs splits a comma separated list of C ints. Values use Go integer
// syntax, so 0644 is octal.
func parseArgs(s string) ([]int, error) {
	var args []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.ParseInt(f, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", f, err)
		}
		args = append(args, int(v))
	}
	return args, nil
}

func main() {
	var (
		name    string
		oflag   string
		mode    string
		value   uint
		argList string
		target  string
		serve   bool
	)
	flag.StringVar(&name, "name", "", "semaphore name, e.g. /demo")
	flag.StringVar(&oflag, "oflag", "0100", "open flag (Go integer syntax, 0100 is O_CREAT on most targets)")
	flag.StringVar(&mode, "mode", "0644", "permission mode for a created semaphore")
	flag.UintVar(&value, "value", 1, "initial count for a created semaphore")
	flag.StringVar(&argList, "args", "", "raw variadic arguments, overrides -mode and -value")
	flag.StringVar(&target, "target", "", "argument layout: generic or arm64 (default: this build's)")
	flag.BoolVar(&serve, "serve", false, "answer msgpack calls on stdin/stdout")
	flag.Parse()

	t, err := semaphores.ParseTarget(target)
	if err != nil {
		log.Fatal(err)
	}

	if serve {
		sig := make(chan os.Signal, 1)
		semaphores.NotifyTermination(sig)
		go func() {
			s := <-sig
			log.Printf("Received %v, exiting", s)
			os.Exit(semaphores.ExitSuccess)
		}()

		// stdout carries frames, so diagnostics go to stderr.
		tr := semaphores.NewFrameTransport(os.Stdin, os.Stdout)
		if err := semaphores.Serve(tr, semaphores.MsgpackCodec{}, os.Stderr); err != nil {
			semaphores.Fail(err)
		}
		return
	}

	if name == "" {
		return
	}

	of, err := strconv.ParseInt(oflag, 0, 32)
	if err != nil {
		log.Fatalf("invalid -oflag: %v", err)
	}

	var args []int
	if argList != "" {
		if args, err = parseArgs(argList); err != nil {
			log.Fatalf("invalid -args: %v", err)
		}
	} else {
		m, err := strconv.ParseUint(mode, 0, 32)
		if err != nil {
			log.Fatalf("invalid -mode: %v", err)
		}
		args = []int{int(m), int(value)}
	}

	if _, err := semaphores.Run(os.Stdout, t, name, int(of), args...); err != nil {
		semaphores.Fail(err)
	}
}
