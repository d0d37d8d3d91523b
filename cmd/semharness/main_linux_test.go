//go:build linux && (amd64 || arm64 || riscv64 || loong64 || ppc64le)

package main

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"

	semaphores "github.com/open-runtime/native-semaphores"
	"golang.org/x/sys/unix"
)

var nameSeq atomic.Int64

// testName returns a fresh semaphore name and removes it when the test ends.
func testName(t *testing.T) string {
	t.Helper()
	if _, err := os.Stat("/dev/shm"); err != nil {
		t.Skipf("no /dev/shm: %v", err)
	}
	name := fmt.Sprintf("/semharness-%d-%d", os.Getpid(), nameSeq.Add(1))
	t.Cleanup(func() { unix.Unlink("/dev/shm/sem." + name[1:]) })
	return name
}

func expectLines(t *testing.T, out string, lines ...string) {
	t.Helper()
	for _, line := range lines {
		if !strings.Contains(out, line) {
			t.Errorf("Expected output to contain %q, got:\n%s", line, out)
		}
	}
}

func TestOflagOctalAndDecimal(t *testing.T) {
	for _, oflag := range []string{
		"0" + strconv.FormatInt(unix.O_CREAT, 8),
		strconv.Itoa(unix.O_CREAT),
	} {
		stdout, stderr, code := runCLI(t, nil, "-name", testName(t), "-oflag", oflag, "-target", "generic")
		if code != 0 {
			t.Fatalf("-oflag %s: expected exit status 0, got %d (stderr %q)", oflag, code, stderr)
		}
		expectLines(t, stdout,
			fmt.Sprintf("Oflag decimal: %d\n", unix.O_CREAT),
			"oflag is equivalent to O_CREAT\n",
			"Semaphore unlocked. Exiting...\n",
		)
	}
}

func TestArgsOverrideModeAndValue(t *testing.T) {
	stdout, stderr, code := runCLI(t, nil,
		"-name", testName(t),
		"-mode", "0600", "-value", "5",
		"-args", "0640,2",
		"-target", "generic",
	)
	if code != 0 {
		t.Fatalf("Expected exit status 0, got %d (stderr %q)", code, stderr)
	}
	expectLines(t, stdout,
		"Mode Argument as octal mode_t: 0640\n",
		"Value Argument as unsigned int: 2\n",
	)
	if strings.Contains(stdout, "mode_t: 0600\n") || strings.Contains(stdout, "Value: 5\n") {
		t.Errorf("Expected -args to replace -mode and -value:\n%s", stdout)
	}
}

func TestOpenFailureExitsWithStatus1(t *testing.T) {
	_, stderr, code := runCLI(t, nil, "-name", "/bad/name", "-target", "generic")
	if code != semaphores.ExitFailure {
		t.Errorf("Expected exit status %d, got %d", semaphores.ExitFailure, code)
	}
	if !strings.Contains(stderr, "sem_open error: Invalid argument") {
		t.Errorf("Expected perror-style message, got %q", stderr)
	}
}

func TestServeAnswersFrames(t *testing.T) {
	name := testName(t)
	codec := semaphores.MsgpackCodec{}

	var stdin bytes.Buffer
	data, err := codec.Marshal(&semaphores.Call{Name: name, Oflag: unix.O_CREAT, Args: []int{0644, 1}, Target: "generic"})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := semaphores.NewFrameTransport(nil, &stdin).Send(data); err != nil {
		t.Fatalf("Send: %v", err)
	}

	stdout, stderr, code := runCLI(t, &stdin, "-serve")
	if code != 0 {
		t.Fatalf("Expected exit status 0 after EOF, got %d (stderr %q)", code, stderr)
	}

	data, err = semaphores.NewFrameTransport(strings.NewReader(stdout), nil).Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	var reply semaphores.Reply
	if err := codec.Unmarshal(data, &reply); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if reply.Status != semaphores.ExitSuccess || reply.Failure != nil {
		t.Fatalf("Expected success, got %d (%v)", reply.Status, reply.Failure)
	}
	if reply.Report == nil || reply.Report.Name != name {
		t.Errorf("Expected a report for %q, got %+v", name, reply.Report)
	}
	// diagnostics must not corrupt the frame stream
	expectLines(t, stderr, "Locking the semaphore...\n", "Semaphore unlocked. Exiting...\n")
}
