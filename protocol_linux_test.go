//go:build linux && (amd64 || arm64 || riscv64 || loong64 || ppc64le)

package semaphores

import (
	"errors"
	"io"
	"testing"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// startServer runs Serve on one end of a pair of pipes and returns the
// caller's end.
func startServer(t *testing.T) (*FrameTransport, *errgroup.Group, func()) {
	t.Helper()
	reqR, reqW := io.Pipe()
	respR, respW := io.Pipe()

	var g errgroup.Group
	g.Go(func() error {
		defer respW.Close()
		return Serve(NewFrameTransport(reqR, respW), MsgpackCodec{}, io.Discard)
	})
	return NewFrameTransport(respR, reqW), &g, func() { reqW.Close() }
}

func roundTrip(t *testing.T, client *FrameTransport, call interface{}) *Reply {
	t.Helper()
	codec := MsgpackCodec{}
	data, err := codec.Marshal(call)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if err := client.Send(data); err != nil {
		t.Fatalf("Send: %v", err)
	}
	data, err = client.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	var reply Reply
	if err := codec.Unmarshal(data, &reply); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return &reply
}

func TestServeSuccessfulCalls(t *testing.T) {
	client, g, hangUp := startServer(t)

	for _, target := range []string{"generic", "arm64"} {
		name := testName(t)
		reply := roundTrip(t, client, &Call{Name: name, Oflag: O_CREAT, Args: []int{0644, 1}, Target: target})
		if reply.Status != ExitSuccess || reply.Failure != nil {
			t.Fatalf("Expected success, got %d (%v)", reply.Status, reply.Failure)
		}
		if reply.Report == nil || reply.Report.Name != name || reply.Report.Target != target {
			t.Errorf("Unexpected report %+v", reply.Report)
		}
		if reply.Report.Mode != 0644 {
			t.Errorf("Expected mode 0644 to survive the call, got 0%o", reply.Report.Mode)
		}
	}

	hangUp()
	if err := g.Wait(); err != nil {
		t.Errorf("Expected Serve to end cleanly, got %v", err)
	}
}

func TestServeMalformedCall(t *testing.T) {
	client, g, hangUp := startServer(t)

	reply := roundTrip(t, client, "not a call")
	if reply.Status != ExitFailure || reply.Failure == nil || reply.Failure.Op != "decode" {
		t.Errorf("Expected a decode failure, got %+v", reply)
	}
	reply = roundTrip(t, client, &Call{Name: "/x", Target: "sparc"})
	if reply.Status != ExitFailure || reply.Failure == nil || reply.Failure.Op != "decode" {
		t.Errorf("Expected a decode failure for an unknown target, got %+v", reply)
	}

	// the server keeps going after malformed calls
	reply = roundTrip(t, client, &Call{Name: testName(t), Oflag: O_CREAT, Args: []int{0644, 1}})
	if reply.Status != ExitSuccess {
		t.Errorf("Expected success, got %+v", reply.Failure)
	}

	hangUp()
	if err := g.Wait(); err != nil {
		t.Errorf("Expected Serve to end cleanly, got %v", err)
	}
}

func TestServeFailureIsFatal(t *testing.T) {
	client, g, hangUp := startServer(t)
	defer hangUp()

	reply := roundTrip(t, client, &Call{Name: "/a/b", Oflag: O_CREAT, Args: []int{0644, 1}})
	if reply.Status != ExitFailure || reply.Failure == nil {
		t.Fatalf("Expected failure, got %+v", reply)
	}
	if reply.Failure.Op != "sem_open" || reply.Failure.Errno != int(unix.EINVAL) {
		t.Errorf("Expected sem_open/EINVAL, got %s/%d", reply.Failure.Op, reply.Failure.Errno)
	}
	if !errors.Is(reply.Failure, unix.EINVAL) {
		t.Error("Expected decoded failure to unwrap to EINVAL")
	}

	err := g.Wait()
	var f *Failure
	if !errors.As(err, &f) || f.Op != "sem_open" {
		t.Errorf("Expected Serve to stop with the sem_open failure, got %v", err)
	}
}
