package semaphores

import (
	"errors"
	"io"
	"log"
)

// Call asks the harness to run one smoke test. Args holds the variadic
// arguments exactly as the caller would pass them to hello_world.
type Call struct {
	Name   string `msgpack:"name"`
	Oflag  int    `msgpack:"oflag"`
	Args   []int  `msgpack:"args"`
	Target string `msgpack:"target,omitempty"`
}

// Reply answers a Call. Status is ExitSuccess or ExitFailure; Failure is set
// only in the latter case. Report is nil when the call could not be decoded.
type Reply struct {
	Status  int      `msgpack:"status"`
	Report  *Report  `msgpack:"report,omitempty"`
	Failure *Failure `msgpack:"failure,omitempty"`
}

// Serve answers calls read from t until the peer hangs up, writing the
// diagnostics of each run to out. Malformed calls are answered and skipped.
// A failing run is answered with its Failure and then returned, so the
// caller can terminate just as HelloWorld would.
func Serve(t Transport, c Codec, out io.Writer) error {
	for {
		data, err := t.Receive()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		var call Call
		if err := c.Unmarshal(data, &call); err != nil {
			log.Printf("Error decoding call: %v", err)
			if err := send(t, c, &Reply{Status: ExitFailure, Failure: newFailure("decode", err)}); err != nil {
				return err
			}
			continue
		}
		target, err := ParseTarget(call.Target)
		if err != nil {
			log.Printf("Error in call for %q: %v", call.Name, err)
			if err := send(t, c, &Reply{Status: ExitFailure, Failure: newFailure("decode", err)}); err != nil {
				return err
			}
			continue
		}

		report, runErr := Run(out, target, call.Name, call.Oflag, call.Args...)
		reply := &Reply{Status: ExitSuccess, Report: report}
		var f *Failure
		if runErr != nil {
			if !errors.As(runErr, &f) {
				f = newFailure("hello_world", runErr)
			}
			reply.Status = ExitFailure
			reply.Failure = f
		}
		if err := send(t, c, reply); err != nil {
			return err
		}
		if f != nil {
			return f
		}
	}
}

func send(t Transport, c Codec, reply *Reply) error {
	data, err := c.Marshal(reply)
	if err != nil {
		return err
	}
	return t.Send(data)
}
