// Command hellolib builds the smoke test as a C shared library for
// foreign-function callers:
//
//	go build -buildmode=c-shared -o libhello.so ./cmd/hellolib
//
// The library exports
//
//	int hello_world(const char *name, int oflag, ...);
//
// with the variadic mode and initial value of sem_open(3). The variadic entry
// point is the C shim in hello.c since cgo cannot export variadic functions.
package main

import "C"

import (
	semaphores "github.com/open-runtime/native-semaphores"
)

//export goHelloWorld
func goHelloWorld(name *C.char, oflag C.int, mode C.int, value C.uint) C.int {
	return C.int(semaphores.HelloWorld(C.GoString(name), int(oflag), int(mode), int(value)))
}

func main() {}
