//go:build arm64

package semaphores

// DefaultTarget is the smoke test layout for this build.
const DefaultTarget = TargetARM64
