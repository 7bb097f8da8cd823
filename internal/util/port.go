package util

import "fmt"

// Bounds for the local listen ports of tunneled service forwards.
const (
	MinPort = 1
	MaxPort = 65535
)

// ValidatePort checks that port can serve as a local listen port for a
// tunneled service. The localproxy would reject an invalid mapping only
// at spawn time, so config validation catches it up front.
func ValidatePort(port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("port %d out of range (must be %d-%d)", port, MinPort, MaxPort)
	}
	return nil
}
