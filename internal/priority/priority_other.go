//go:build !linux

package priority

import "fmt"

func lowerCPUPriority() error {
	return fmt.Errorf("lowering CPU niceness is not implemented on this platform")
}

func lowerIOPriority() error {
	return fmt.Errorf("ioprio_set is Linux-only")
}
