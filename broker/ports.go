// File: broker/ports.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
package broker

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
)

// ErrPortExhausted is returned when allocateFreePort runs out of
// attempts without finding a bindable port.
var ErrPortExhausted = errors.New("broker: exhausted debug port allocation attempts")

const portRangeBase = 5000
const portRangeSpan = 25000
const portBandSize = 10

func randomPort() int {
	return portRangeBase + rand.Intn(portRangeSpan)
}

func isPortFree(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// allocateFreePort probes ports in bands of ten starting at a random
// offset, rerolling the band when every port in it is taken, up to
// maxAttempts total probes.
func allocateFreePort(maxAttempts int) (int, error) {
	if maxAttempts <= 0 {
		maxAttempts = 6000
	}
	attempts := 0
	for attempts < maxAttempts {
		base := randomPort()
		for p := base; p < base+portBandSize && attempts < maxAttempts; p++ {
			attempts++
			if isPortFree(p) {
				return p, nil
			}
		}
	}
	return 0, ErrPortExhausted
}
