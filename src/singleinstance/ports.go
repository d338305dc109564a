package singleinstance

const DefaultPort = 49600

// ResolvePort returns port, or DefaultPort when port is unset, and clamps
// the result to [1024, 65535].
func ResolvePort(port int) int {
	if port == 0 {
		return DefaultPort
	}
	if port < 1024 {
		return 1024
	}
	if port > 65535 {
		return 65535
	}
	return port
}
