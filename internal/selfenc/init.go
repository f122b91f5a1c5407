package selfenc

import "sync"

// initOnce guards one-time process-wide crypto setup. The primitives this
// package uses (sha3, nacl/secretbox, brotli) are pure-Go and need no
// explicit initialisation today, but every public entry point still routes
// through this guard so a future primitive swap that does need one-time
// setup has a single place to wire it in.
var initOnce sync.Once

func ensureCryptoInitialised() {
	initOnce.Do(func() {})
}
