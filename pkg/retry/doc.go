// Package retry provides exponential backoff for transient transport failures.
//
// Two shapes are offered:
//
//   - Do: run a function until it succeeds, the attempts are exhausted or the
//     context ends. Used for binding endpoints that may be briefly held by a
//     previous process.
//   - Backoff: a stateful delay sequence for long-lived loops that retry
//     forever, such as a socket's dial loop reconnecting to a lost peer.
//
// # Configuration Presets
//
//   - DefaultConfig(): 3 attempts, 100ms-5s delay
//   - Quick(): 10 attempts, 50ms-1s delay (bind at startup)
//   - Reconnect(): unbounded, 10ms-2s delay (dial loops)
//
// # Usage
//
//	err := retry.Do(ctx, retry.Quick(), func() error {
//	    return sock.Bind(addr)
//	})
//
//	b := retry.NewBackoff(retry.Reconnect())
//	for {
//	    conn, err := dial()
//	    if err == nil {
//	        b.Reset()
//	        ...
//	    }
//	    time.Sleep(b.Next())
//	}
//
// Errors classified as invalid or fatal by the errors package, and errors
// wrapped with NonRetryable, stop Do immediately.
package retry
