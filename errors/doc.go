// Package errors provides the error vocabulary shared by the codec, the transport
// and the forwarder.
//
// # Error Classification
//
// Every error the module surfaces falls into one of three classes:
//
//   - Transient: the operation may succeed later, for example a vanished peer or a full send queue.
//   - Invalid: the input can never be accepted, such as a malformed frame or an oversized field.
//   - Fatal: the component cannot continue, typically a bind failure at startup.
//
// The wire-level kinds map onto these classes:
//
//	ErrMalformedFrame    -> Invalid   (decode-time structural violation)
//	ErrEncoding          -> Invalid   (a field's size cannot be represented)
//	ErrTransportFailure  -> Transient (send/recv/poll failure)
//
// # Error Wrapping Pattern
//
// Wrapping follows the format
//
//	"component.method: action failed: %w"
//
// and the classification travels with the chain:
//
//	if err := sock.Bind(addr); err != nil {
//	    return errors.WrapFatal(err, "forwarder", "Init", "bind frontend-subscribe")
//	}
//
//	if errors.Is(err, errors.ErrMalformedFrame) {
//	    // drop the message, keep the loop running
//	}
package errors
