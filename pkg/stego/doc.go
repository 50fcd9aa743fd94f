// Package stego hides an arbitrary byte payload inside a flat carrier byte
// buffer and recovers it exactly, using least-significant-bit substitution.
//
// The caller owns the carrier buffer (typically decoded image samples) for
// the duration of a call: Embed mutates it in place, Extract only reads it.
// A self-describing descriptor is written at the front of the buffer with a
// fixed linear schedule at bit index 0, so extraction can bootstrap without
// knowing how the payload itself was scheduled. The payload is then placed
// either linearly or in a keyed pseudorandom order over the carrier bytes
// after the descriptor region.
//
// No state is shared between calls, so independent embed/extract calls are
// safe to run concurrently on different buffers.
package stego
