// Package fdio adapts raw file descriptors to the io interfaces consumed by
// bgio.Reader and bgio.Writer.
//
// A File owns its descriptor and supports explicit cancellation of a blocked
// Read through an eventfd polled next to the data descriptor, so shutting a
// reader down never depends on closing a descriptor another goroutine is
// blocked on. SocketReader and SocketWriter are half-duplex views over one
// socket that shut down their own direction on Close.
package fdio
