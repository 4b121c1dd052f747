// Package server implements the chat service: the session registry, the
// history log, the command-dispatching engine, and the TCP and WebSocket
// fronts that feed it.
//
// All shared state lives behind one engine run loop, so command handling is
// serialized even though connection I/O is concurrent. The code is split
// into focused files for the registry, history, engine, drivers, and
// transports to keep each concern testable on its own.
package server
