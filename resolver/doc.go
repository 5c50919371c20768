/*
Package resolver defines an interface and provides a concrete implementation of the stub
query engine used by netresolv. It is a thin layer over github.com/miekg/dns which adds
retries, TCP fallback, per-server result reporting and, most importantly, a SocketHook
which is called with the file descriptor of every query socket after it is created and
before any packet is sent.

The package exists as an interface so the engine can be mocked for testing purposes.
*/
package resolver
