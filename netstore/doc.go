/*
Package netstore maps network identifiers to their resolver configuration and cache
state.

Each Network owns an immutable Config snapshot (nameservers, search domains and
resolution Params), an answer cache, per-nameserver statistics and the bookkeeping for
queries currently in flight. Config replacement is a pointer swap so a request which
loaded the Config before a SetNameservers sees the old values throughout and one which
loaded it after sees the new values throughout.

The Store never retries and never creates networks implicitly. Create of an existing
network and Destroy or SetNameservers of a missing one are errors, as is anything that
violates the Params invariants.
*/
package netstore
