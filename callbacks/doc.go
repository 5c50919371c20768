/*
Package callbacks holds the host-supplied policy functions which every resolution
request consults, and the Registry which publishes them.

A Set has five optional slots. A nil slot has a fixed default: CheckPermission and
EvaluateDomainName allow, GetNetworkContext leaves the caller's context alone, Log and
TagSocket do nothing. A Set is always replaced as a whole. There is no way to change one
slot while leaving the others in place.

The Registry is deliberately not a package global. The host creates one, hands it to
the resolution service and re-initializes or resets it as its own lifecycle demands.
*/
package callbacks
