/*
Package ownership transfers ownership of resolver sockets so the traffic they carry is
accounted to the right identity.

Whether a socket can be handed to an arbitrary application uid depends on the platform
capability level. At or above CapabilityThreshold the socket is chowned to the requested
uid. Below it the platform lacks the permission model to do that safely and the socket
is instead chowned to the reserved DNS identity, AIDDNS. Adapter.TagSocket is the only
place this decision is made.
*/
package ownership
