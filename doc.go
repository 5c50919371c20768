// Copyright (c) 2021, 2022 Mark Delany. All rights reserved. Use of this source code is
// governed by a BSD-style license that can be found in the LICENSE file.

/*
Package netresolv is a per-network DNS stub resolution service whose security decisions
are delegated to the host process.

The host registers one set of callbacks with Service.Init. Those callbacks decide whether
a caller may resolve at all, which domain names it may query, who ends up owning each
query socket and where request summaries are logged. Networks are created, configured
with nameservers, search domains and resolution parameters and destroyed independently
of each other, each with its own answer cache and nameserver statistics.

Every GetAddrInfo call passes through a fixed sequence of checkpoints: network context
override, permission, domain evaluation (once per name sent to a nameserver), socket
tagging and ownership (once per query socket) and logging. A rejection at the permission
or domain checkpoint happens before any socket is created.

Project site: https://github.com/markdingo/netresolv
*/
package netresolv
