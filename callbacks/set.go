package callbacks

// Set is the complete collection of host callbacks. Every field may be nil.
//
// Callbacks are invoked synchronously on the request goroutine and without any timeout,
// so a slow callback stalls the request which invoked it. They must be safe for
// concurrent use as many requests run at once.
type Set struct {
	// CheckPermission decides whether the context may resolve at all. Called before
	// any socket is created.
	CheckPermission func(nc NetContext) bool

	// GetNetworkContext may supply a replacement context for uid and mark. The
	// replacement is only used if ok is true.
	GetNetworkContext func(uid, mark uint32) (nc NetContext, ok bool)

	// Log receives human-readable request summaries. Panics are recovered and
	// ignored.
	Log func(msg string)

	// TagSocket is called for each query socket once it is created. An error is
	// logged but does not abort the request.
	TagSocket func(fd int, tag, uid uint32, pid int32) error

	// EvaluateDomainName decides whether name may be queried for the context. It is
	// called once for each distinct fully qualified name sent to nameservers.
	EvaluateDomainName func(nc NetContext, name string) bool
}

// IsEmpty returns true if no slot is populated.
func (t Set) IsEmpty() bool {
	return t.CheckPermission == nil && t.GetNetworkContext == nil && t.Log == nil &&
		t.TagSocket == nil && t.EvaluateDomainName == nil
}

// Names returns the names of the populated slots for logging purposes.
func (t Set) Names() []string {
	var ar []string
	if t.CheckPermission != nil {
		ar = append(ar, "check_calling_permission")
	}
	if t.GetNetworkContext != nil {
		ar = append(ar, "get_network_context")
	}
	if t.Log != nil {
		ar = append(ar, "log")
	}
	if t.TagSocket != nil {
		ar = append(ar, "tagSocket")
	}
	if t.EvaluateDomainName != nil {
		ar = append(ar, "evaluate_domain_name")
	}

	return ar
}
