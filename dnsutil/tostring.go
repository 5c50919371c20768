package dnsutil

import (
	"fmt"

	"github.com/miekg/dns"
)

// TypeToString returns the mnemonic of a query type, or "T-n" for types miekg does not
// know, so events and logs never show an empty type.
func TypeToString(t uint16) string {
	return mnemonic(dns.TypeToString, t, "T")
}

// RcodeToString returns the mnemonic of a response code, or "r-n".
func RcodeToString(r int) string {
	return mnemonic(dns.RcodeToString, r, "r")
}

// OpcodeToString returns the mnemonic of an opcode, or "o-n".
func OpcodeToString(o int) string {
	return mnemonic(dns.OpcodeToString, o, "o")
}

func mnemonic[K uint16 | int](m map[K]string, k K, prefix string) string {
	if s := m[k]; len(s) > 0 {
		return s
	}

	return fmt.Sprintf("%s-%d", prefix, k)
}
