package resolver

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/miekg/dns"

	"github.com/markdingo/netresolv/log"
)

// parseResponse converts a text description of a response into a dns.Msg. Each line is
// parsed with dns.NewRR with a prefix indicating which section the RR belongs in:
//
// A:Answer
// N:NS
// E:Extra
// RCODE:miekg rcode string - must be uppercase - see miekg/msg.go
// ;; Comment
// Blank lines ignored
// No spaces between the ":" separator
//
// An empty description results in NXDOMAIN. Malformed input is a test setup error and
// panics.
func parseResponse(rdr io.Reader, name string) (r dns.Msg) {
	rcode := -1 // Means not set

	scanner := bufio.NewScanner(rdr)
	ln := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		ln++
		if len(line) == 0 {
			continue
		}
		if strings.HasPrefix(line, ";;") {
			continue
		}
		ar := strings.SplitN(line, ":", 2)
		if len(ar) != 2 { // Malformed is a setup error
			panic(fmt.Sprintf("Malformed mock response %s line %d", name, ln))
		}

		if ar[0] == "RCODE" {
			var ok bool
			rcode, ok = dns.StringToRcode[ar[1]]
			if !ok {
				panic("mock: unknown RCODE " + ar[1])
			}
			log.Debugf("Mock:Parse:Rcode %d from '%s'", rcode, ar[1])
			continue
		}

		rr, err := dns.NewRR(ar[1])
		if err != nil {
			panic(err) // Parse failure is a setup error
		}

		switch ar[0] {
		case "A":
			r.Answer = append(r.Answer, rr)
		case "N":
			r.Ns = append(r.Ns, rr)
		case "E":
			r.Extra = append(r.Extra, rr)

		default:
			panic("mock bad Section: " + ar[0])
		}
	}

	if rcode == -1 {
		if len(r.Answer) == 0 && len(r.Ns) == 0 && len(r.Extra) == 0 {
			rcode = dns.RcodeNameError // NXDOMAIN
		}
	}
	if rcode == -1 {
		rcode = dns.RcodeSuccess
	}
	r.MsgHdr.Rcode = rcode

	return
}
