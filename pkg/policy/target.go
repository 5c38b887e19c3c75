package policy

import (
	"net/netip"
	"regexp"
	"strings"

	"github.com/talonsec/talon/pkg/config"
)

// fqdnLabelPattern matches one RFC 1035 hostname label: letters, digits and
// interior hyphens, at most 63 characters.
var fqdnLabelPattern = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?$`)

// TargetValidator decides whether a target string is inside the engagement's
// authorized scope. Decision order: blocklist, then IP-vs-network
// membership, then domain suffix match. Targets that are neither an IP nor
// an RFC-compliant FQDN are denied.
type TargetValidator struct {
	networks []netip.Prefix
	domains  []string
	blocked  map[string]bool
}

// NewTargetValidator builds a validator from the target_validation config
// section. Malformed CIDR entries are reported so a typo cannot silently
// widen or narrow scope.
func NewTargetValidator(cfg config.TargetValidationConfig) (*TargetValidator, error) {
	v := &TargetValidator{
		blocked: make(map[string]bool, len(cfg.BlockedTargets)),
	}

	for _, cidr := range cfg.AuthorizedNetworks {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			// A bare IP authorizes exactly that host
			if addr, addrErr := netip.ParseAddr(cidr); addrErr == nil {
				v.networks = append(v.networks, netip.PrefixFrom(addr, addr.BitLen()))
				continue
			}
			return nil, config.NewValidationError("policy", "target_validation", "authorized_networks",
				err)
		}
		v.networks = append(v.networks, prefix)
	}

	for _, d := range cfg.AuthorizedDomains {
		v.domains = append(v.domains, normalizeDomain(d))
	}
	for _, t := range cfg.BlockedTargets {
		v.blocked[normalizeDomain(t)] = true
	}

	return v, nil
}

// Decision carries the outcome of one authorization check. Denied reasons
// feed straight into the violation log.
type Decision struct {
	Allowed bool
	Reason  string
	// Invalid is set when the target is neither an IP nor a valid FQDN
	Invalid bool
}

// Validate runs the decision procedure for one target string.
func (v *TargetValidator) Validate(target string) Decision {
	t := normalizeDomain(target)
	if t == "" {
		return Decision{Invalid: true, Reason: "empty target"}
	}

	if v.blocked[t] {
		return Decision{Reason: "target is explicitly blocked"}
	}

	// IP targets: membership in an authorized network
	if addr, err := netip.ParseAddr(t); err == nil {
		for _, network := range v.networks {
			if network.Contains(addr) {
				return Decision{Allowed: true}
			}
		}
		return Decision{Reason: "IP address is not in any authorized network"}
	}

	if !IsValidFQDN(t) {
		return Decision{Invalid: true, Reason: "target is neither an IP address nor a valid domain name"}
	}

	// Domain targets: exact match or <label>.<authorized> suffix match
	for _, domain := range v.domains {
		if t == domain || strings.HasSuffix(t, "."+domain) {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: "domain is not authorized"}
}

// IsValidFQDN reports whether the string is an RFC-compliant fully
// qualified domain name: dot-separated valid labels with a non-numeric TLD.
func IsValidFQDN(s string) bool {
	if len(s) == 0 || len(s) > 253 {
		return false
	}
	labels := strings.Split(s, ".")
	if len(labels) < 2 {
		return false
	}
	for _, label := range labels {
		if !fqdnLabelPattern.MatchString(label) {
			return false
		}
	}
	// A purely numeric TLD means this was a malformed IP, not a domain
	tld := labels[len(labels)-1]
	if strings.IndexFunc(tld, func(r rune) bool { return r < '0' || r > '9' }) == -1 {
		return false
	}
	return true
}

// normalizeDomain lowercases and strips the trailing dot so comparisons
// are canonical.
func normalizeDomain(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ".")
}
