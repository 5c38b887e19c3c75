package adapter

import (
	"net/netip"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

var (
	// fqdnPattern matches an RFC-compliant FQDN: dot-separated labels of
	// letters, digits and interior hyphens.
	fqdnPattern = regexp.MustCompile(`^([a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?\.)+[a-zA-Z]{2,63}$`)

	// safeFlagPattern matches scanner flags like -sV, --top-ports=1000.
	// Anything outside this shape is refused before it reaches a runner.
	safeFlagPattern = regexp.MustCompile(`^-{1,2}[a-zA-Z0-9][a-zA-Z0-9=,._/:-]*$`)
)

// ValidateDomain checks RFC validity of a domain name parameter.
func ValidateDomain(param, value string) error {
	if !fqdnPattern.MatchString(value) {
		return ParamError(param, "must be a valid domain name")
	}
	return nil
}

// ValidateHost accepts either an IP address or a valid domain name.
func ValidateHost(param, value string) error {
	if _, err := netip.ParseAddr(value); err == nil {
		return nil
	}
	if fqdnPattern.MatchString(value) {
		return nil
	}
	return ParamError(param, "must be an IP address or a valid domain name")
}

// ValidateURL checks that the value is an absolute http(s) URL with a host.
func ValidateURL(param, value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return ParamError(param, "must be a valid URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ParamError(param, "must use http or https")
	}
	if u.Host == "" {
		return ParamError(param, "must include a host")
	}
	return nil
}

// ValidatePort checks a single port number.
func ValidatePort(param string, port int) error {
	if port < 1 || port > 65535 {
		return ParamError(param, "must be between 1 and 65535")
	}
	return nil
}

// ValidatePortSpec checks nmap-style port specifications: single ports,
// comma lists, and dash ranges ("80", "80,443", "1-1024").
func ValidatePortSpec(param, spec string) error {
	for _, part := range strings.Split(spec, ",") {
		low, high, ok := strings.Cut(part, "-")
		bounds := []string{low}
		if ok {
			bounds = append(bounds, high)
		}
		for _, b := range bounds {
			n, err := strconv.Atoi(strings.TrimSpace(b))
			if err != nil {
				return ParamError(param, "must be a port, list, or range")
			}
			if err := ValidatePort(param, n); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateFlags checks each extra scanner flag against the safe-flag shape.
func ValidateFlags(param string, flags []string) error {
	for _, f := range flags {
		if !safeFlagPattern.MatchString(f) {
			return ParamError(param, "flag "+strconv.Quote(f)+" is not a safe flag")
		}
	}
	return nil
}

// ValidateEnum checks membership in an allowed value set.
func ValidateEnum(param, value string, allowed []string) error {
	if !slices.Contains(allowed, value) {
		return ParamError(param, "must be one of: "+strings.Join(allowed, ", "))
	}
	return nil
}
