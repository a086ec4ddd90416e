package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/idna"
)

const (
	MaxTargetLength = 253
	MaxLabelLength  = 63
)

var (
	ErrMissingInput   = errors.New("validation: missing target")
	ErrTooLong        = errors.New("validation: target too long")
	ErrBlockedAddress = errors.New("validation: blocked address")
	ErrInvalidSyntax  = errors.New("validation: invalid syntax")
	ErrLabelTooLong   = errors.New("validation: label too long")
)

const (
	reasonRequired      = "Target is required"
	reasonEmpty         = "Target cannot be empty"
	reasonTooLong       = "Target is too long"
	reasonBlocked       = "Cannot scan internal, localhost, or private network addresses"
	reasonInvalidDomain = "Invalid domain format"
	reasonNoTLD         = "Target must be a valid domain with TLD"
	reasonLabelTooLong  = "Domain label too long"
)

var (
	ipv4Pattern     = regexp.MustCompile(`^((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)$`)
	hostnamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)*$`)
)

// RejectionError is returned for every target that must not be scanned.
// Reason is safe to show to the caller.
type RejectionError struct {
	Kind   error
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

func reject(kind error, reason string) *RejectionError {
	return &RejectionError{Kind: kind, Reason: reason}
}

// Target is an accepted, normalized scan target.
type Target struct {
	Clean    string   `json:"target"`
	Warnings []string `json:"warnings,omitempty"`
	IsIP     bool     `json:"is_ip"`
}

type TargetValidator struct {
	blocklist *BlockList
	tlds      map[string]struct{}
}

type Option func(*TargetValidator)

// WithExtraBlockRules adds operator supplied rules on top of the defaults.
// Entries starting with "." match the domain and all of its subdomains.
func WithExtraBlockRules(entries ...string) Option {
	return func(v *TargetValidator) {
		v.blocklist = v.blocklist.With(ParseBlockRules(entries)...)
	}
}

// WithKnownTLDs replaces the TLD allow-list used for warnings.
func WithKnownTLDs(tlds ...string) Option {
	return func(v *TargetValidator) {
		v.tlds = toTLDSet(tlds)
	}
}

func NewTargetValidator(opts ...Option) *TargetValidator {
	v := &TargetValidator{
		blocklist: DefaultBlockList(),
		tlds:      toTLDSet(defaultKnownTLDs),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

var defaultValidator = NewTargetValidator()

// ValidateTarget runs the default validator over raw.
func ValidateTarget(raw string) (Target, error) {
	return defaultValidator.Validate(raw)
}

// Validate normalizes raw and decides whether it may be scanned. Every
// rejection is a *RejectionError; any other return is an accepted target.
func (v *TargetValidator) Validate(raw string) (Target, error) {
	if raw == "" {
		return Target{}, reject(ErrMissingInput, reasonRequired)
	}

	target := strings.ToLower(strings.TrimSpace(raw))
	if target == "" {
		return Target{}, reject(ErrMissingInput, reasonEmpty)
	}
	if utf8.RuneCountInString(target) > MaxTargetLength {
		return Target{}, reject(ErrTooLong, reasonTooLong)
	}

	target = stripScheme(target)
	target = stripDecorations(target)

	// Map before any classification so fullwidth digits and ideographic
	// full stops cannot sneak a dotted quad past the IPv4 checks.
	host, err := toASCII(target)
	if err != nil {
		return Target{}, reject(ErrInvalidSyntax, reasonInvalidDomain)
	}
	if len(host) > MaxTargetLength {
		return Target{}, reject(ErrTooLong, reasonTooLong)
	}
	host = stripWWW(host)

	if v.blocklist.Blocked(host) {
		return Target{}, reject(ErrBlockedAddress, reasonBlocked)
	}

	if ipv4Pattern.MatchString(host) {
		if reason, private := privateIPv4Reason(host); private {
			return Target{}, reject(ErrBlockedAddress, reason)
		}
		return Target{Clean: host, IsIP: true}, nil
	}

	if !hostnamePattern.MatchString(host) {
		return Target{}, reject(ErrInvalidSyntax, reasonInvalidDomain)
	}
	if !strings.Contains(host, ".") {
		return Target{}, reject(ErrInvalidSyntax, reasonNoTLD)
	}

	labels := strings.Split(host, ".")
	for _, label := range labels {
		if len(label) > MaxLabelLength {
			return Target{}, reject(ErrLabelTooLong, reasonLabelTooLong)
		}
	}
	// An all-numeric TLD is never a hostname; resolvers read 127.1 or
	// 0x7f.0.0.1 as IPv4 shorthand.
	if allDigits(labels[len(labels)-1]) {
		return Target{}, reject(ErrInvalidSyntax, reasonInvalidDomain)
	}

	return Target{Clean: host, Warnings: v.warnings(host, labels)}, nil
}

func (v *TargetValidator) warnings(host string, labels []string) []string {
	var warnings []string

	tld := labels[len(labels)-1]
	if _, known := v.tlds[tld]; !known {
		warnings = append(warnings, fmt.Sprintf("Unusual TLD detected: .%s", tld))
	}
	if strings.Contains(host, "--") {
		warnings = append(warnings, "Domain contains consecutive hyphens")
	}

	return warnings
}

func stripScheme(target string) string {
	for _, scheme := range []string{"http://", "https://"} {
		if strings.HasPrefix(target, scheme) {
			return strings.TrimPrefix(target, scheme)
		}
	}
	return target
}

// stripDecorations drops path, query, fragment and port, in that order.
func stripDecorations(target string) string {
	for _, sep := range []string{"/", "?", "#", ":"} {
		if idx := strings.Index(target, sep); idx >= 0 {
			target = target[:idx]
		}
	}
	return target
}

func stripWWW(target string) string {
	for strings.HasPrefix(target, "www.") {
		target = strings.TrimPrefix(target, "www.")
	}
	return target
}

func allDigits(label string) bool {
	for i := 0; i < len(label); i++ {
		if label[i] < '0' || label[i] > '9' {
			return false
		}
	}
	return label != ""
}

func toASCII(target string) (string, error) {
	for i := 0; i < len(target); i++ {
		if target[i] >= utf8.RuneSelf {
			return idna.Lookup.ToASCII(target)
		}
	}
	return target, nil
}

func privateIPv4Reason(ip string) (string, bool) {
	var octets [4]int
	for i, part := range strings.Split(ip, ".") {
		n, err := strconv.Atoi(part)
		if err != nil {
			return reasonInvalidDomain, true
		}
		octets[i] = n
	}

	switch {
	case octets[0] == 127:
		return "Cannot scan loopback addresses (127.x.x.x)", true
	case octets[0] == 10:
		return "Cannot scan private network addresses (10.x.x.x)", true
	case octets[0] == 172 && octets[1] >= 16 && octets[1] <= 31:
		return "Cannot scan private network addresses (172.16-31.x.x)", true
	case octets[0] == 192 && octets[1] == 168:
		return "Cannot scan private network addresses (192.168.x.x)", true
	case octets[0] == 169 && octets[1] == 254:
		return "Cannot scan link-local addresses (169.254.x.x)", true
	case octets[0] == 0:
		return "Cannot scan reserved addresses (0.x.x.x)", true
	}
	return "", false
}
