package validation

import "strings"

// BlockRule is a single disallowed host. A suffix rule also matches every
// subdomain of Pattern.
type BlockRule struct {
	Pattern string
	Suffix  bool
}

var defaultBlockRules = []BlockRule{
	{Pattern: "localhost", Suffix: true},
	{Pattern: "127.0.0.1"},
	{Pattern: "0.0.0.0"},
	{Pattern: "::1"},
	{Pattern: "ip6-localhost"},
	{Pattern: "ip6-loopback"},
	{Pattern: "broadcasthost"},
	{Pattern: "local", Suffix: true},
	{Pattern: "localdomain", Suffix: true},
	{Pattern: "internal", Suffix: true},
	{Pattern: "intranet", Suffix: true},
	{Pattern: "corp", Suffix: true},
	{Pattern: "lan", Suffix: true},
	{Pattern: "home", Suffix: true},
	{Pattern: "home.arpa", Suffix: true},
}

// BlockList is immutable once built; With returns a new list.
type BlockList struct {
	exact  map[string]struct{}
	suffix map[string]struct{}
}

func NewBlockList(rules ...BlockRule) *BlockList {
	bl := &BlockList{
		exact:  make(map[string]struct{}, len(rules)),
		suffix: make(map[string]struct{}, len(rules)),
	}
	bl.add(rules)
	return bl
}

func DefaultBlockList() *BlockList {
	return NewBlockList(defaultBlockRules...)
}

func (bl *BlockList) With(rules ...BlockRule) *BlockList {
	next := NewBlockList()
	for host := range bl.exact {
		next.exact[host] = struct{}{}
	}
	for host := range bl.suffix {
		next.suffix[host] = struct{}{}
	}
	next.add(rules)
	return next
}

func (bl *BlockList) add(rules []BlockRule) {
	for _, rule := range rules {
		pattern := strings.Trim(strings.ToLower(strings.TrimSpace(rule.Pattern)), ".")
		if pattern == "" {
			continue
		}
		if rule.Suffix {
			bl.suffix[pattern] = struct{}{}
		} else {
			bl.exact[pattern] = struct{}{}
		}
	}
}

func (bl *BlockList) Len() int {
	return len(bl.exact) + len(bl.suffix)
}

// Blocked reports whether host equals a rule or sits under a suffix rule.
// Suffixes are probed at label boundaries, so the cost is bounded by the
// number of labels in host rather than the size of the list.
func (bl *BlockList) Blocked(host string) bool {
	if host == "" {
		return false
	}
	if _, ok := bl.exact[host]; ok {
		return true
	}

	for candidate := host; candidate != ""; {
		if _, ok := bl.suffix[candidate]; ok {
			return true
		}
		idx := strings.IndexByte(candidate, '.')
		if idx < 0 {
			break
		}
		candidate = candidate[idx+1:]
	}
	return false
}

// ParseBlockRules turns settings entries into rules. A leading "." marks a
// suffix rule, "*.example.com" is accepted as an alias.
func ParseBlockRules(entries []string) []BlockRule {
	rules := make([]BlockRule, 0, len(entries))
	for _, raw := range entries {
		entry := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case entry == "":
			continue
		case strings.HasPrefix(entry, "*."):
			rules = append(rules, BlockRule{Pattern: entry[2:], Suffix: true})
		case strings.HasPrefix(entry, "."):
			rules = append(rules, BlockRule{Pattern: entry[1:], Suffix: true})
		default:
			rules = append(rules, BlockRule{Pattern: entry})
		}
	}
	return rules
}
