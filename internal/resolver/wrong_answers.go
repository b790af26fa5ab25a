package resolver

// builtinWrongAnswers is the set of IPv4 addresses historically observed as
// injected DNS answers. A single-answer UDP response carrying one of these
// is treated as evidence of poisoning.
var builtinWrongAnswers = map[string]bool{
	"4.36.66.178":     true,
	"8.7.198.45":      true,
	"37.61.54.158":    true,
	"46.82.174.68":    true,
	"59.24.3.173":     true,
	"64.33.88.161":    true,
	"64.33.99.47":     true,
	"64.66.163.251":   true,
	"65.104.202.252":  true,
	"65.160.219.113":  true,
	"66.45.252.237":   true,
	"72.14.205.99":    true,
	"72.14.205.104":   true,
	"78.16.49.15":     true,
	"93.46.8.89":      true,
	"128.121.126.139": true,
	"159.106.121.75":  true,
	"169.132.13.103":  true,
	"192.67.198.6":    true,
	"202.106.1.2":     true,
	"202.181.7.85":    true,
	"203.161.230.171": true,
	"203.98.7.65":     true,
	"207.12.88.98":    true,
	"208.56.31.43":    true,
	"209.36.73.33":    true,
	"209.145.54.50":   true,
	"209.220.30.174":  true,
	"211.94.66.147":   true,
	"213.169.251.35":  true,
	"216.221.188.182": true,
	"216.234.179.13":  true,
	"243.185.187.39":  true,
	// plus.google.com
	"74.125.127.102": true,
	"74.125.155.102": true,
	"74.125.39.113":  true,
	"74.125.39.102":  true,
	"209.85.229.138": true,
	// opendns
	"67.215.65.132": true,
}

// BuiltinWrongAnswers returns a copy of the built-in forged-answer set.
func BuiltinWrongAnswers() map[string]bool {
	set := make(map[string]bool, len(builtinWrongAnswers))
	for answer := range builtinWrongAnswers {
		set[answer] = true
	}
	return set
}

// mergeWrongAnswers unions the caller-supplied forged answers with the
// built-in set.
func mergeWrongAnswers(extra map[string]bool) map[string]bool {
	merged := BuiltinWrongAnswers()
	for answer := range extra {
		merged[answer] = true
	}
	return merged
}
