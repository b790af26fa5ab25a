package domains

// HostedDomains returns the default set of names known to be mirrored under
// a hosted alias zone, so a.com can be answered as a.com.<hosted-at>.
func HostedDomains() map[string]bool {
	return map[string]bool{
		// cdn
		"d2anp67vmqk4wc.cloudfront.net": true,
		// google.com
		"google.com":                          true,
		"www.google.com":                      true,
		"mail.google.com":                     true,
		"chatenabled.mail.google.com":         true,
		"filetransferenabled.mail.google.com": true,
		"apis.google.com":                     true,
		"mobile-gtalk.google.com":             true,
		"mtalk.google.com":                    true,
		// google.com.hk
		"google.com.hk":     true,
		"www.google.com.hk": true,
		// google.cn
		"google.cn":     true,
		"www.google.cn": true,
	}
}
