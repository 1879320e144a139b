package ratelimit

import (
	"fmt"
	"strings"
)

// LoginKeys builds the limiter keys checked before a login attempt: one per
// client address and one per claimed username, so a single attacker cannot
// exhaust another user's budget and a distributed attacker cannot hammer one
// account.
func LoginKeys(clientIP, username string) []string {
	keys := make([]string, 0, 2)
	if ip := strings.TrimSpace(clientIP); ip != "" {
		keys = append(keys, fmt.Sprintf("login:ip:%s", ip))
	}
	if name := strings.ToLower(strings.TrimSpace(username)); name != "" {
		keys = append(keys, fmt.Sprintf("login:user:%s", name))
	}
	return keys
}
