// Package whitelist restricts which recipient domains the agent may mail.
package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker allows recipients whose domain is on a configured list. An empty
// list allows every recipient.
type Checker struct {
	domains map[string]struct{}
	logger  *zap.Logger
}

// NewChecker creates a new recipient domain checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := make(map[string]struct{}, len(domains))
	list := make([]string, 0, len(domains))
	for _, domain := range domains {
		d := strings.ToLower(strings.TrimSpace(domain))
		if d == "" {
			continue
		}
		if _, seen := normalized[d]; !seen {
			list = append(list, d)
		}
		normalized[d] = struct{}{}
	}

	if len(list) > 0 && logger != nil {
		logger.Info("Initialized recipient policy", zap.Strings("domains", list))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsAllowed reports whether every address in a comma-separated list has an
// allowed domain
func (c *Checker) IsAllowed(address string) bool {
	if len(c.domains) == 0 {
		return true
	}

	found := false
	for _, addr := range strings.Split(address, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		found = true
		if !c.domainAllowed(addr) {
			if c.logger != nil {
				c.logger.Debug("Recipient domain not allowed", zap.String("email", addr))
			}
			return false
		}
	}
	return found
}

func (c *Checker) domainAllowed(addr string) bool {
	// Display-name form: "Bob <bob@example.com>"
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		addr = strings.TrimSuffix(addr[i+1:], ">")
	}
	at := strings.LastIndex(addr, "@")
	if at < 0 || at == len(addr)-1 {
		return false
	}
	_, ok := c.domains[strings.ToLower(addr[at+1:])]
	return ok
}
