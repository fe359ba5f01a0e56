package message

import (
	"bytes"
	"net/mail"
	"strings"

	"github.com/mikey/llm-email-agent/internal/core"
)

// Recipients returns the unique bare addresses of the lists
func Recipients(lists ...string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, addr := range parseAddresses(list) {
			key := strings.ToLower(addr)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}

func parseAddresses(list string) []string {
	if strings.TrimSpace(list) == "" {
		return nil
	}
	parsed, err := mail.ParseAddressList(list)
	if err != nil {
		return core.SplitAddresses(list)
	}
	out := make([]string, 0, len(parsed))
	for _, a := range parsed {
		out = append(out, a.Address)
	}
	return out
}

// StripHeader removes every occurrence of header name, with its folded
// continuation lines, from the header section of raw
func StripHeader(raw []byte, name string) []byte {
	end := bytes.Index(raw, []byte("\r\n\r\n"))
	if end < 0 {
		return raw
	}
	head, rest := raw[:end+2], raw[end+2:]

	prefix := strings.ToLower(name) + ":"
	var out bytes.Buffer
	skipping := false
	for _, line := range bytes.SplitAfter(head, []byte("\r\n")) {
		if len(line) == 0 {
			continue
		}
		if line[0] == ' ' || line[0] == '\t' {
			if !skipping {
				out.Write(line)
			}
			continue
		}
		skipping = strings.HasPrefix(strings.ToLower(string(line)), prefix)
		if !skipping {
			out.Write(line)
		}
	}
	out.Write(rest)
	return out.Bytes()
}
