// Package targetexpand turns a user-supplied target specification (CIDR,
// range, single IP, hostname, comma list, or a file containing any mix of
// those, one per line) into the flat net.IP slice a scan.ScanConfig wants.
package targetexpand

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"portsweep/internal/pkg/logger"
)

// Expand resolves spec into an ordered, deduplicated slice of addresses.
// Entries that can't be parsed as a CIDR, range, IP, or resolvable hostname
// are skipped with a warning rather than aborting the whole expansion, since
// one bad line in a large target file shouldn't sink the rest of it.
func Expand(spec string) ([]net.IP, error) {
	var entries []string

	if data, err := os.ReadFile(spec); err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				entries = append(entries, line)
			}
		}
	} else if os.IsNotExist(err) || os.IsPermission(err) {
		for _, part := range strings.Split(spec, ",") {
			if part = strings.TrimSpace(part); part != "" {
				entries = append(entries, part)
			}
		}
	} else {
		return nil, fmt.Errorf("targetexpand: stat %s: %w", spec, err)
	}

	seen := make(map[string]bool)
	var out []net.IP
	for _, entry := range entries {
		for _, ip := range parseEntry(entry) {
			key := ip.String()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, ip)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("targetexpand: %q resolved to no addresses", spec)
	}
	return out, nil
}

func parseEntry(target string) []net.IP {
	if target == "" || strings.HasPrefix(target, "#") {
		return nil
	}

	if _, ipNet, err := net.ParseCIDR(target); err == nil {
		var out []net.IP
		for ip := cloneIP(ipNet.IP.Mask(ipNet.Mask)); ipNet.Contains(ip); inc(ip) {
			out = append(out, cloneIP(ip))
		}
		return out
	}

	if strings.Contains(target, "-") {
		parts := strings.SplitN(target, "-", 2)
		start := net.ParseIP(strings.TrimSpace(parts[0]))
		end := net.ParseIP(strings.TrimSpace(parts[1]))
		if start != nil && end != nil {
			var out []net.IP
			for ip := cloneIP(start); bytesCompare(ip, end) <= 0; inc(ip) {
				out = append(out, cloneIP(ip))
				if len(out) > 1<<20 {
					break // runaway range guard
				}
			}
			return out
		}
	}

	if ip := net.ParseIP(target); ip != nil {
		return []net.IP{ip}
	}

	if ips, err := net.LookupHost(target); err == nil {
		var out []net.IP
		for _, s := range ips {
			if ip := net.ParseIP(s); ip != nil {
				out = append(out, ip)
			}
		}
		return out
	}

	logger.Warnf("targetexpand: skipping unresolvable target %q", target)
	return nil
}

func cloneIP(ip net.IP) net.IP {
	out := make(net.IP, len(ip))
	copy(out, ip)
	return out
}

func inc(ip net.IP) {
	for j := len(ip) - 1; j >= 0; j-- {
		ip[j]++
		if ip[j] > 0 {
			break
		}
	}
}

func bytesCompare(a, b net.IP) int {
	a4, b4 := a.To4(), b.To4()
	if a4 != nil && b4 != nil {
		a, b = a4, b4
	}
	if len(a) != len(b) {
		return len(a) - len(b)
	}
	for i := range a {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	return 0
}
