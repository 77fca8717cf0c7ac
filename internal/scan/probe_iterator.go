package scan

import (
	"crypto/rand"
	"math/big"
	mathrand "math/rand"
	"net"
)

// ProbeIterator produces a lazy, single-pass, finite sequence of Probes
// covering addresses x ports minus exclusions. It is not restartable and
// is owned exclusively by the pipeline driver that calls Next.
type ProbeIterator struct {
	addresses []net.IP
	ports     []int

	order ScanOrder

	// serial cursor state
	ai, pi int

	// random cursor state: a precomputed permutation of flat indices
	shuffled []int
	si       int

	total int
}

// NewProbeIterator builds the iterator for one scan, applying the exclusion
// filters before any probe is emitted.
func NewProbeIterator(cfg *ScanConfig) *ProbeIterator {
	addrs := excludeAddresses(cfg.Addresses, cfg.ExcludeAddresses)
	ports := excludePorts(cfg.Ports, cfg.ExcludePorts)

	it := &ProbeIterator{
		addresses: addrs,
		ports:     ports,
		order:     cfg.normalizedOrder(),
		total:     len(addrs) * len(ports),
	}

	if it.order == OrderRandom && it.total > 0 {
		it.shuffled = fisherYatesPermutation(it.total)
	}

	return it
}

// Len reports the total number of probes this iterator will ever emit.
func (it *ProbeIterator) Len() int {
	return it.total
}

// Next returns the next probe and true, or a zero Probe and false once the
// sequence is exhausted. O(1) per call, no heap allocation beyond the
// returned tuple.
func (it *ProbeIterator) Next() (Probe, bool) {
	if len(it.addresses) == 0 || len(it.ports) == 0 {
		return Probe{}, false
	}

	if it.order == OrderRandom {
		return it.nextRandom()
	}
	return it.nextSerial()
}

func (it *ProbeIterator) nextSerial() (Probe, bool) {
	if it.ai >= len(it.addresses) {
		return Probe{}, false
	}

	p := Probe{Address: it.addresses[it.ai], Port: it.ports[it.pi]}

	it.pi++
	if it.pi >= len(it.ports) {
		it.pi = 0
		it.ai++
	}

	return p, true
}

func (it *ProbeIterator) nextRandom() (Probe, bool) {
	if it.si >= len(it.shuffled) {
		return Probe{}, false
	}

	flat := it.shuffled[it.si]
	it.si++

	nPorts := len(it.ports)
	ai := flat / nPorts
	pi := flat % nPorts

	return Probe{Address: it.addresses[ai], Port: it.ports[pi]}, true
}

// fisherYatesPermutation builds a fresh Fisher-Yates shuffle of [0, n) using
// a cryptographically seeded source, once, up front.
func fisherYatesPermutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j := randIntn(i + 1)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failure is exceedingly rare (kernel entropy source
		// gone); degrade to a weaker but always-available source rather
		// than panic mid-scan.
		return mathrand.Intn(n)
	}
	return int(v.Int64())
}

func excludeAddresses(addrs, excluded []net.IP) []net.IP {
	if len(excluded) == 0 {
		return addrs
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, a := range excluded {
		skip[a.String()] = struct{}{}
	}
	out := make([]net.IP, 0, len(addrs))
	for _, a := range addrs {
		if _, ok := skip[a.String()]; !ok {
			out = append(out, a)
		}
	}
	return out
}

func excludePorts(ports, excluded []int) []int {
	if len(excluded) == 0 {
		return ports
	}
	skip := make(map[int]struct{}, len(excluded))
	for _, p := range excluded {
		skip[p] = struct{}{}
	}
	out := make([]int, 0, len(ports))
	for _, p := range ports {
		if _, ok := skip[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}
