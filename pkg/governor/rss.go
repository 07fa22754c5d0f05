package governor

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/recut/pkg/alg/stats"
	"github.com/Sumatoshi-tech/recut/pkg/units"
)

const (
	procSelfStatusPath = "/proc/self/status"
	vmRSSPrefix        = "VmRSS:"

	// minStatusFields is the minimum number of space-separated fields in a
	// VmRSS line ("VmRSS:  123456 kB" has 3).
	minStatusFields = 2
)

// errNoRSS is returned when the RSS line is absent, typically off-Linux.
var errNoRSS = errors.New("governor: VmRSS not available")

// rssTracker smooths RSS samples with an exponential moving average. The
// declared-size accounting is optimistic; the sampled RSS catches native
// allocations the backends did not declare.
type rssTracker struct {
	ema *stats.EMA
}

func newRSSTracker(alpha float64) *rssTracker {
	return &rssTracker{ema: stats.NewEMA(alpha)}
}

// Observe feeds one RSS sample in bytes.
func (t *rssTracker) Observe(sample int64) {
	t.ema.Update(float64(sample))
}

// Smoothed returns the smoothed RSS in bytes, zero before the first sample.
func (t *rssTracker) Smoothed() int64 {
	if !t.ema.Initialized() {
		return 0
	}

	return int64(t.ema.Value())
}

// readRSSBytes parses VmRSS from /proc/self/status. The kernel reports it in
// kibibytes.
func readRSSBytes() (int64, error) {
	f, err := os.Open(procSelfStatusPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, vmRSSPrefix) {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < minStatusFields {
			return 0, errNoRSS
		}

		kib, parseErr := strconv.ParseInt(fields[1], 10, 64)
		if parseErr != nil {
			return 0, parseErr
		}

		return kib * units.KiB, nil
	}

	if err := scanner.Err(); err != nil {
		return 0, err
	}

	return 0, errNoRSS
}
