package logger

import (
	"strconv"
	"strings"
	"sync/atomic"
)

// ratio samples num events out of every den. The zero ratio keeps every event.
type ratio struct {
	num, den int
}

var defaultDebugSample = ratio{num: 1, den: 50}

// sampler keeps the first num events of every window of den.
type sampler struct {
	r    ratio
	seen atomic.Uint64
}

func newSampler(r ratio) *sampler {
	if r.num > r.den {
		r.num = r.den
	}
	return &sampler{r: r}
}

// Allow reports whether the current event passes sampling.
func (s *sampler) Allow() bool {
	if s.r.num <= 0 || s.r.den <= 0 {
		return true
	}
	n := s.seen.Add(1) - 1
	return n%uint64(s.r.den) < uint64(s.r.num)
}

// parseRatio reads "1/10", "10" (one in ten) or "5%". Zero keeps every event.
// ok is false when spec is empty or malformed.
func parseRatio(spec string) (r ratio, ok bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return ratio{}, false
	}
	if pct, isPct := strings.CutSuffix(spec, "%"); isPct {
		n, err := strconv.Atoi(strings.TrimSpace(pct))
		if err != nil || n < 0 {
			return ratio{}, false
		}
		return ratio{num: min(n, 100), den: 100}, true
	}
	if num, den, isFrac := strings.Cut(spec, "/"); isFrac {
		n, err1 := strconv.Atoi(strings.TrimSpace(num))
		d, err2 := strconv.Atoi(strings.TrimSpace(den))
		if err1 != nil || err2 != nil || n < 0 || d <= 0 {
			return ratio{}, false
		}
		return ratio{num: n, den: d}, true
	}
	n, err := strconv.Atoi(spec)
	if err != nil || n < 0 {
		return ratio{}, false
	}
	if n == 0 {
		return ratio{}, true
	}
	return ratio{num: 1, den: n}, true
}
