// Package qdisc encodes NetemConfig into the kernel's tc(8) netem grammar
// and decodes tc qdisc show output back into a NetemConfig. The grammar and
// parsing behavior are pinned to what Linux's netem qdisc and tc actually
// print, not to any particular display convention.
package qdisc

import (
	"fmt"
	"strconv"
	"strings"

	"tcmesh/internal/tcproto"
)

// Encode renders c's enabled, meaningful blocks into the ordered token list
// netem expects after "tc qdisc replace dev <iface> root netem". A block
// contributes nothing unless it is enabled and its primary percentage (or
// rate) is greater than zero; correlation and jitter tokens are gated the
// same way, and each block's correlation is only emitted once the
// preceding required token is present.
func Encode(c tcproto.NetemConfig) []string {
	var toks []string

	if c.Loss.Enabled && c.Loss.Percent > 0 {
		toks = append(toks, "loss", pct(c.Loss.Percent))
		if c.Loss.Correlation > 0 {
			toks = append(toks, pct(c.Loss.Correlation))
		}
	}

	if c.Delay.Enabled && c.Delay.BaseMs > 0 {
		toks = append(toks, "delay", ms(c.Delay.BaseMs))
		if c.Delay.JitterMs > 0 {
			toks = append(toks, ms(c.Delay.JitterMs))
			if c.Delay.Correlation > 0 {
				toks = append(toks, pct(c.Delay.Correlation))
			}
		}
	}

	if c.Duplicate.Enabled && c.Duplicate.Percent > 0 {
		toks = append(toks, "duplicate", pct(c.Duplicate.Percent))
		if c.Duplicate.Correlation > 0 {
			toks = append(toks, pct(c.Duplicate.Correlation))
		}
	}

	if c.Reorder.Enabled && c.Reorder.Percent > 0 {
		toks = append(toks, "reorder", pct(c.Reorder.Percent))
		if c.Reorder.Correlation > 0 {
			toks = append(toks, pct(c.Reorder.Correlation))
		}
		if c.Reorder.Gap > 0 {
			toks = append(toks, "gap", strconv.Itoa(c.Reorder.Gap))
		}
	}

	if c.Corrupt.Enabled && c.Corrupt.Percent > 0 {
		toks = append(toks, "corrupt", pct(c.Corrupt.Percent))
		if c.Corrupt.Correlation > 0 {
			toks = append(toks, pct(c.Corrupt.Correlation))
		}
	}

	if c.RateLimit.Enabled && c.RateLimit.RateKbps > 0 {
		toks = append(toks, "rate", rate(c.RateLimit.RateKbps))
	}

	return toks
}

// Command renders the full human-readable tc(8) invocation for display and
// for TcConfiguration.Command.
func Command(iface string, c tcproto.NetemConfig) string {
	parts := []string{fmt.Sprintf("tc qdisc replace dev %s root netem", iface)}
	toks := Encode(c)
	if len(toks) > 0 {
		parts = append(parts, strings.Join(toks, " "))
	}
	return strings.Join(parts, " ")
}

// Decode parses a textual qdisc line (as produced by `tc qdisc show`,
// containing the literal substring "netem") into a NetemConfig. Fields with
// no recognizable token are left at their zero value and Enabled=false;
// this is QdiscDecodeIncomplete territory, handled silently by design.
func Decode(line string) tcproto.NetemConfig {
	var c tcproto.NetemConfig

	if idx := strings.Index(line, "loss "); idx >= 0 {
		rest := line[idx+len("loss "):]
		if pctIdx := strings.Index(rest, "%"); pctIdx >= 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rest[:pctIdx]), 64); err == nil {
				c.Loss.Enabled = true
				c.Loss.Percent = v
				c.Loss.Correlation = trailingPct(rest[pctIdx+1:])
			}
		}
	}

	if idx := strings.Index(line, "delay "); idx >= 0 {
		rest := line[idx+len("delay "):]
		toks := strings.Fields(rest)
		if len(toks) > 0 {
			if v, ok := parseDelayToken(toks[0]); ok {
				c.Delay.Enabled = true
				c.Delay.BaseMs = v
			}
			if len(toks) > 1 && strings.HasSuffix(toks[1], "ms") {
				if v, err := strconv.ParseFloat(strings.TrimSuffix(toks[1], "ms"), 64); err == nil {
					c.Delay.JitterMs = v
				}
				if len(toks) > 2 && strings.HasSuffix(toks[2], "%") {
					if v, err := strconv.ParseFloat(strings.TrimSuffix(toks[2], "%"), 64); err == nil {
						c.Delay.Correlation = v
					}
				}
			}
		}
	}

	if idx := strings.Index(line, "duplicate "); idx >= 0 {
		rest := line[idx+len("duplicate "):]
		if pctIdx := strings.Index(rest, "%"); pctIdx >= 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rest[:pctIdx]), 64); err == nil {
				c.Duplicate.Enabled = true
				c.Duplicate.Percent = v
				c.Duplicate.Correlation = trailingPct(rest[pctIdx+1:])
			}
		}
	}

	if idx := strings.Index(line, "reorder "); idx >= 0 {
		rest := line[idx+len("reorder "):]
		toks := strings.Fields(rest)
		if len(toks) > 0 && strings.HasSuffix(toks[0], "%") {
			if v, err := strconv.ParseFloat(strings.TrimSuffix(toks[0], "%"), 64); err == nil {
				c.Reorder.Enabled = true
				c.Reorder.Percent = v
			}
			if len(toks) > 1 && strings.HasSuffix(toks[1], "%") {
				if v, err := strconv.ParseFloat(strings.TrimSuffix(toks[1], "%"), 64); err == nil {
					c.Reorder.Correlation = v
				}
			}
		}
		if gapIdx := strings.Index(rest, "gap "); gapIdx >= 0 {
			gapPart := rest[gapIdx+len("gap "):]
			end := strings.IndexByte(gapPart, ' ')
			if end < 0 {
				end = len(gapPart)
			}
			if v, err := strconv.Atoi(strings.TrimSpace(gapPart[:end])); err == nil {
				c.Reorder.Gap = v
			}
		}
	}

	if idx := strings.Index(line, "corrupt "); idx >= 0 {
		rest := line[idx+len("corrupt "):]
		if pctIdx := strings.Index(rest, "%"); pctIdx >= 0 {
			if v, err := strconv.ParseFloat(strings.TrimSpace(rest[:pctIdx]), 64); err == nil {
				c.Corrupt.Enabled = true
				c.Corrupt.Percent = v
				c.Corrupt.Correlation = trailingPct(rest[pctIdx+1:])
			}
		}
	}

	if idx := strings.Index(line, "rate "); idx >= 0 {
		rest := line[idx+len("rate "):]
		lower := strings.ToLower(rest)
		if kIdx := strings.Index(lower, "kbit"); kIdx >= 0 {
			if v, err := strconv.Atoi(strings.TrimSpace(rest[:kIdx])); err == nil {
				c.RateLimit.Enabled = true
				c.RateLimit.RateKbps = v
			}
		} else if mIdx := strings.Index(lower, "mbit"); mIdx >= 0 {
			if v, err := strconv.Atoi(strings.TrimSpace(rest[:mIdx])); err == nil {
				c.RateLimit.Enabled = true
				c.RateLimit.RateKbps = v * 1000
			}
		}
	}

	return c
}

func parseDelayToken(tok string) (float64, bool) {
	if strings.HasSuffix(tok, "ms") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "ms"), 64)
		return v, err == nil
	}
	if strings.HasSuffix(tok, "s") {
		v, err := strconv.ParseFloat(strings.TrimSuffix(tok, "s"), 64)
		if err != nil {
			return 0, false
		}
		return v * 1000, true
	}
	return 0, false
}

// trailingPct returns the value of s's first field when that field is a
// percentage (a correlation following a block's primary percentage), else 0.
func trailingPct(s string) float64 {
	toks := strings.Fields(s)
	if len(toks) == 0 || !strings.HasSuffix(toks[0], "%") {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(toks[0], "%"), 64)
	if err != nil {
		return 0
	}
	return v
}

func pct(v float64) string { return trimFloat(v) + "%" }
func ms(v float64) string  { return trimFloat(v) + "ms" }

func rate(kbps int) string {
	if kbps >= 1000 {
		return strconv.Itoa(kbps/1000) + "mbit"
	}
	return strconv.Itoa(kbps) + "kbit"
}

// trimFloat renders v without a trailing ".0" for whole numbers, matching
// tc's own display convention and keeping round-trip text stable.
func trimFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	return s
}
