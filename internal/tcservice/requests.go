package tcservice

import "tcmesh/internal/tcproto"

// legacyToConfig converts the pre-structured flat request fields into a
// NetemConfig, enabling each block whose primary value is present.
func legacyToConfig(f tcproto.TcLegacyFields) tcproto.NetemConfig {
	var c tcproto.NetemConfig

	if f.Loss > 0 {
		c.Loss = tcproto.LossConfig{Enabled: true, Percent: f.Loss, Correlation: f.LossCorrelation}
	}
	if f.DelayMs > 0 {
		c.Delay = tcproto.DelayConfig{Enabled: true, BaseMs: f.DelayMs, JitterMs: f.JitterMs, Correlation: f.DelayCorrelation}
	}
	if f.Duplicate > 0 {
		c.Duplicate = tcproto.DuplicateConfig{Enabled: true, Percent: f.Duplicate}
	}
	if f.Reorder > 0 {
		c.Reorder = tcproto.ReorderConfig{Enabled: true, Percent: f.Reorder, Gap: f.ReorderGap}
	}
	if f.Corrupt > 0 {
		c.Corrupt = tcproto.CorruptConfig{Enabled: true, Percent: f.Corrupt}
	}
	if f.RateKbps > 0 {
		c.RateLimit = tcproto.RateLimitConfig{Enabled: true, RateKbps: f.RateKbps}
	}
	return c
}

// resolveOperation extracts the NetemConfig a TcRequest's operation
// describes. TcOpRemove and an empty resulting config are equivalent: both
// result in the qdisc being deleted.
func resolveOperation(op tcproto.TcOperation) tcproto.NetemConfig {
	switch op.Kind {
	case tcproto.TcOpApply:
		return legacyToConfig(op.Legacy)
	case tcproto.TcOpApplyConfig:
		return op.Config
	default:
		return tcproto.NetemConfig{}
	}
}
